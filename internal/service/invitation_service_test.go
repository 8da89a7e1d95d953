package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mkotelnikov/courtside/internal/model"
	"github.com/mkotelnikov/courtside/internal/repository"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newInvitationService(
	access *MockAccessResolver,
	ur *MockUserRepository,
	tr *MockTeamRepository,
	mr *MockMemberRepository,
	ir *MockInvitationRepository,
	now time.Time,
) *InvitationService {
	return NewInvitationService(new(MockTransactor)).
		WithAccessResolver(access).
		WithUserRepo(ur).
		WithTeamRepo(tr).
		WithMemberRepo(mr).
		WithInvitationRepo(ir).
		WithClock(func() time.Time { return now })
}

func pendingInvitation() *repository.Invitation {
	jersey := 23
	position := "SG"
	return &repository.Invitation{
		ID:           "inv1",
		TeamID:       "t1",
		PlayerID:     "p1",
		InvitedByID:  "coach1",
		Token:        "tok",
		JerseyNumber: &jersey,
		Position:     &position,
		Status:       model.InvitationStatusPending,
		ExpiresAt:    testNow.AddDate(0, 0, 7),
	}
}

func TestInvitationService_CreateInvitation(t *testing.T) {
	tests := []struct {
		name          string
		payload       *CreateInvitationPayload
		setupMocks    func(*MockAccessResolver, *MockUserRepository, *MockTeamRepository, *MockMemberRepository, *MockInvitationRepository)
		expectedError bool
		errorCode     ErrorCode
		expectedDays  int
	}{
		{
			name:    "success with default expiry",
			payload: &CreateInvitationPayload{PlayerID: "p1"},
			setupMocks: func(ar *MockAccessResolver, ur *MockUserRepository, tr *MockTeamRepository, mr *MockMemberRepository, ir *MockInvitationRepository) {
				tr.On("Get", mock.Anything, "t1").Return(&repository.Team{ID: "t1", LeagueID: "l1"}, nil)
				ar.On("HasCapability", mock.Anything, "coach1", "t1", model.CapabilityManageRoster).Return(true, nil)
				ur.On("Get", mock.Anything, "p1").Return(&repository.User{ID: "p1"}, nil)
				mr.On("Get", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
				ir.On("FindPending", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
				ir.On("Create", mock.Anything, mock.MatchedBy(func(inv *repository.Invitation) bool {
					return inv.TeamID == "t1" && inv.PlayerID == "p1" && inv.Status == model.InvitationStatusPending
				})).Return(nil)
			},
			expectedDays: 7,
		},
		{
			name:    "success with custom expiry",
			payload: &CreateInvitationPayload{PlayerID: "p1", ExpiresInDays: 3},
			setupMocks: func(ar *MockAccessResolver, ur *MockUserRepository, tr *MockTeamRepository, mr *MockMemberRepository, ir *MockInvitationRepository) {
				tr.On("Get", mock.Anything, "t1").Return(&repository.Team{ID: "t1", LeagueID: "l1"}, nil)
				ar.On("HasCapability", mock.Anything, "coach1", "t1", model.CapabilityManageRoster).Return(true, nil)
				ur.On("Get", mock.Anything, "p1").Return(&repository.User{ID: "p1"}, nil)
				mr.On("Get", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
				ir.On("FindPending", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
				ir.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			expectedDays: 3,
		},
		{
			name:    "failure: team not found",
			payload: &CreateInvitationPayload{PlayerID: "p1"},
			setupMocks: func(ar *MockAccessResolver, ur *MockUserRepository, tr *MockTeamRepository, mr *MockMemberRepository, ir *MockInvitationRepository) {
				tr.On("Get", mock.Anything, "t1").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
		{
			name:    "failure: requester without manage-roster is forbidden",
			payload: &CreateInvitationPayload{PlayerID: "p1"},
			setupMocks: func(ar *MockAccessResolver, ur *MockUserRepository, tr *MockTeamRepository, mr *MockMemberRepository, ir *MockInvitationRepository) {
				tr.On("Get", mock.Anything, "t1").Return(&repository.Team{ID: "t1", LeagueID: "l1"}, nil)
				ar.On("HasCapability", mock.Anything, "coach1", "t1", model.CapabilityManageRoster).Return(false, nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeForbidden,
		},
		{
			name:    "failure: player not found",
			payload: &CreateInvitationPayload{PlayerID: "ghost"},
			setupMocks: func(ar *MockAccessResolver, ur *MockUserRepository, tr *MockTeamRepository, mr *MockMemberRepository, ir *MockInvitationRepository) {
				tr.On("Get", mock.Anything, "t1").Return(&repository.Team{ID: "t1", LeagueID: "l1"}, nil)
				ar.On("HasCapability", mock.Anything, "coach1", "t1", model.CapabilityManageRoster).Return(true, nil)
				ur.On("Get", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
		{
			name:    "failure: player already rostered",
			payload: &CreateInvitationPayload{PlayerID: "p1"},
			setupMocks: func(ar *MockAccessResolver, ur *MockUserRepository, tr *MockTeamRepository, mr *MockMemberRepository, ir *MockInvitationRepository) {
				tr.On("Get", mock.Anything, "t1").Return(&repository.Team{ID: "t1", LeagueID: "l1"}, nil)
				ar.On("HasCapability", mock.Anything, "coach1", "t1", model.CapabilityManageRoster).Return(true, nil)
				ur.On("Get", mock.Anything, "p1").Return(&repository.User{ID: "p1"}, nil)
				mr.On("Get", mock.Anything, "t1", "p1").Return(&repository.TeamMember{ID: "m1"}, nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeConflict,
		},
		{
			name:    "failure: pending invitation already exists",
			payload: &CreateInvitationPayload{PlayerID: "p1"},
			setupMocks: func(ar *MockAccessResolver, ur *MockUserRepository, tr *MockTeamRepository, mr *MockMemberRepository, ir *MockInvitationRepository) {
				tr.On("Get", mock.Anything, "t1").Return(&repository.Team{ID: "t1", LeagueID: "l1"}, nil)
				ar.On("HasCapability", mock.Anything, "coach1", "t1", model.CapabilityManageRoster).Return(true, nil)
				ur.On("Get", mock.Anything, "p1").Return(&repository.User{ID: "p1"}, nil)
				mr.On("Get", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
				ir.On("FindPending", mock.Anything, "t1", "p1").Return(pendingInvitation(), nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeConflict,
		},
		{
			name:    "failure: concurrent create loses on the unique index",
			payload: &CreateInvitationPayload{PlayerID: "p1"},
			setupMocks: func(ar *MockAccessResolver, ur *MockUserRepository, tr *MockTeamRepository, mr *MockMemberRepository, ir *MockInvitationRepository) {
				tr.On("Get", mock.Anything, "t1").Return(&repository.Team{ID: "t1", LeagueID: "l1"}, nil)
				ar.On("HasCapability", mock.Anything, "coach1", "t1", model.CapabilityManageRoster).Return(true, nil)
				ur.On("Get", mock.Anything, "p1").Return(&repository.User{ID: "p1"}, nil)
				mr.On("Get", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
				ir.On("FindPending", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
				ir.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)
			},
			expectedError: true,
			errorCode:     ErrorCodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ar := new(MockAccessResolver)
			ur := new(MockUserRepository)
			tr := new(MockTeamRepository)
			mr := new(MockMemberRepository)
			ir := new(MockInvitationRepository)

			tt.setupMocks(ar, ur, tr, mr, ir)

			svc := newInvitationService(ar, ur, tr, mr, ir, testNow)

			got, err := svc.CreateInvitation(context.Background(), "t1", tt.payload, "coach1")

			if tt.expectedError {
				assert.NotNil(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				assert.Nil(t, err)
				assert.NotNil(t, got)
				assert.Equal(t, model.InvitationStatusPending, got.Status)
				assert.NotEmpty(t, got.ID)
				assert.NotEmpty(t, got.Token)
				assert.Equal(t, testNow.AddDate(0, 0, tt.expectedDays), got.ExpiresAt)
			}

			ar.AssertExpectations(t)
			ur.AssertExpectations(t)
			tr.AssertExpectations(t)
			mr.AssertExpectations(t)
			ir.AssertExpectations(t)
		})
	}
}

func TestInvitationService_AcceptInvitation(t *testing.T) {
	t.Run("success creates the member atomically with the transition", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ur := new(MockUserRepository)
		tr := new(MockTeamRepository)
		mr := new(MockMemberRepository)
		ir := new(MockInvitationRepository)

		inv := pendingInvitation()
		accepted := *inv
		accepted.Status = model.InvitationStatusAccepted
		accepted.AcceptedAt = &testNow

		ir.On("Get", mock.Anything, "inv1").Return(inv, nil)
		mr.On("Get", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
		ir.On("Transition", mock.Anything, "inv1", model.InvitationStatusPending,
			mock.MatchedBy(func(tr *repository.InvitationTransition) bool {
				return tr.Status == model.InvitationStatusAccepted && tr.AcceptedAt != nil
			})).Return(&accepted, nil)
		mr.On("Create", mock.Anything, mock.MatchedBy(func(m *repository.TeamMember) bool {
			return m.TeamID == "t1" && m.PlayerID == "p1" &&
				m.JerseyNumber != nil && *m.JerseyNumber == 23 &&
				m.Position != nil && *m.Position == "SG"
		})).Return(nil)

		svc := newInvitationService(ar, ur, tr, mr, ir, testNow)

		got, err := svc.AcceptInvitation(context.Background(), "inv1", "p1")

		assert.Nil(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, model.InvitationStatusAccepted, got.Invitation.Status)
		assert.NotNil(t, got.Invitation.AcceptedAt)
		assert.Equal(t, "p1", got.Member.PlayerID)

		ir.AssertExpectations(t)
		mr.AssertExpectations(t)
	})

	t.Run("failure: invitation not found", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)
		ir.On("Get", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

		got, err := svc.AcceptInvitation(context.Background(), "ghost", "p1")
		assert.Nil(t, got)
		assert.NotNil(t, err)
		assert.Equal(t, ErrorCodeNotFound, err.Code)
	})

	t.Run("failure: only the invited player may accept", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)
		ir.On("Get", mock.Anything, "inv1").Return(pendingInvitation(), nil)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

		got, err := svc.AcceptInvitation(context.Background(), "inv1", "somebody-else")
		assert.Nil(t, got)
		assert.NotNil(t, err)
		assert.Equal(t, ErrorCodeForbidden, err.Code)
	})

	t.Run("failure: terminal status is named in the error", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)

		inv := pendingInvitation()
		inv.Status = model.InvitationStatusCancelled
		ir.On("Get", mock.Anything, "inv1").Return(inv, nil)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

		got, err := svc.AcceptInvitation(context.Background(), "inv1", "p1")
		assert.Nil(t, got)
		assert.NotNil(t, err)
		assert.Equal(t, ErrorCodeInvalidState, err.Code)
		assert.Contains(t, err.Message, "CANCELLED")
	})

	t.Run("failure: overdue invitation is marked EXPIRED, then the accept fails", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)

		inv := pendingInvitation()
		inv.ExpiresAt = testNow.AddDate(0, 0, 1)
		ir.On("Get", mock.Anything, "inv1").Return(inv, nil)

		expired := *inv
		expired.Status = model.InvitationStatusExpired
		ir.On("Transition", mock.Anything, "inv1", model.InvitationStatusPending,
			mock.MatchedBy(func(tr *repository.InvitationTransition) bool {
				return tr.Status == model.InvitationStatusExpired
			})).Return(&expired, nil)

		// Clock two days past a one-day expiry.
		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow.AddDate(0, 0, 2))

		got, err := svc.AcceptInvitation(context.Background(), "inv1", "p1")
		assert.Nil(t, got)
		assert.NotNil(t, err)
		assert.Equal(t, ErrorCodeInvalidState, err.Code)
		assert.Contains(t, err.Message, "expired")

		ir.AssertExpectations(t)
	})

	t.Run("failure: player joined through another path", func(t *testing.T) {
		ar := new(MockAccessResolver)
		mr := new(MockMemberRepository)
		ir := new(MockInvitationRepository)

		ir.On("Get", mock.Anything, "inv1").Return(pendingInvitation(), nil)
		mr.On("Get", mock.Anything, "t1", "p1").Return(&repository.TeamMember{ID: "m1"}, nil)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), mr, ir, testNow)

		got, err := svc.AcceptInvitation(context.Background(), "inv1", "p1")
		assert.Nil(t, got)
		assert.NotNil(t, err)
		assert.Equal(t, ErrorCodeInvalidState, err.Code)
	})

	t.Run("failure: losing the transition race yields Conflict", func(t *testing.T) {
		ar := new(MockAccessResolver)
		mr := new(MockMemberRepository)
		ir := new(MockInvitationRepository)

		ir.On("Get", mock.Anything, "inv1").Return(pendingInvitation(), nil)
		mr.On("Get", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
		ir.On("Transition", mock.Anything, "inv1", model.InvitationStatusPending, mock.Anything).
			Return(nil, repository.ErrNotFound)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), mr, ir, testNow)

		got, err := svc.AcceptInvitation(context.Background(), "inv1", "p1")
		assert.Nil(t, got)
		assert.NotNil(t, err)
		assert.Equal(t, ErrorCodeConflict, err.Code)
	})

	t.Run("failure: losing the member-insert race yields Conflict", func(t *testing.T) {
		ar := new(MockAccessResolver)
		mr := new(MockMemberRepository)
		ir := new(MockInvitationRepository)

		inv := pendingInvitation()
		accepted := *inv
		accepted.Status = model.InvitationStatusAccepted

		ir.On("Get", mock.Anything, "inv1").Return(inv, nil)
		mr.On("Get", mock.Anything, "t1", "p1").Return(nil, repository.ErrNotFound)
		ir.On("Transition", mock.Anything, "inv1", model.InvitationStatusPending, mock.Anything).
			Return(&accepted, nil)
		mr.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), mr, ir, testNow)

		got, err := svc.AcceptInvitation(context.Background(), "inv1", "p1")
		assert.Nil(t, got)
		assert.NotNil(t, err)
		assert.Equal(t, ErrorCodeConflict, err.Code)
	})
}

func TestInvitationService_RejectInvitation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)

		inv := pendingInvitation()
		rejected := *inv
		rejected.Status = model.InvitationStatusRejected
		rejected.RejectedAt = &testNow

		ir.On("Get", mock.Anything, "inv1").Return(inv, nil)
		ir.On("Transition", mock.Anything, "inv1", model.InvitationStatusPending,
			mock.MatchedBy(func(tr *repository.InvitationTransition) bool {
				return tr.Status == model.InvitationStatusRejected && tr.RejectedAt != nil
			})).Return(&rejected, nil)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

		got, err := svc.RejectInvitation(context.Background(), "inv1", "p1")
		assert.Nil(t, err)
		assert.Equal(t, model.InvitationStatusRejected, got.Status)
		assert.NotNil(t, got.RejectedAt)

		ir.AssertExpectations(t)
	})

	t.Run("failure: wrong requester", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)
		ir.On("Get", mock.Anything, "inv1").Return(pendingInvitation(), nil)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

		got, err := svc.RejectInvitation(context.Background(), "inv1", "coach1")
		assert.Nil(t, got)
		assert.Equal(t, ErrorCodeForbidden, err.Code)
	})
}

func TestInvitationService_CancelInvitation(t *testing.T) {
	t.Run("success: any holder of manage-roster may cancel", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)

		inv := pendingInvitation()
		cancelled := *inv
		cancelled.Status = model.InvitationStatusCancelled

		ir.On("Get", mock.Anything, "inv1").Return(inv, nil)
		ar.On("HasCapability", mock.Anything, "other-coach", "t1", model.CapabilityManageRoster).Return(true, nil)
		ir.On("Transition", mock.Anything, "inv1", model.InvitationStatusPending,
			mock.MatchedBy(func(tr *repository.InvitationTransition) bool {
				return tr.Status == model.InvitationStatusCancelled
			})).Return(&cancelled, nil)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

		got, err := svc.CancelInvitation(context.Background(), "inv1", "other-coach")
		assert.Nil(t, err)
		assert.Equal(t, model.InvitationStatusCancelled, got.Status)

		ar.AssertExpectations(t)
		ir.AssertExpectations(t)
	})

	t.Run("failure: requester without manage-roster", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)

		ir.On("Get", mock.Anything, "inv1").Return(pendingInvitation(), nil)
		ar.On("HasCapability", mock.Anything, "p1", "t1", model.CapabilityManageRoster).Return(false, nil)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

		got, err := svc.CancelInvitation(context.Background(), "inv1", "p1")
		assert.Nil(t, got)
		assert.Equal(t, ErrorCodeForbidden, err.Code)
	})

	t.Run("failure: already terminal", func(t *testing.T) {
		ar := new(MockAccessResolver)
		ir := new(MockInvitationRepository)

		inv := pendingInvitation()
		inv.Status = model.InvitationStatusAccepted
		ir.On("Get", mock.Anything, "inv1").Return(inv, nil)
		ar.On("HasCapability", mock.Anything, "coach1", "t1", model.CapabilityManageRoster).Return(true, nil)

		svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

		got, err := svc.CancelInvitation(context.Background(), "inv1", "coach1")
		assert.Nil(t, got)
		assert.Equal(t, ErrorCodeInvalidState, err.Code)
		assert.Contains(t, err.Message, "ACCEPTED")
	})
}

func TestInvitationService_ExpireOldInvitations(t *testing.T) {
	ar := new(MockAccessResolver)
	ir := new(MockInvitationRepository)

	// Second sweep finds nothing left to expire.
	ir.On("ExpireOlderThan", mock.Anything, testNow).Return(int64(3), nil).Once()
	ir.On("ExpireOlderThan", mock.Anything, testNow).Return(int64(0), nil).Once()

	svc := newInvitationService(ar, new(MockUserRepository), new(MockTeamRepository), new(MockMemberRepository), ir, testNow)

	count, err := svc.ExpireOldInvitations(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, int64(3), count)

	count, err = svc.ExpireOldInvitations(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, int64(0), count)

	ir.AssertExpectations(t)
}

func TestClampExpiresInDays(t *testing.T) {
	assert.Equal(t, 7, clampExpiresInDays(0))
	assert.Equal(t, 1, clampExpiresInDays(-4))
	assert.Equal(t, 30, clampExpiresInDays(90))
	assert.Equal(t, 14, clampExpiresInDays(14))
}
