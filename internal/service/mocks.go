package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mkotelnikov/courtside/internal/model"
	"github.com/mkotelnikov/courtside/internal/repository"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *repository.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Get(ctx context.Context, userID string) (*repository.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

type MockLeagueRepository struct {
	mock.Mock
}

func (m *MockLeagueRepository) Create(ctx context.Context, league *repository.League) error {
	args := m.Called(ctx, league)
	return args.Error(0)
}

func (m *MockLeagueRepository) Get(ctx context.Context, leagueID string) (*repository.League, error) {
	args := m.Called(ctx, leagueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.League), args.Error(1)
}

func (m *MockLeagueRepository) CreateSeason(ctx context.Context, season *repository.Season) error {
	args := m.Called(ctx, season)
	return args.Error(0)
}

func (m *MockLeagueRepository) GetSeason(ctx context.Context, seasonID string) (*repository.Season, error) {
	args := m.Called(ctx, seasonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Season), args.Error(1)
}

func (m *MockLeagueRepository) AddAdmin(ctx context.Context, leagueID, userID string) error {
	args := m.Called(ctx, leagueID, userID)
	return args.Error(0)
}

func (m *MockLeagueRepository) IsAdmin(ctx context.Context, leagueID, userID string) (bool, error) {
	args := m.Called(ctx, leagueID, userID)
	return args.Bool(0), args.Error(1)
}

type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, team *repository.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) Get(ctx context.Context, teamID string) (*repository.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Team), args.Error(1)
}

type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Create(ctx context.Context, role *repository.TeamRole) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Get(ctx context.Context, roleID string) (*repository.TeamRole, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TeamRole), args.Error(1)
}

func (m *MockRoleRepository) ListUserRoles(ctx context.Context, teamID, userID string) ([]*repository.TeamRole, error) {
	args := m.Called(ctx, teamID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.TeamRole), args.Error(1)
}

func (m *MockRoleRepository) AssignStaff(ctx context.Context, teamID, userID, roleID string) error {
	args := m.Called(ctx, teamID, userID, roleID)
	return args.Error(0)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, member *repository.TeamMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) Get(ctx context.Context, teamID, playerID string) (*repository.TeamMember, error) {
	args := m.Called(ctx, teamID, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TeamMember), args.Error(1)
}

func (m *MockMemberRepository) ListByTeam(ctx context.Context, teamID string) ([]*repository.TeamMember, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.TeamMember), args.Error(1)
}

type MockInvitationRepository struct {
	mock.Mock
}

func (m *MockInvitationRepository) Create(ctx context.Context, inv *repository.Invitation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvitationRepository) Get(ctx context.Context, invitationID string) (*repository.Invitation, error) {
	args := m.Called(ctx, invitationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) GetByToken(ctx context.Context, token string) (*repository.Invitation, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) FindPending(ctx context.Context, teamID, playerID string) (*repository.Invitation, error) {
	args := m.Called(ctx, teamID, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) Transition(ctx context.Context, invitationID string, from model.InvitationStatus, tr *repository.InvitationTransition) (*repository.Invitation, error) {
	args := m.Called(ctx, invitationID, from, tr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockAccessResolver struct {
	mock.Mock
}

func (m *MockAccessResolver) ResolveCapabilities(ctx context.Context, userID, teamID string) (model.CapabilitySet, error) {
	args := m.Called(ctx, userID, teamID)
	return args.Get(0).(model.CapabilitySet), args.Error(1)
}

func (m *MockAccessResolver) HasCapability(ctx context.Context, userID, teamID string, capability model.Capability) (bool, error) {
	args := m.Called(ctx, userID, teamID, capability)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessResolver) CanAccessTeam(ctx context.Context, userID, teamID string) (bool, error) {
	args := m.Called(ctx, userID, teamID)
	return args.Bool(0), args.Error(1)
}
