package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mkotelnikov/courtside/internal/db"
	"github.com/mkotelnikov/courtside/internal/model"
	"github.com/mkotelnikov/courtside/internal/repository"
	"github.com/mkotelnikov/courtside/pkg/logger"
)

// AccessResolver is the authorization seam consumed by the mutating
// services; *AccessService is the production implementation.
type AccessResolver interface {
	ResolveCapabilities(ctx context.Context, userID, teamID string) (model.CapabilitySet, error)
	HasCapability(ctx context.Context, userID, teamID string, capability model.Capability) (bool, error)
	CanAccessTeam(ctx context.Context, userID, teamID string) (bool, error)
}

var _ AccessResolver = (*AccessService)(nil)

const (
	defaultExpiresInDays = 7
	minExpiresInDays     = 1
	maxExpiresInDays     = 30

	invitationTokenBytes = 32
)

type CreateInvitationPayload struct {
	PlayerID      string  `json:"player_id" validate:"required"`
	JerseyNumber  *int    `json:"jersey_number,omitempty" validate:"omitempty,min=0,max=99"`
	Position      *string `json:"position,omitempty"`
	Message       *string `json:"message,omitempty"`
	ExpiresInDays int     `json:"expires_in_days,omitempty" validate:"omitempty,min=1,max=30"`
}

// InvitationService owns the invitation state machine:
// PENDING -> {ACCEPTED | REJECTED | CANCELLED | EXPIRED}, all terminal.
type InvitationService struct {
	tx db.Transactor

	access      AccessResolver
	users       repository.UserRepository
	teams       repository.TeamRepository
	members     repository.MemberRepository
	invitations repository.InvitationRepository

	notifier Notifier
	now      func() time.Time
}

func NewInvitationService(tx db.Transactor) *InvitationService {
	return &InvitationService{
		tx:  tx,
		now: time.Now,
	}
}

func (s *InvitationService) CreateInvitation(ctx context.Context, teamID string, payload *CreateInvitationPayload, requesterID string) (*model.Invitation, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating invitation",
		zap.String("team_id", teamID),
		zap.String("player_id", payload.PlayerID),
		zap.String("requester_id", requesterID))

	inv := &repository.Invitation{}

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.teams.Get(txCtx, teamID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewError(ErrorCodeNotFound, "team not found")
			}
			return errors.Wrap(err, "get team")
		}

		allowed, err := s.access.HasCapability(txCtx, requesterID, teamID, model.CapabilityManageRoster)
		if err != nil {
			return errors.Wrap(err, "resolve requester capabilities")
		}
		if !allowed {
			return NewError(ErrorCodeForbidden, "roster management capability required")
		}

		if _, err = s.users.Get(txCtx, payload.PlayerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewError(ErrorCodeNotFound, "player not found")
			}
			return errors.Wrap(err, "get player")
		}

		if _, err = s.members.Get(txCtx, teamID, payload.PlayerID); err == nil {
			return NewError(ErrorCodeConflict, "player is already on this team")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return errors.Wrap(err, "check membership")
		}

		if _, err = s.invitations.FindPending(txCtx, teamID, payload.PlayerID); err == nil {
			return NewError(ErrorCodeConflict, "a pending invitation already exists for this player")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return errors.Wrap(err, "check pending invitation")
		}

		token, err := newInvitationToken()
		if err != nil {
			return errors.Wrap(err, "generate token")
		}

		now := s.now()
		inv.ID = uuid.NewString()
		inv.TeamID = teamID
		inv.PlayerID = payload.PlayerID
		inv.InvitedByID = requesterID
		inv.Token = token
		inv.JerseyNumber = payload.JerseyNumber
		inv.Position = payload.Position
		inv.Message = payload.Message
		inv.Status = model.InvitationStatusPending
		inv.ExpiresAt = now.AddDate(0, 0, clampExpiresInDays(payload.ExpiresInDays))
		inv.CreatedAt = &now
		inv.UpdatedAt = &now

		if err = s.invitations.Create(txCtx, inv); err != nil {
			// The partial unique index lost us a race with a concurrent create.
			if errors.Is(err, repository.ErrAlreadyExists) {
				return NewError(ErrorCodeConflict, "a pending invitation already exists for this player")
			}
			return errors.Wrap(err, "create invitation")
		}

		return nil
	})
	if svcErr := s.asServiceError(ctx, err, "failed to create invitation"); svcErr != nil {
		return nil, svcErr
	}

	result := invitationToModel(inv)

	if s.notifier != nil {
		go s.notifier.InvitationCreated(result)
	}

	return result, nil
}

func (s *InvitationService) AcceptInvitation(ctx context.Context, invitationID, requesterID string) (*model.InvitationAcceptance, *Error) {
	l := logger.FromContext(ctx)
	l.Info("accepting invitation",
		zap.String("invitation_id", invitationID),
		zap.String("requester_id", requesterID))

	inv, svcErr := s.pendingInvitationFor(ctx, invitationID, requesterID)
	if svcErr != nil {
		return nil, svcErr
	}

	now := s.now()
	if now.After(inv.ExpiresAt) {
		// Lazy expiry: persist the EXPIRED state, then fail the accept.
		if _, err := s.invitations.Transition(ctx, inv.ID, model.InvitationStatusPending, &repository.InvitationTransition{
			Status:    model.InvitationStatusExpired,
			UpdatedAt: now,
		}); err != nil && !errors.Is(err, repository.ErrNotFound) {
			l.Error("failed to expire invitation", zap.String("invitation_id", inv.ID), zap.Error(err))
		}
		return nil, NewError(ErrorCodeInvalidState, "invitation has expired")
	}

	if _, err := s.members.Get(ctx, inv.TeamID, inv.PlayerID); err == nil {
		return nil, NewError(ErrorCodeInvalidState, "player is already on this team")
	} else if !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to check membership", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to accept invitation")
	}

	var (
		accepted *repository.Invitation
		member   *repository.TeamMember
	)

	// Status transition and roster insert commit atomically; a concurrent
	// accept loses on the guarded transition or the unique (team, player)
	// constraint and observes Conflict, never a second admission.
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		accepted, err = s.invitations.Transition(txCtx, inv.ID, model.InvitationStatusPending, &repository.InvitationTransition{
			Status:     model.InvitationStatusAccepted,
			UpdatedAt:  now,
			AcceptedAt: &now,
		})
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeConflict, "invitation was already processed")
		}
		if err != nil {
			return errors.Wrap(err, "transition invitation")
		}

		member = &repository.TeamMember{
			ID:           uuid.NewString(),
			TeamID:       inv.TeamID,
			PlayerID:     inv.PlayerID,
			JerseyNumber: inv.JerseyNumber,
			Position:     inv.Position,
		}
		if err = s.members.Create(txCtx, member); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return NewError(ErrorCodeConflict, "player is already on this team")
			}
			return errors.Wrap(err, "create team member")
		}

		return nil
	})
	if svcErr := s.asServiceError(ctx, err, "failed to accept invitation"); svcErr != nil {
		return nil, svcErr
	}

	l.Info("invitation accepted",
		zap.String("invitation_id", accepted.ID),
		zap.String("team_id", accepted.TeamID),
		zap.String("player_id", accepted.PlayerID))

	return &model.InvitationAcceptance{
		Invitation: invitationToModel(accepted),
		Member: &model.TeamMember{
			ID:           member.ID,
			TeamID:       member.TeamID,
			PlayerID:     member.PlayerID,
			JerseyNumber: member.JerseyNumber,
			Position:     member.Position,
		},
	}, nil
}

func (s *InvitationService) RejectInvitation(ctx context.Context, invitationID, requesterID string) (*model.Invitation, *Error) {
	l := logger.FromContext(ctx)
	l.Info("rejecting invitation",
		zap.String("invitation_id", invitationID),
		zap.String("requester_id", requesterID))

	inv, svcErr := s.pendingInvitationFor(ctx, invitationID, requesterID)
	if svcErr != nil {
		return nil, svcErr
	}

	now := s.now()
	rejected, err := s.invitations.Transition(ctx, inv.ID, model.InvitationStatusPending, &repository.InvitationTransition{
		Status:     model.InvitationStatusRejected,
		UpdatedAt:  now,
		RejectedAt: &now,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeConflict, "invitation was already processed")
	}
	if err != nil {
		l.Error("failed to reject invitation", zap.String("invitation_id", invitationID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to reject invitation")
	}

	return invitationToModel(rejected), nil
}

func (s *InvitationService) CancelInvitation(ctx context.Context, invitationID, requesterID string) (*model.Invitation, *Error) {
	l := logger.FromContext(ctx)
	l.Info("cancelling invitation",
		zap.String("invitation_id", invitationID),
		zap.String("requester_id", requesterID))

	inv, err := s.invitations.Get(ctx, invitationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "invitation not found")
	}
	if err != nil {
		l.Error("failed to get invitation", zap.String("invitation_id", invitationID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to cancel invitation")
	}

	// Cancellation is authorized against the issuing team, not the issuer:
	// any current holder of manage-roster may cancel.
	allowed, err := s.access.HasCapability(ctx, requesterID, inv.TeamID, model.CapabilityManageRoster)
	if err != nil {
		l.Error("failed to resolve capabilities", zap.String("requester_id", requesterID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to cancel invitation")
	}
	if !allowed {
		return nil, NewError(ErrorCodeForbidden, "roster management capability required")
	}

	if inv.Status.Terminal() {
		return nil, NewError(ErrorCodeInvalidState, fmt.Sprintf("invitation is %s", inv.Status))
	}

	cancelled, err := s.invitations.Transition(ctx, inv.ID, model.InvitationStatusPending, &repository.InvitationTransition{
		Status:    model.InvitationStatusCancelled,
		UpdatedAt: s.now(),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeConflict, "invitation was already processed")
	}
	if err != nil {
		l.Error("failed to cancel invitation", zap.String("invitation_id", invitationID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to cancel invitation")
	}

	return invitationToModel(cancelled), nil
}

// ExpireOldInvitations sweeps overdue PENDING invitations. Idempotent; runs
// without authorization as a system-internal maintenance operation.
func (s *InvitationService) ExpireOldInvitations(ctx context.Context) (int64, *Error) {
	l := logger.FromContext(ctx)

	count, err := s.invitations.ExpireOlderThan(ctx, s.now())
	if err != nil {
		l.Error("failed to expire invitations", zap.Error(err))
		return 0, NewError(ErrorCodeUnspecified, "failed to expire invitations")
	}

	if count > 0 {
		l.Info("expired overdue invitations", zap.Int64("count", count))
	}
	return count, nil
}

// GetInvitationByToken resolves a delivery-link token into its invitation.
// Read-only; the token never authorizes a mutation.
func (s *InvitationService) GetInvitationByToken(ctx context.Context, token string) (*model.Invitation, *Error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "invitation not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get invitation by token", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get invitation")
	}
	return invitationToModel(inv), nil
}

// pendingInvitationFor loads the invitation and checks the identity and
// status preconditions shared by accept and reject.
func (s *InvitationService) pendingInvitationFor(ctx context.Context, invitationID, requesterID string) (*repository.Invitation, *Error) {
	inv, err := s.invitations.Get(ctx, invitationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "invitation not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get invitation", zap.String("invitation_id", invitationID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get invitation")
	}

	if inv.PlayerID != requesterID {
		return nil, NewError(ErrorCodeForbidden, "only the invited player may act on this invitation")
	}

	if inv.Status.Terminal() {
		return nil, NewError(ErrorCodeInvalidState, fmt.Sprintf("invitation is %s", inv.Status))
	}

	return inv, nil
}

func (s *InvitationService) asServiceError(ctx context.Context, err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	logger.FromContext(ctx).Error(fallback, zap.Error(err))
	return NewError(ErrorCodeUnspecified, fallback)
}

func clampExpiresInDays(days int) int {
	switch {
	case days == 0:
		return defaultExpiresInDays
	case days < minExpiresInDays:
		return minExpiresInDays
	case days > maxExpiresInDays:
		return maxExpiresInDays
	}
	return days
}

// newInvitationToken mints a 256-bit URL-safe opaque token.
func newInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func invitationToModel(inv *repository.Invitation) *model.Invitation {
	return &model.Invitation{
		ID:           inv.ID,
		TeamID:       inv.TeamID,
		PlayerID:     inv.PlayerID,
		InvitedByID:  inv.InvitedByID,
		Token:        inv.Token,
		JerseyNumber: inv.JerseyNumber,
		Position:     inv.Position,
		Message:      inv.Message,
		Status:       inv.Status,
		ExpiresAt:    inv.ExpiresAt,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		AcceptedAt:   inv.AcceptedAt,
		RejectedAt:   inv.RejectedAt,
	}
}

func (s *InvitationService) WithAccessResolver(a AccessResolver) *InvitationService {
	s.access = a
	return s
}

func (s *InvitationService) WithUserRepo(r repository.UserRepository) *InvitationService {
	s.users = r
	return s
}

func (s *InvitationService) WithTeamRepo(r repository.TeamRepository) *InvitationService {
	s.teams = r
	return s
}

func (s *InvitationService) WithMemberRepo(r repository.MemberRepository) *InvitationService {
	s.members = r
	return s
}

func (s *InvitationService) WithInvitationRepo(r repository.InvitationRepository) *InvitationService {
	s.invitations = r
	return s
}

func (s *InvitationService) WithNotifier(n Notifier) *InvitationService {
	s.notifier = n
	return s
}

// WithClock overrides the time source; tests use it to drive expiry.
func (s *InvitationService) WithClock(now func() time.Time) *InvitationService {
	s.now = now
	return s
}
