package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mkotelnikov/courtside/internal/db"
	"github.com/mkotelnikov/courtside/internal/model"
	"github.com/mkotelnikov/courtside/internal/repository"
	"github.com/mkotelnikov/courtside/pkg/logger"
)

// TeamService covers league, season, team, role and roster administration.
type TeamService struct {
	tx db.Transactor

	access  AccessResolver
	users   repository.UserRepository
	leagues repository.LeagueRepository
	teams   repository.TeamRepository
	roles   repository.RoleRepository
	members repository.MemberRepository
}

func NewTeamService(tx db.Transactor) *TeamService {
	return &TeamService{tx: tx}
}

func (t *TeamService) CreateLeague(ctx context.Context, name, creatorID string) (*model.League, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating league", zap.String("name", name), zap.String("creator_id", creatorID))

	league := &repository.League{
		ID:   uuid.NewString(),
		Name: name,
	}

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := t.users.Get(txCtx, creatorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewError(ErrorCodeNotFound, "user not found")
			}
			return errors.Wrap(err, "get creator")
		}

		if err := t.leagues.Create(txCtx, league); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return NewError(ErrorCodeConflict, "league name already exists")
			}
			return errors.Wrap(err, "create league")
		}

		// The creator administers the league they founded.
		if err := t.leagues.AddAdmin(txCtx, league.ID, creatorID); err != nil {
			return errors.Wrap(err, "add league admin")
		}

		return nil
	})
	if svcErr := t.asServiceError(ctx, err, "failed to create league"); svcErr != nil {
		return nil, svcErr
	}

	return &model.League{ID: league.ID, Name: league.Name}, nil
}

func (t *TeamService) AddLeagueAdmin(ctx context.Context, leagueID, userID, requesterID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("adding league admin",
		zap.String("league_id", leagueID),
		zap.String("user_id", userID),
		zap.String("requester_id", requesterID))

	allowed, err := t.isLeagueAdminOrSuper(ctx, leagueID, requesterID)
	if err != nil {
		l.Error("failed to check league admin", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to add league admin")
	}
	if !allowed {
		return NewError(ErrorCodeForbidden, "league administration rights required")
	}

	if _, err = t.users.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "user not found")
		}
		l.Error("failed to get user", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to add league admin")
	}

	if err = t.leagues.AddAdmin(ctx, leagueID, userID); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return NewError(ErrorCodeConflict, "user already administers this league")
		}
		l.Error("failed to add league admin", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to add league admin")
	}

	return nil
}

func (t *TeamService) CreateSeason(ctx context.Context, leagueID, name, requesterID string) (*model.Season, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating season", zap.String("league_id", leagueID), zap.String("name", name))

	if _, err := t.leagues.Get(ctx, leagueID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewError(ErrorCodeNotFound, "league not found")
		}
		l.Error("failed to get league", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create season")
	}

	allowed, err := t.isLeagueAdminOrSuper(ctx, leagueID, requesterID)
	if err != nil {
		l.Error("failed to check league admin", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create season")
	}
	if !allowed {
		return nil, NewError(ErrorCodeForbidden, "league administration rights required")
	}

	season := &repository.Season{
		ID:       uuid.NewString(),
		LeagueID: leagueID,
		Name:     name,
	}
	if err = t.leagues.CreateSeason(ctx, season); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, NewError(ErrorCodeConflict, "season name already exists in this league")
		}
		l.Error("failed to create season", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create season")
	}

	return &model.Season{ID: season.ID, LeagueID: season.LeagueID, Name: season.Name}, nil
}

// CreateTeam inserts the team, seeds the three default roles and assigns
// the creator as Head Coach, all in one transaction.
func (t *TeamService) CreateTeam(ctx context.Context, seasonID, name, creatorID string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating team",
		zap.String("season_id", seasonID),
		zap.String("name", name),
		zap.String("creator_id", creatorID))

	team := &repository.Team{}

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		season, err := t.leagues.GetSeason(txCtx, seasonID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "season not found")
		}
		if err != nil {
			return errors.Wrap(err, "get season")
		}

		if _, err = t.users.Get(txCtx, creatorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NewError(ErrorCodeNotFound, "user not found")
			}
			return errors.Wrap(err, "get creator")
		}

		team.ID = uuid.NewString()
		team.Name = name
		team.SeasonID = season.ID
		team.LeagueID = season.LeagueID

		if err = t.teams.Create(txCtx, team); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return NewError(ErrorCodeConflict, "team name already exists in this season")
			}
			return errors.Wrap(err, "create team")
		}

		for _, def := range model.DefaultTeamRoles() {
			role := &repository.TeamRole{
				ID:           uuid.NewString(),
				TeamID:       team.ID,
				Name:         def.Name,
				Capabilities: def.Capabilities,
			}
			if err = t.roles.Create(txCtx, role); err != nil {
				return errors.Wrapf(err, "seed role %q", def.Name)
			}

			if def.Name == model.RoleNameHeadCoach {
				if err = t.roles.AssignStaff(txCtx, team.ID, creatorID, role.ID); err != nil {
					return errors.Wrap(err, "assign creator as head coach")
				}
			}
		}

		return nil
	})
	if svcErr := t.asServiceError(ctx, err, "failed to create team"); svcErr != nil {
		return nil, svcErr
	}

	return &model.Team{
		ID:       team.ID,
		Name:     team.Name,
		SeasonID: team.SeasonID,
		LeagueID: team.LeagueID,
	}, nil
}

func (t *TeamService) CreateRole(ctx context.Context, teamID string, role *model.TeamRole, requesterID string) (*model.TeamRole, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating team role",
		zap.String("team_id", teamID),
		zap.String("name", role.Name),
		zap.String("requester_id", requesterID))

	if _, err := t.teams.Get(ctx, teamID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewError(ErrorCodeNotFound, "team not found")
		}
		l.Error("failed to get team", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create role")
	}

	allowed, err := t.access.HasCapability(ctx, requesterID, teamID, model.CapabilityManageTeam)
	if err != nil {
		l.Error("failed to resolve capabilities", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create role")
	}
	if !allowed {
		return nil, NewError(ErrorCodeForbidden, "team management capability required")
	}

	created := &repository.TeamRole{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		Name:         role.Name,
		Capabilities: role.Capabilities,
	}
	if err = t.roles.Create(ctx, created); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, NewError(ErrorCodeConflict, "role name already exists on this team")
		}
		l.Error("failed to create role", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create role")
	}

	return &model.TeamRole{
		ID:           created.ID,
		TeamID:       created.TeamID,
		Name:         created.Name,
		Capabilities: created.Capabilities,
	}, nil
}

func (t *TeamService) AssignStaff(ctx context.Context, teamID, userID, roleID, requesterID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("assigning staff",
		zap.String("team_id", teamID),
		zap.String("user_id", userID),
		zap.String("role_id", roleID))

	allowed, err := t.access.HasCapability(ctx, requesterID, teamID, model.CapabilityManageTeam)
	if err != nil {
		l.Error("failed to resolve capabilities", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to assign staff")
	}
	if !allowed {
		return NewError(ErrorCodeForbidden, "team management capability required")
	}

	if _, err = t.users.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "user not found")
		}
		l.Error("failed to get user", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to assign staff")
	}

	role, err := t.roles.Get(ctx, roleID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "role not found")
	}
	if err != nil {
		l.Error("failed to get role", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to assign staff")
	}
	if role.TeamID != teamID {
		return NewError(ErrorCodeInvalidState, "role belongs to a different team")
	}

	if err = t.roles.AssignStaff(ctx, teamID, userID, roleID); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return NewError(ErrorCodeConflict, "user already holds this role")
		}
		l.Error("failed to assign staff", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to assign staff")
	}

	return nil
}

// AddMember rosters a player directly, outside the invitation flow.
func (t *TeamService) AddMember(ctx context.Context, teamID string, member *model.TeamMember, requesterID string) (*model.TeamMember, *Error) {
	l := logger.FromContext(ctx)
	l.Info("adding team member",
		zap.String("team_id", teamID),
		zap.String("player_id", member.PlayerID))

	allowed, err := t.access.HasCapability(ctx, requesterID, teamID, model.CapabilityManageRoster)
	if err != nil {
		l.Error("failed to resolve capabilities", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to add member")
	}
	if !allowed {
		return nil, NewError(ErrorCodeForbidden, "roster management capability required")
	}

	if _, err = t.users.Get(ctx, member.PlayerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewError(ErrorCodeNotFound, "player not found")
		}
		l.Error("failed to get player", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to add member")
	}

	created := &repository.TeamMember{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		PlayerID:     member.PlayerID,
		JerseyNumber: member.JerseyNumber,
		Position:     member.Position,
	}
	if err = t.members.Create(ctx, created); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, NewError(ErrorCodeConflict, "player is already on this team")
		}
		l.Error("failed to add member", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to add member")
	}

	return &model.TeamMember{
		ID:           created.ID,
		TeamID:       created.TeamID,
		PlayerID:     created.PlayerID,
		JerseyNumber: created.JerseyNumber,
		Position:     created.Position,
	}, nil
}

// GetTeam returns the team and its roster to anyone who can access it.
func (t *TeamService) GetTeam(ctx context.Context, teamID, requesterID string) (*model.Team, []*model.TeamMember, *Error) {
	l := logger.FromContext(ctx)

	allowed, err := t.access.CanAccessTeam(ctx, requesterID, teamID)
	if err != nil {
		l.Error("failed to check team access", zap.Error(err))
		return nil, nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}
	if !allowed {
		return nil, nil, NewError(ErrorCodeForbidden, "no access to this team")
	}

	team, err := t.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, NewError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.Error(err))
		return nil, nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	repoMembers, err := t.members.ListByTeam(ctx, teamID)
	if err != nil {
		l.Error("failed to list members", zap.Error(err))
		return nil, nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	members := make([]*model.TeamMember, 0, len(repoMembers))
	for _, m := range repoMembers {
		members = append(members, &model.TeamMember{
			ID:           m.ID,
			TeamID:       m.TeamID,
			PlayerID:     m.PlayerID,
			JerseyNumber: m.JerseyNumber,
			Position:     m.Position,
		})
	}

	return &model.Team{
		ID:       team.ID,
		Name:     team.Name,
		SeasonID: team.SeasonID,
		LeagueID: team.LeagueID,
	}, members, nil
}

func (t *TeamService) isLeagueAdminOrSuper(ctx context.Context, leagueID, userID string) (bool, error) {
	user, err := t.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if user.SystemRole == model.SystemRoleSuperAdmin {
		return true, nil
	}
	return t.leagues.IsAdmin(ctx, leagueID, userID)
}

func (t *TeamService) asServiceError(ctx context.Context, err error, fallback string) *Error {
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

func (t *TeamService) WithAccessResolver(a AccessResolver) *TeamService {
	t.access = a
	return t
}

func (t *TeamService) WithUserRepo(r repository.UserRepository) *TeamService {
	t.users = r
	return t
}

func (t *TeamService) WithLeagueRepo(r repository.LeagueRepository) *TeamService {
	t.leagues = r
	return t
}

func (t *TeamService) WithTeamRepo(r repository.TeamRepository) *TeamService {
	t.teams = r
	return t
}

func (t *TeamService) WithRoleRepo(r repository.RoleRepository) *TeamService {
	t.roles = r
	return t
}

func (t *TeamService) WithMemberRepo(r repository.MemberRepository) *TeamService {
	t.members = r
	return t
}
