package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mkotelnikov/courtside/internal/model"
	"github.com/mkotelnikov/courtside/internal/repository"
)

// AccessService derives the effective capability set of a user on a team.
// It only reads role and membership state; it never mutates anything.
type AccessService struct {
	users   repository.UserRepository
	leagues repository.LeagueRepository
	teams   repository.TeamRepository
	roles   repository.RoleRepository
	members repository.MemberRepository
}

func NewAccessService() *AccessService {
	return &AccessService{}
}

// capabilityTier is one source of grants. Tiers are evaluated in order and
// the first matching tier wins; it does not merge with lower tiers.
type capabilityTier struct {
	name    string
	resolve func(ctx context.Context, user *repository.User, team *repository.Team) (model.CapabilitySet, bool, error)
}

func (a *AccessService) tiers() []capabilityTier {
	return []capabilityTier{
		{name: "super_admin", resolve: a.superAdminTier},
		{name: "league_admin", resolve: a.leagueAdminTier},
		{name: "team_staff", resolve: a.staffTier},
		{name: "team_member", resolve: a.memberTier},
	}
}

func (a *AccessService) superAdminTier(_ context.Context, user *repository.User, _ *repository.Team) (model.CapabilitySet, bool, error) {
	if user.SystemRole == model.SystemRoleSuperAdmin {
		return model.AllCapabilities(), true, nil
	}
	return model.NoCapabilities(), false, nil
}

func (a *AccessService) leagueAdminTier(ctx context.Context, user *repository.User, team *repository.Team) (model.CapabilitySet, bool, error) {
	isAdmin, err := a.leagues.IsAdmin(ctx, team.LeagueID, user.ID)
	if err != nil {
		return model.NoCapabilities(), false, err
	}
	if isAdmin {
		return model.AllCapabilities(), true, nil
	}
	return model.NoCapabilities(), false, nil
}

func (a *AccessService) staffTier(ctx context.Context, user *repository.User, team *repository.Team) (model.CapabilitySet, bool, error) {
	roles, err := a.roles.ListUserRoles(ctx, team.ID, user.ID)
	if err != nil {
		return model.NoCapabilities(), false, err
	}
	if len(roles) == 0 {
		return model.NoCapabilities(), false, nil
	}

	caps := model.NoCapabilities()
	for _, role := range roles {
		caps = caps.Or(role.Capabilities)
	}
	return caps, true, nil
}

func (a *AccessService) memberTier(ctx context.Context, user *repository.User, team *repository.Team) (model.CapabilitySet, bool, error) {
	_, err := a.members.Get(ctx, team.ID, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NoCapabilities(), false, nil
	}
	if err != nil {
		return model.NoCapabilities(), false, err
	}
	return model.MemberCapabilities(), true, nil
}

// resolve walks the tier list and additionally reports whether any tier
// matched; a match with an all-false vector still grants team access.
func (a *AccessService) resolve(ctx context.Context, userID, teamID string) (model.CapabilitySet, bool, error) {
	team, err := a.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NoCapabilities(), false, nil
	}
	if err != nil {
		return model.NoCapabilities(), false, err
	}

	user, err := a.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NoCapabilities(), false, nil
	}
	if err != nil {
		return model.NoCapabilities(), false, err
	}

	for _, tier := range a.tiers() {
		caps, matched, err := tier.resolve(ctx, user, team)
		if err != nil {
			return model.NoCapabilities(), false, errors.Wrapf(err, "resolving %s tier", tier.name)
		}
		if matched {
			return caps, true, nil
		}
	}

	return model.NoCapabilities(), false, nil
}

// ResolveCapabilities returns the all-false set for unknown users or teams;
// it has no business-error outcomes, only storage faults.
func (a *AccessService) ResolveCapabilities(ctx context.Context, userID, teamID string) (model.CapabilitySet, error) {
	caps, _, err := a.resolve(ctx, userID, teamID)
	return caps, err
}

func (a *AccessService) HasCapability(ctx context.Context, userID, teamID string, capability model.Capability) (bool, error) {
	caps, err := a.ResolveCapabilities(ctx, userID, teamID)
	if err != nil {
		return false, err
	}
	return caps.Has(capability), nil
}

// CanAccessTeam is broader than holding any specific capability: a plain
// member passes even though membership grants view-stats only.
func (a *AccessService) CanAccessTeam(ctx context.Context, userID, teamID string) (bool, error) {
	_, matched, err := a.resolve(ctx, userID, teamID)
	return matched, err
}

func (a *AccessService) WithUserRepo(r repository.UserRepository) *AccessService {
	a.users = r
	return a
}

func (a *AccessService) WithLeagueRepo(r repository.LeagueRepository) *AccessService {
	a.leagues = r
	return a
}

func (a *AccessService) WithTeamRepo(r repository.TeamRepository) *AccessService {
	a.teams = r
	return a
}

func (a *AccessService) WithRoleRepo(r repository.RoleRepository) *AccessService {
	a.roles = r
	return a
}

func (a *AccessService) WithMemberRepo(r repository.MemberRepository) *AccessService {
	a.members = r
	return a
}
