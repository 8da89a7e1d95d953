package model

type Team struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	SeasonID string `json:"season_id" validate:"required"`
	LeagueID string `json:"league_id"`
}

// TeamRole is a named, team-scoped bundle of capabilities. Role names are
// unique within a team.
type TeamRole struct {
	ID           string        `json:"id"`
	TeamID       string        `json:"team_id"`
	Name         string        `json:"name" validate:"required"`
	Capabilities CapabilitySet `json:"capabilities"`
}

// Default roles seeded at team creation.
const (
	RoleNameHeadCoach      = "Head Coach"
	RoleNameAssistantCoach = "Assistant Coach"
	RoleNameTeamManager    = "Team Manager"
)

func DefaultTeamRoles() []*TeamRole {
	return []*TeamRole{
		{Name: RoleNameHeadCoach, Capabilities: AllCapabilities()},
		{Name: RoleNameAssistantCoach, Capabilities: CapabilitySet{
			ManageRoster: true,
			TrackStats:   true,
			ViewStats:    true,
		}},
		{Name: RoleNameTeamManager, Capabilities: CapabilitySet{
			ManageTeam:   true,
			ManageRoster: true,
			ViewStats:    true,
		}},
	}
}

type TeamMember struct {
	ID           string  `json:"id"`
	TeamID       string  `json:"team_id"`
	PlayerID     string  `json:"player_id"`
	JerseyNumber *int    `json:"jersey_number,omitempty"`
	Position     *string `json:"position,omitempty"`
}
