package model

// Capability is one of the five team-scoped permissions.
type Capability string

const (
	CapabilityManageTeam   Capability = "manage_team"
	CapabilityManageRoster Capability = "manage_roster"
	CapabilityTrackStats   Capability = "track_stats"
	CapabilityViewStats    Capability = "view_stats"
	CapabilityShareStats   Capability = "share_stats"
)

// CapabilitySet is the effective permission vector of a user on a team.
type CapabilitySet struct {
	ManageTeam   bool `json:"manage_team"`
	ManageRoster bool `json:"manage_roster"`
	TrackStats   bool `json:"track_stats"`
	ViewStats    bool `json:"view_stats"`
	ShareStats   bool `json:"share_stats"`
}

func AllCapabilities() CapabilitySet {
	return CapabilitySet{
		ManageTeam:   true,
		ManageRoster: true,
		TrackStats:   true,
		ViewStats:    true,
		ShareStats:   true,
	}
}

// MemberCapabilities is the grant implied by plain roster membership.
func MemberCapabilities() CapabilitySet {
	return CapabilitySet{ViewStats: true}
}

func NoCapabilities() CapabilitySet {
	return CapabilitySet{}
}

// Or merges two capability vectors; a user holding several staff roles gets
// the union of their grants.
func (c CapabilitySet) Or(other CapabilitySet) CapabilitySet {
	return CapabilitySet{
		ManageTeam:   c.ManageTeam || other.ManageTeam,
		ManageRoster: c.ManageRoster || other.ManageRoster,
		TrackStats:   c.TrackStats || other.TrackStats,
		ViewStats:    c.ViewStats || other.ViewStats,
		ShareStats:   c.ShareStats || other.ShareStats,
	}
}

func (c CapabilitySet) Has(capability Capability) bool {
	switch capability {
	case CapabilityManageTeam:
		return c.ManageTeam
	case CapabilityManageRoster:
		return c.ManageRoster
	case CapabilityTrackStats:
		return c.TrackStats
	case CapabilityViewStats:
		return c.ViewStats
	case CapabilityShareStats:
		return c.ShareStats
	}
	return false
}

func (c CapabilitySet) Any() bool {
	return c.ManageTeam || c.ManageRoster || c.TrackStats || c.ViewStats || c.ShareStats
}
