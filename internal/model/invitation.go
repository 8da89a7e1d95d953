package model

import "time"

type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "PENDING"
	InvitationStatusAccepted  InvitationStatus = "ACCEPTED"
	InvitationStatusRejected  InvitationStatus = "REJECTED"
	InvitationStatusExpired   InvitationStatus = "EXPIRED"
	InvitationStatusCancelled InvitationStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave the status.
func (s InvitationStatus) Terminal() bool {
	return s != InvitationStatusPending
}

type Invitation struct {
	ID           string           `json:"id"`
	TeamID       string           `json:"team_id"`
	PlayerID     string           `json:"player_id"`
	InvitedByID  string           `json:"invited_by_id"`
	Token        string           `json:"token"`
	JerseyNumber *int             `json:"jersey_number,omitempty"`
	Position     *string          `json:"position,omitempty"`
	Message      *string          `json:"message,omitempty"`
	Status       InvitationStatus `json:"status"`
	ExpiresAt    time.Time        `json:"expires_at"`
	CreatedAt    *time.Time       `json:"created_at,omitempty"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`
	AcceptedAt   *time.Time       `json:"accepted_at,omitempty"`
	RejectedAt   *time.Time       `json:"rejected_at,omitempty"`
}

// InvitationAcceptance is the result of a successful accept: the updated
// invitation plus the roster row it produced.
type InvitationAcceptance struct {
	Invitation *Invitation `json:"invitation"`
	Member     *TeamMember `json:"team_member"`
}
