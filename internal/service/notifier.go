package service

import (
	"go.uber.org/zap"

	"github.com/mkotelnikov/courtside/internal/model"
)

// Notifier delivers out-of-band invitation notices (push, e-mail). Dispatch
// is fire-and-forget: it must never block or fail the creating request.
type Notifier interface {
	InvitationCreated(inv *model.Invitation)
}

type logNotifier struct {
	l *zap.Logger
}

// NewLogNotifier returns a Notifier that only records the event; real
// delivery channels plug in behind the same interface.
func NewLogNotifier(l *zap.Logger) Notifier {
	return &logNotifier{l: l}
}

func (n *logNotifier) InvitationCreated(inv *model.Invitation) {
	n.l.Info("invitation created",
		zap.String("invitation_id", inv.ID),
		zap.String("team_id", inv.TeamID),
		zap.String("player_id", inv.PlayerID),
		zap.Time("expires_at", inv.ExpiresAt))
}
