package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/mkotelnikov/courtside/internal/db"
	"github.com/mkotelnikov/courtside/internal/model"
)

type Invitation struct {
	ID           string                 `db:"id"`
	TeamID       string                 `db:"team_id"`
	PlayerID     string                 `db:"player_id"`
	InvitedByID  string                 `db:"invited_by_id"`
	Token        string                 `db:"token"`
	JerseyNumber *int                   `db:"jersey_number"`
	Position     *string                `db:"position"`
	Message      *string                `db:"message"`
	Status       model.InvitationStatus `db:"status"`
	ExpiresAt    time.Time              `db:"expires_at"`
	CreatedAt    *time.Time             `db:"created_at"`
	UpdatedAt    *time.Time             `db:"updated_at"`
	AcceptedAt   *time.Time             `db:"accepted_at"`
	RejectedAt   *time.Time             `db:"rejected_at"`
}

// InvitationTransition moves a PENDING invitation to a terminal status.
type InvitationTransition struct {
	Status     model.InvitationStatus
	UpdatedAt  time.Time
	AcceptedAt *time.Time
	RejectedAt *time.Time
}

type InvitationRepository interface {
	// Create fails with ErrAlreadyExists when a PENDING invitation already
	// exists for the (team, player) pair (partial unique index).
	Create(ctx context.Context, inv *Invitation) error
	Get(ctx context.Context, invitationID string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	FindPending(ctx context.Context, teamID, playerID string) (*Invitation, error)
	// Transition applies the change only while the row is still in `from`;
	// a concurrent transition surfaces as ErrNotFound.
	Transition(ctx context.Context, invitationID string, from model.InvitationStatus, tr *InvitationTransition) (*Invitation, error)
	// ExpireOlderThan marks every PENDING invitation with expires_at before
	// the cutoff as EXPIRED and returns how many rows changed.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type pgxInvitationRepository struct {
	pool *pgxpool.Pool
}

func NewPgxInvitationRepository(pool *pgxpool.Pool) InvitationRepository {
	return &pgxInvitationRepository{pool: pool}
}

var invitationColumns = []string{
	"id", "team_id", "player_id", "invited_by_id", "token",
	"jersey_number", "position", "message", "status", "expires_at",
	"created_at", "updated_at", "accepted_at", "rejected_at",
}

func scanInvitation(row pgx.Row) (*Invitation, error) {
	inv := &Invitation{}
	err := row.Scan(
		&inv.ID,
		&inv.TeamID,
		&inv.PlayerID,
		&inv.InvitedByID,
		&inv.Token,
		&inv.JerseyNumber,
		&inv.Position,
		&inv.Message,
		&inv.Status,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
		&inv.AcceptedAt,
		&inv.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *pgxInvitationRepository) Create(ctx context.Context, inv *Invitation) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team_invitation",
			"id", "team_id", "player_id", "invited_by_id", "token",
			"jersey_number", "position", "message", "status", "expires_at",
		),
		im.Values(
			psql.Arg(inv.ID),
			psql.Arg(inv.TeamID),
			psql.Arg(inv.PlayerID),
			psql.Arg(inv.InvitedByID),
			psql.Arg(inv.Token),
			psql.Arg(inv.JerseyNumber),
			psql.Arg(inv.Position),
			psql.Arg(inv.Message),
			psql.Arg(inv.Status),
			psql.Arg(inv.ExpiresAt),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func (p *pgxInvitationRepository) Get(ctx context.Context, invitationID string) (*Invitation, error) {
	return p.getWhere(ctx, "id", invitationID)
}

func (p *pgxInvitationRepository) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	return p.getWhere(ctx, "token", token)
}

func (p *pgxInvitationRepository) getWhere(ctx context.Context, column, value string) (*Invitation, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(toAnySlice(invitationColumns)...),
		sm.From("team_invitation"),
		sm.Where(psql.Quote(column).EQ(psql.Arg(value))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := scanInvitation(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

func (p *pgxInvitationRepository) FindPending(ctx context.Context, teamID, playerID string) (*Invitation, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(toAnySlice(invitationColumns)...),
		sm.From("team_invitation"),
		sm.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("player_id").EQ(psql.Arg(playerID))).
				And(psql.Quote("status").EQ(psql.Arg(model.InvitationStatusPending))),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := scanInvitation(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

func (p *pgxInvitationRepository) Transition(ctx context.Context, invitationID string, from model.InvitationStatus, tr *InvitationTransition) (*Invitation, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sets := make([]bob.Mod[*dialect.UpdateQuery], 0, 4)
	sets = append(sets,
		um.SetCol("status").ToArg(tr.Status),
		um.SetCol("updated_at").ToArg(tr.UpdatedAt),
	)
	if tr.AcceptedAt != nil {
		sets = append(sets, um.SetCol("accepted_at").ToArg(*tr.AcceptedAt))
	}
	if tr.RejectedAt != nil {
		sets = append(sets, um.SetCol("rejected_at").ToArg(*tr.RejectedAt))
	}

	q := psql.Update(
		um.Table("team_invitation"),
		um.Where(
			psql.Quote("id").EQ(psql.Arg(invitationID)).
				And(psql.Quote("status").EQ(psql.Arg(from))),
		),
		um.Returning(toAnySlice(invitationColumns)...),
	)

	q.Apply(sets...)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := scanInvitation(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

func (p *pgxInvitationRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("team_invitation"),
		um.SetCol("status").ToArg(model.InvitationStatusExpired),
		um.SetCol("updated_at").ToArg(cutoff),
		um.Where(
			psql.Quote("status").EQ(psql.Arg(model.InvitationStatusPending)).
				And(psql.Quote("expires_at").LT(psql.Arg(cutoff))),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return 0, err
	}

	commandTag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	return commandTag.RowsAffected(), nil
}
