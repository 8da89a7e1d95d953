package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"

	"github.com/mkotelnikov/courtside/internal/db"
)

type TeamMember struct {
	ID           string  `db:"id"`
	TeamID       string  `db:"team_id"`
	PlayerID     string  `db:"player_id"`
	JerseyNumber *int    `db:"jersey_number"`
	Position     *string `db:"position"`
}

type MemberRepository interface {
	// Create fails with ErrAlreadyExists when the (team, player) pair is
	// already rostered.
	Create(ctx context.Context, member *TeamMember) error
	Get(ctx context.Context, teamID, playerID string) (*TeamMember, error)
	ListByTeam(ctx context.Context, teamID string) ([]*TeamMember, error)
}

type pgxMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgxMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &pgxMemberRepository{pool: pool}
}

func (p *pgxMemberRepository) Create(ctx context.Context, member *TeamMember) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team_member", "id", "team_id", "player_id", "jersey_number", "position"),
		im.Values(
			psql.Arg(member.ID),
			psql.Arg(member.TeamID),
			psql.Arg(member.PlayerID),
			psql.Arg(member.JerseyNumber),
			psql.Arg(member.Position),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func (p *pgxMemberRepository) Get(ctx context.Context, teamID, playerID string) (*TeamMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "team_id", "player_id", "jersey_number", "position"),
		sm.From("team_member"),
		sm.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("player_id").EQ(psql.Arg(playerID))),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m := &TeamMember{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&m.ID,
		&m.TeamID,
		&m.PlayerID,
		&m.JerseyNumber,
		&m.Position,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (p *pgxMemberRepository) ListByTeam(ctx context.Context, teamID string) ([]*TeamMember, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "team_id", "player_id", "jersey_number", "position"),
		sm.From("team_member"),
		sm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*TeamMember, error) {
		m := &TeamMember{}
		if err = row.Scan(&m.ID, &m.TeamID, &m.PlayerID, &m.JerseyNumber, &m.Position); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	return members, nil
}
