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

type Team struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	SeasonID string `db:"season_id"`
	LeagueID string `db:"league_id"`
}

type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	// Get resolves the owning league through the team's season.
	Get(ctx context.Context, teamID string) (*Team, error)
}

type pgxTeamRepository struct {
	pool *pgxpool.Pool
}

func NewPgxTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &pgxTeamRepository{pool: pool}
}

func (p *pgxTeamRepository) Create(ctx context.Context, team *Team) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team", "id", "name", "season_id"),
		im.Values(psql.Arg(team.ID), psql.Arg(team.Name), psql.Arg(team.SeasonID)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func (p *pgxTeamRepository) Get(ctx context.Context, teamID string) (*Team, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "name", "season_id"),
		sm.From("team"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(teamID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	t := &Team{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.Name, &t.SeasonID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lq := psql.Select(
		sm.Columns("league_id"),
		sm.From("season"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(t.SeasonID))),
	)

	sql, args, err = lq.Build(ctx)
	if err != nil {
		return nil, err
	}

	if err = e.QueryRow(ctx, sql, args...).Scan(&t.LeagueID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return t, nil
}
