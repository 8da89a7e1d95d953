package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"

	"github.com/mkotelnikov/courtside/internal/db"
)

type League struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

type Season struct {
	ID       string `db:"id"`
	LeagueID string `db:"league_id"`
	Name     string `db:"name"`
}

type LeagueRepository interface {
	Create(ctx context.Context, league *League) error
	Get(ctx context.Context, leagueID string) (*League, error)
	CreateSeason(ctx context.Context, season *Season) error
	GetSeason(ctx context.Context, seasonID string) (*Season, error)
	AddAdmin(ctx context.Context, leagueID, userID string) error
	IsAdmin(ctx context.Context, leagueID, userID string) (bool, error)
}

type pgxLeagueRepository struct {
	pool *pgxpool.Pool
}

func NewPgxLeagueRepository(pool *pgxpool.Pool) LeagueRepository {
	return &pgxLeagueRepository{pool: pool}
}

func (p *pgxLeagueRepository) Create(ctx context.Context, league *League) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("league", "id", "name"),
		im.Values(psql.Arg(league.ID), psql.Arg(league.Name)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func (p *pgxLeagueRepository) Get(ctx context.Context, leagueID string) (*League, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "name"),
		sm.From("league"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(leagueID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	l := &League{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&l.ID, &l.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (p *pgxLeagueRepository) CreateSeason(ctx context.Context, season *Season) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("season", "id", "league_id", "name"),
		im.Values(psql.Arg(season.ID), psql.Arg(season.LeagueID), psql.Arg(season.Name)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func (p *pgxLeagueRepository) GetSeason(ctx context.Context, seasonID string) (*Season, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "league_id", "name"),
		sm.From("season"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(seasonID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	s := &Season{}
	if err = e.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.LeagueID, &s.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (p *pgxLeagueRepository) AddAdmin(ctx context.Context, leagueID, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("league_admin", "league_id", "user_id"),
		im.Values(psql.Arg(leagueID), psql.Arg(userID)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func (p *pgxLeagueRepository) IsAdmin(ctx context.Context, leagueID, userID string) (bool, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("league_id"),
		sm.From("league_admin"),
		sm.Where(
			psql.Quote("league_id").EQ(psql.Arg(leagueID)).
				And(psql.Quote("user_id").EQ(psql.Arg(userID))),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return false, err
	}

	var id string
	if err = e.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}
