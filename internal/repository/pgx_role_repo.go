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
	"github.com/mkotelnikov/courtside/internal/model"
)

type TeamRole struct {
	ID           string              `db:"id"`
	TeamID       string              `db:"team_id"`
	Name         string              `db:"name"`
	Capabilities model.CapabilitySet `db:"-"`
}

type RoleRepository interface {
	Create(ctx context.Context, role *TeamRole) error
	Get(ctx context.Context, roleID string) (*TeamRole, error)
	// ListUserRoles returns every role the user is assigned on the team.
	ListUserRoles(ctx context.Context, teamID, userID string) ([]*TeamRole, error)
	AssignStaff(ctx context.Context, teamID, userID, roleID string) error
}

type pgxRoleRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &pgxRoleRepository{pool: pool}
}

var roleColumns = []string{
	"id", "team_id", "name",
	"manage_team", "manage_roster", "track_stats", "view_stats", "share_stats",
}

func scanRole(row pgx.Row) (*TeamRole, error) {
	r := &TeamRole{}
	err := row.Scan(
		&r.ID,
		&r.TeamID,
		&r.Name,
		&r.Capabilities.ManageTeam,
		&r.Capabilities.ManageRoster,
		&r.Capabilities.TrackStats,
		&r.Capabilities.ViewStats,
		&r.Capabilities.ShareStats,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (p *pgxRoleRepository) Create(ctx context.Context, role *TeamRole) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team_role", roleColumns...),
		im.Values(
			psql.Arg(role.ID),
			psql.Arg(role.TeamID),
			psql.Arg(role.Name),
			psql.Arg(role.Capabilities.ManageTeam),
			psql.Arg(role.Capabilities.ManageRoster),
			psql.Arg(role.Capabilities.TrackStats),
			psql.Arg(role.Capabilities.ViewStats),
			psql.Arg(role.Capabilities.ShareStats),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	// Unique (team_id, name) keeps role names unique within a team.
	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func (p *pgxRoleRepository) Get(ctx context.Context, roleID string) (*TeamRole, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(toAnySlice(roleColumns)...),
		sm.From("team_role"),
		sm.Where(psql.Quote("id").EQ(psql.Arg(roleID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	role, err := scanRole(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return role, err
}

func (p *pgxRoleRepository) ListUserRoles(ctx context.Context, teamID, userID string) ([]*TeamRole, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns(toAnySlice(roleColumns)...),
		sm.From("team_role"),
		sm.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("id").In(psql.Select(
					sm.Columns("role_id"),
					sm.From("team_staff"),
					sm.Where(
						psql.Quote("team_id").EQ(psql.Arg(teamID)).
							And(psql.Quote("user_id").EQ(psql.Arg(userID))),
					),
				))),
		),
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

	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*TeamRole, error) {
		return scanRole(row)
	})
	if err != nil {
		return nil, err
	}

	return roles, nil
}

func (p *pgxRoleRepository) AssignStaff(ctx context.Context, teamID, userID, roleID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team_staff", "team_id", "user_id", "role_id"),
		im.Values(psql.Arg(teamID), psql.Arg(userID), psql.Arg(roleID)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func toAnySlice(cols []string) []any {
	out := make([]any, 0, len(cols))
	for _, c := range cols {
		out = append(out, c)
	}
	return out
}
