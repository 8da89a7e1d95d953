package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"

	"github.com/mkotelnikov/courtside/internal/db"
	"github.com/mkotelnikov/courtside/internal/model"
)

type User struct {
	ID           string           `db:"id"`
	Username     string           `db:"username"`
	Email        string           `db:"email"`
	PasswordHash string           `db:"password_hash"`
	SystemRole   model.SystemRole `db:"system_role"`
	Managed      bool             `db:"managed"`
	CreatedAt    *time.Time       `db:"created_at"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, userID string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

type pgxUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgxUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgxUserRepository{pool: pool}
}

func (p *pgxUserRepository) Create(ctx context.Context, user *User) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("users", "id", "username", "email", "password_hash", "system_role", "managed"),
		im.Values(
			psql.Arg(user.ID),
			psql.Arg(user.Username),
			psql.Arg(user.Email),
			psql.Arg(user.PasswordHash),
			psql.Arg(user.SystemRole),
			psql.Arg(user.Managed),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return mapUniqueViolation(err)
}

func (p *pgxUserRepository) Get(ctx context.Context, userID string) (*User, error) {
	return p.getBy(ctx, "id", userID)
}

func (p *pgxUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return p.getBy(ctx, "username", username)
}

func (p *pgxUserRepository) getBy(ctx context.Context, column, value string) (*User, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("id", "username", "email", "password_hash", "system_role", "managed", "created_at"),
		sm.From("users"),
		sm.Where(psql.Quote(column).EQ(psql.Arg(value))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	u := &User{}
	if err = e.QueryRow(ctx, sql, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.SystemRole,
		&u.Managed,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
