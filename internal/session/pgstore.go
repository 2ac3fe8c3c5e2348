package session

import (
	"context"
	"time"

	"horsemarket-web/internal/api"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (r *PgStore) Create(ctx context.Context, s *Session) error {
	query := `INSERT INTO web_session (id, token, api_cookie, user_id, user_name, user_email, user_role, created_at, updated_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	userID, name, email, role := userColumns(s.User)
	_, err := r.pool.Exec(ctx, query, s.ID, s.Token, s.APICookie, userID, name, email, role, s.CreatedAt, s.UpdatedAt, s.ExpiresAt)
	return errors.Wrap(err, "insert session")
}

func (r *PgStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT id, token, api_cookie, user_id, user_name, user_email, user_role, created_at, updated_at, expires_at
	          FROM web_session WHERE id = $1`

	var (
		s                         Session
		userID, name, email, role *string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Token, &s.APICookie, &userID, &name, &email, &role,
		&s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select session")
	}

	if userID != nil {
		s.User = &api.User{ID: *userID, Name: deref(name), Email: deref(email), Role: deref(role)}
	}
	return &s, nil
}

func (r *PgStore) Update(ctx context.Context, s *Session) error {
	query := `UPDATE web_session
	          SET token = $2, api_cookie = $3, user_id = $4, user_name = $5, user_email = $6, user_role = $7,
	              updated_at = $8, expires_at = $9
	          WHERE id = $1`
	userID, name, email, role := userColumns(s.User)
	tag, err := r.pool.Exec(ctx, query, s.ID, s.Token, s.APICookie, userID, name, email, role, s.UpdatedAt, s.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, "update session")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM web_session WHERE id = $1`, id)
	return errors.Wrap(err, "delete session")
}

func (r *PgStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM web_session WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, errors.Wrap(err, "delete expired sessions")
	}
	return tag.RowsAffected(), nil
}

func userColumns(u *api.User) (id, name, email, role *string) {
	if u == nil {
		return nil, nil, nil, nil
	}
	return &u.ID, &u.Name, &u.Email, &u.Role
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
