package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/posts-project/posts/internal/platform/db"
)

const uniqueViolation = "23505"

// CredentialStore persists user accounts.
type CredentialStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}

// SessionStore persists issued access tokens.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *ActiveSession) error
	// FindSessionByUsername returns the newest session for username.
	FindSessionByUsername(ctx context.Context, username string) (*ActiveSession, error)
	FindSessionByToken(ctx context.Context, token string) (*ActiveSession, error)
	DeleteSessionsByToken(ctx context.Context, token string) (int64, error)
	DeleteSession(ctx context.Context, id int64) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Repository defines persistence operations for the auth module.
type Repository interface {
	CredentialStore
	SessionStore
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateUser inserts a user unless the email is taken.
func (r *PGRepository) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	user := &User{Email: email, PasswordHash: passwordHash}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists); err != nil {
			return fmt.Errorf("auth: check user: %w", err)
		}
		if exists {
			return ErrUserExists
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO users (email, password) VALUES ($1, $2) RETURNING id`,
			email, passwordHash,
		).Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUserExists
			}
			return fmt.Errorf("auth: insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByEmail fetches a user by email.
func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return user, nil
}

// CreateSession persists sess and sets its ID.
func (r *PGRepository) CreateSession(ctx context.Context, sess *ActiveSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_tokens (user_id, username, token, expiry_time) VALUES ($1, $2, $3, $4) RETURNING id`,
		sess.UserID, sess.Username, sess.Token, utcPtr(sess.Expiry),
	).Scan(&sess.ID)
	if err != nil {
		return fmt.Errorf("auth: insert session: %w", err)
	}
	return nil
}

const sessionColumns = `id, user_id, username, token, expiry_time`

// FindSessionByUsername returns the newest session row for username.
func (r *PGRepository) FindSessionByUsername(ctx context.Context, username string) (*ActiveSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM user_tokens WHERE username = $1
		 ORDER BY expiry_time DESC NULLS LAST, id DESC LIMIT 1`,
		username,
	)
	return scanSession(row)
}

// FindSessionByToken returns the session row holding token.
func (r *PGRepository) FindSessionByToken(ctx context.Context, token string) (*ActiveSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM user_tokens WHERE token = $1 ORDER BY id DESC LIMIT 1`,
		token,
	)
	return scanSession(row)
}

// DeleteSessionsByToken removes every row holding token.
func (r *PGRepository) DeleteSessionsByToken(ctx context.Context, token string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_tokens WHERE token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("auth: delete session by token: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteSession removes a single session row.
func (r *PGRepository) DeleteSession(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM user_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes rows whose expiry is at or before now.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_tokens WHERE expiry_time IS NOT NULL AND expiry_time <= $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("auth: delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*ActiveSession, error) {
	sess := &ActiveSession{}
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Username, &sess.Token, &sess.Expiry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("auth: scan session: %w", err)
	}
	return sess, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ Repository = (*PGRepository)(nil)
