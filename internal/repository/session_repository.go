package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghostreact/markapp/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address, is_revoked, expires_at, created_at`

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.IsRevoked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, ip_address, is_revoked, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		session.UserAgent,
		session.IPAddress,
		session.IsRevoked,
		session.ExpiresAt,
	)
	return err
}

// ListActiveByUser returns the user's non-revoked sessions, newest
// first. The refresh match scans these in order, so the common case
// (the latest session) compares exactly one hash.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND is_revoked = FALSE
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

// ListActive returns every non-revoked session. Only the unscoped
// logout fallback uses this.
func (r *SessionRepository) ListActive(ctx context.Context) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE is_revoked = FALSE
		ORDER BY created_at DESC
	`
	return r.list(ctx, query)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// RevokeIfActive flips is_revoked in a single conditional update. The
// rows-affected check is what makes refresh rotation one-time-use: two
// concurrent exchanges of the same token race to this statement and
// exactly one wins.
func (r *SessionRepository) RevokeIfActive(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE sessions SET is_revoked = TRUE WHERE id = $1 AND is_revoked = FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// DeleteStale removes sessions that are revoked or expired and older
// than the cutoff. Called only by the maintenance worker; the auth
// flow itself never deletes session rows.
func (r *SessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM sessions
		WHERE (is_revoked = TRUE OR expires_at < NOW())
		  AND created_at < $1
	`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
