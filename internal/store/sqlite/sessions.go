package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// sessionColumns is the ordered list of columns selected in session queries.
// Must match the scan order in scanSession.
const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address,
	expires_at, created_at, last_used_at, revoked_at`

// scanSession scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Session.
func scanSession(scanner interface{ Scan(dest ...any) error }) (*domain.Session, error) {
	var sess domain.Session

	var (
		userAgent  sql.NullString
		ipAddress  sql.NullString
		expiresAt  string
		createdAt  string
		lastUsedAt string
		revokedAt  sql.NullString
	)

	err := scanner.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.RefreshTokenHash,
		&userAgent,
		&ipAddress,
		&expiresAt,
		&createdAt,
		&lastUsedAt,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	if userAgent.Valid {
		sess.UserAgent = userAgent.String
	}
	if ipAddress.Valid {
		sess.IPAddress = ipAddress.String
	}

	if sess.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sess.LastUsedAt, err = parseTime(lastUsedAt); err != nil {
		return nil, err
	}
	if sess.RevokedAt, err = parseNullableTime(revokedAt); err != nil {
		return nil, err
	}

	return &sess, nil
}

// CreateSession inserts a refresh session.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	now := time.Now().UTC()
	sess.CreatedAt, sess.LastUsedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, user_id, refresh_token_hash, user_agent, ip_address,
			expires_at, created_at, last_used_at, revoked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		sess.ID, sess.UserID, sess.RefreshTokenHash,
		nullString(sess.UserAgent), nullString(sess.IPAddress),
		formatTime(sess.ExpiresAt), formatTime(sess.CreatedAt), formatTime(sess.LastUsedAt),
	)
	return classify(err)
}

// GetSessionByTokenHash looks up a session by the hash of its refresh token.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = ?`, tokenHash))
	if err != nil {
		return nil, classify(err)
	}
	return sess, nil
}

// RotateSession swaps in a new refresh token hash and extends the expiry.
// Rotation stamps last_used_at; a rotated-out hash can never refresh again.
func (s *Store) RotateSession(ctx context.Context, sessionID, newTokenHash string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET refresh_token_hash = ?, expires_at = ?, last_used_at = ?
		WHERE id = ? AND revoked_at IS NULL`,
		newTokenHash, formatTime(expiresAt), formatTime(time.Now().UTC()), sessionID,
	)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RevokeSession marks one session as revoked.
func (s *Store) RevokeSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ?
		WHERE id = ? AND revoked_at IS NULL`,
		formatTime(time.Now().UTC()), sessionID,
	)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RevokeUserSessions revokes every active session of a user.
func (s *Store) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ?
		WHERE user_id = ? AND revoked_at IS NULL`,
		formatTime(time.Now().UTC()), userID,
	)
	return classify(err)
}

// DeleteExpiredSessions removes sessions that expired or were revoked before
// the cutoff. Returns the number of rows removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)`,
		formatTime(cutoff), formatTime(cutoff),
	)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}
