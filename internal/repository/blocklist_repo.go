package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mishel123hanna/sign-language/internal/revocation"
)

// PostgresBlocklist implements revocation.Store on the token_blocklist table.
type PostgresBlocklist struct {
	db      *pgxpool.Pool
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

var _ revocation.Store = (*PostgresBlocklist)(nil)

// NewPostgresBlocklist constructs the store. timeout bounds each statement.
func NewPostgresBlocklist(pool *pgxpool.Pool, ttl, timeout time.Duration) *PostgresBlocklist {
	if ttl <= 0 {
		ttl = revocation.DefaultTTL
	}
	return &PostgresBlocklist{db: pool, ttl: ttl, timeout: timeout, now: time.Now}
}

const upsertBlocklistSQL = `INSERT INTO token_blocklist (jti, revoked_at, expires_at)
VALUES ($1, now(), $2)
ON CONFLICT (jti) DO UPDATE SET revoked_at = EXCLUDED.revoked_at, expires_at = EXCLUDED.expires_at`

// Revoke blocks the id for the default TTL.
func (s *PostgresBlocklist) Revoke(ctx context.Context, tokenID string) error {
	return s.RevokeUntil(ctx, tokenID, s.now().Add(s.ttl))
}

// RevokeUntil upserts the id with the given expiry and sweeps expired rows.
func (s *PostgresBlocklist) RevokeUntil(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return revocation.ErrEmptyTokenID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.Exec(ctx, upsertBlocklistSQL, tokenID, until.UTC()); err != nil {
		return fmt.Errorf("%w: persist: %v", revocation.ErrUnavailable, err)
	}
	// Expired rows are only garbage; a failed sweep does not fail the revoke.
	_, _ = s.db.Exec(ctx, `DELETE FROM token_blocklist WHERE expires_at <= now()`)
	return nil
}

// IsRevoked reports whether an unexpired row exists for the id.
func (s *PostgresBlocklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var revoked bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_blocklist WHERE jti = $1 AND expires_at > now())`,
		tokenID,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("%w: lookup: %v", revocation.ErrUnavailable, err)
	}
	return revoked, nil
}

func (s *PostgresBlocklist) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
