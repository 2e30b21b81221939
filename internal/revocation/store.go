// Package revocation tracks credentials that were revoked before they expired.
package revocation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps backend failures. Callers decide whether to fail
	// open or closed.
	ErrUnavailable = errors.New("revocation store unavailable")
	// ErrEmptyTokenID is returned when revoking without a token id.
	ErrEmptyTokenID = errors.New("token id is empty")
)

// DefaultTTL bounds how long a revoked access token is remembered. It must
// not be shorter than the access token lifetime.
const DefaultTTL = time.Hour

// Store records revoked token ids until a deadline.
type Store interface {
	// Revoke marks tokenID revoked for the store's TTL. Repeating the call
	// refreshes the deadline.
	Revoke(ctx context.Context, tokenID string) error
	// RevokeUntil marks tokenID revoked until the given instant.
	RevokeUntil(ctx context.Context, tokenID string, until time.Time) error
	// IsRevoked reports whether tokenID has a deadline in the future.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
