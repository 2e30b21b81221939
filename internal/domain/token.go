package domain

import "time"

// Subject identifies the user a credential was issued to.
type Subject struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// TokenClaims is the decoded content of an access or refresh credential.
type TokenClaims struct {
	Subject   Subject
	ExpiresAt time.Time
	IssuedAt  time.Time
	// TokenID is the jti claim and the unit of revocation.
	TokenID string
	Refresh bool
	// RefreshID pairs an access token with the refresh token issued alongside it.
	RefreshID string
}

// HasUser reports whether the claims name a concrete user.
func (c TokenClaims) HasUser() bool {
	return c.Subject.UserID != 0
}
