// Package authn turns an Authorization header into verified, unrevoked claims.
package authn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mishel123hanna/sign-language/internal/domain"
	customjwt "github.com/mishel123hanna/sign-language/internal/jwt"
	"github.com/mishel123hanna/sign-language/internal/revocation"
)

// Policy selects which credential class an endpoint accepts.
type Policy int

const (
	// RequireAccess accepts access tokens only.
	RequireAccess Policy = iota
	// RequireRefresh accepts refresh tokens only.
	RequireRefresh
	// RequireAccessWithUser accepts access tokens that name a user.
	RequireAccessWithUser
)

func (p Policy) String() string {
	switch p {
	case RequireAccess:
		return "access"
	case RequireRefresh:
		return "refresh"
	case RequireAccessWithUser:
		return "access_with_user"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Reason classifies a rejection.
type Reason string

const (
	MissingCredential     Reason = "missing_credential"
	CredentialInvalid     Reason = "invalid_token"
	CredentialExpired     Reason = "token_expired"
	CredentialRevoked     Reason = "token_revoked"
	WrongCredentialClass  Reason = "wrong_token_type"
	RevocationUnavailable Reason = "revocation_unavailable"
)

var reasonText = map[Reason]string{
	MissingCredential:     "Not authenticated",
	CredentialInvalid:     "Invalid or malformed token",
	CredentialExpired:     "Token has expired",
	CredentialRevoked:     "Token has been revoked",
	WrongCredentialClass:  "Wrong token type for this endpoint",
	RevocationUnavailable: "Token status cannot be verified right now",
}

// Description returns a human readable message for the reason.
func (r Reason) Description() string {
	if text, ok := reasonText[r]; ok {
		return text
	}
	return string(r)
}

// HTTPStatus maps the reason to a response status.
func (r Reason) HTTPStatus() int {
	switch r {
	case CredentialInvalid, CredentialExpired:
		return http.StatusUnauthorized
	case RevocationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusForbidden
	}
}

// Rejection is the error returned for every failed authentication.
type Rejection struct {
	Reason Reason
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Reason, r.Err)
	}
	return string(r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Err }

func reject(reason Reason, err error) *Rejection {
	return &Rejection{Reason: reason, Err: err}
}

// RejectionReason extracts the reason from err. ok is false when err is not
// a rejection.
func RejectionReason(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// Decoder verifies a raw token.
type Decoder interface {
	Decode(raw string) (domain.TokenClaims, error)
}

// Authenticator validates bearer credentials against a revocation store. It
// holds no per-request state.
type Authenticator struct {
	decoder  Decoder
	store    revocation.Store
	failOpen bool
	logger   *zap.Logger
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithFailOpen accepts credentials whose revocation status cannot be read.
func WithFailOpen(enabled bool) Option {
	return func(a *Authenticator) { a.failOpen = enabled }
}

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New constructs an Authenticator.
func New(decoder Decoder, store revocation.Store, opts ...Option) *Authenticator {
	a := &Authenticator{decoder: decoder, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// Authenticate checks the Authorization header value under policy.
func (a *Authenticator) Authenticate(ctx context.Context, header string, policy Policy) (*domain.TokenClaims, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return nil, reject(MissingCredential, nil)
	}
	return a.AuthenticateToken(ctx, raw, policy)
}

// AuthenticateToken checks an already extracted token under policy.
func (a *Authenticator) AuthenticateToken(ctx context.Context, raw string, policy Policy) (*domain.TokenClaims, error) {
	if raw == "" {
		return nil, reject(MissingCredential, nil)
	}

	claims, err := a.decoder.Decode(raw)
	if err != nil {
		if errors.Is(err, customjwt.ErrTokenExpired) {
			return nil, reject(CredentialExpired, err)
		}
		return nil, reject(CredentialInvalid, err)
	}

	revoked, err := a.store.IsRevoked(ctx, claims.TokenID)
	switch {
	case err != nil && a.failOpen:
		a.logger.Warn("revocation status unavailable, accepting token",
			zap.String("jti", claims.TokenID),
			zap.Error(err),
		)
	case err != nil:
		return nil, reject(RevocationUnavailable, err)
	case revoked:
		return nil, reject(CredentialRevoked, nil)
	}

	switch policy {
	case RequireRefresh:
		if !claims.Refresh {
			return nil, reject(WrongCredentialClass, errors.New("refresh token required"))
		}
	case RequireAccess, RequireAccessWithUser:
		if claims.Refresh {
			return nil, reject(WrongCredentialClass, errors.New("access token required"))
		}
		if policy == RequireAccessWithUser && !claims.HasUser() {
			return nil, reject(CredentialInvalid, errors.New("token carries no user id"))
		}
	default:
		return nil, reject(CredentialInvalid, fmt.Errorf("unknown policy %s", policy))
	}

	return &claims, nil
}
