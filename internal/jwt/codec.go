package jwt

import (
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/mishel123hanna/sign-language/internal/domain"
)

var (
	// ErrTokenMalformed covers anything that is not a well formed token signed
	// with an accepted algorithm and key.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature means the signature does not match the content.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenExpired means the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
)

// payload is the private part of the claim set.
type payload struct {
	User      domain.Subject `json:"user"`
	Refresh   bool           `json:"refresh"`
	RefreshID string         `json:"rjti,omitempty"`
}

// Codec signs and verifies HMAC compact JWS credentials.
type Codec struct {
	keys *Keyring
	now  func() time.Time
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock replaces the wall clock used for iat, exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec constructs a codec over the keyring.
func NewCodec(keys *Keyring, opts ...Option) *Codec {
	c := &Codec{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode issues a token for the template claims. TokenID, IssuedAt and
// ExpiresAt are always generated; the returned claims are what Decode yields.
func (c *Codec) Encode(template domain.TokenClaims, ttl time.Duration) (string, domain.TokenClaims, error) {
	if ttl <= 0 {
		return "", domain.TokenClaims{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	key := c.keys.Active()
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: c.keys.Algorithm(), Key: key.Secret},
		(&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", key.ID),
	)
	if err != nil {
		return "", domain.TokenClaims{}, fmt.Errorf("new signer: %w", err)
	}

	// NumericDate has second precision.
	now := c.now().UTC().Truncate(time.Second)
	claims := template
	claims.TokenID = uuid.NewString()
	claims.IssuedAt = now
	claims.ExpiresAt = now.Add(ttl)
	if claims.Refresh {
		claims.RefreshID = ""
	}

	std := gojwt.Claims{
		ID:       claims.TokenID,
		IssuedAt: gojwt.NewNumericDate(claims.IssuedAt),
		Expiry:   gojwt.NewNumericDate(claims.ExpiresAt),
	}
	custom := payload{User: claims.Subject, Refresh: claims.Refresh, RefreshID: claims.RefreshID}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", domain.TokenClaims{}, fmt.Errorf("serialize jwt: %w", err)
	}
	return token, claims, nil
}

// Decode verifies the signature and then the expiry of raw.
func (c *Codec) Decode(raw string) (domain.TokenClaims, error) {
	parsed, err := gojwt.ParseSigned(raw, []gojose.SignatureAlgorithm{c.keys.Algorithm()})
	if err != nil {
		return domain.TokenClaims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if len(parsed.Headers) != 1 {
		return domain.TokenClaims{}, fmt.Errorf("%w: expected one signature", ErrTokenMalformed)
	}

	key, ok := c.keys.Lookup(parsed.Headers[0].KeyID)
	if !ok {
		return domain.TokenClaims{}, fmt.Errorf("%w: unknown key id %q", ErrTokenMalformed, parsed.Headers[0].KeyID)
	}

	var std gojwt.Claims
	var custom payload
	if err := parsed.Claims(key.Secret, &std, &custom); err != nil {
		if errors.Is(err, gojose.ErrCryptoFailure) {
			return domain.TokenClaims{}, ErrTokenSignature
		}
		return domain.TokenClaims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if std.ID == "" || std.Expiry == nil {
		return domain.TokenClaims{}, fmt.Errorf("%w: jti and exp are required", ErrTokenMalformed)
	}

	if err := std.ValidateWithLeeway(gojwt.Expected{Time: c.now()}, 0); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return domain.TokenClaims{}, ErrTokenExpired
		}
		return domain.TokenClaims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims := domain.TokenClaims{
		Subject:   custom.User,
		ExpiresAt: std.Expiry.Time().UTC(),
		TokenID:   std.ID,
		Refresh:   custom.Refresh,
		RefreshID: custom.RefreshID,
	}
	if std.IssuedAt != nil {
		claims.IssuedAt = std.IssuedAt.Time().UTC()
	}
	return claims, nil
}
