package jwt_test

import (
	"strings"
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"

	"github.com/mishel123hanna/sign-language/internal/domain"
	customjwt "github.com/mishel123hanna/sign-language/internal/jwt"
)

const (
	primarySecret = "primary-secret-0123456789abcdef-0123456789abcdef"
	retiredSecret = "retired-secret-0123456789abcdef-0123456789abcdef"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newCodec(t *testing.T, clock *fakeClock) *customjwt.Codec {
	t.Helper()
	ring, err := customjwt.NewKeyring("HS256", customjwt.Key{ID: "primary", Secret: []byte(primarySecret)})
	require.NoError(t, err)
	return customjwt.NewCodec(ring, customjwt.WithClock(clock.Now))
}

func TestCodecRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := newCodec(t, clock)

	template := domain.TokenClaims{
		Subject:   domain.Subject{UserID: 42, Email: "user@example.com"},
		RefreshID: "refresh-jti",
	}
	token, issued, err := codec.Encode(template, time.Hour)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)
	require.NotEmpty(t, issued.TokenID)
	require.Equal(t, clock.t.Add(time.Hour), issued.ExpiresAt)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, issued, decoded)
	require.False(t, decoded.Refresh)
	require.Equal(t, "refresh-jti", decoded.RefreshID)
}

func TestCodecIssuesUniqueTokenIDs(t *testing.T) {
	codec := newCodec(t, &fakeClock{t: time.Now()})
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		_, claims, err := codec.Encode(domain.TokenClaims{Subject: domain.Subject{UserID: 1}}, time.Minute)
		require.NoError(t, err)
		_, dup := seen[claims.TokenID]
		require.False(t, dup)
		seen[claims.TokenID] = struct{}{}
	}
}

func TestCodecRefreshDropsPairing(t *testing.T) {
	codec := newCodec(t, &fakeClock{t: time.Now()})
	token, _, err := codec.Encode(domain.TokenClaims{Refresh: true, RefreshID: "ignored"}, time.Hour)
	require.NoError(t, err)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	require.True(t, decoded.Refresh)
	require.Empty(t, decoded.RefreshID)
}

func TestCodecExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := newCodec(t, clock)

	token, _, err := codec.Encode(domain.TokenClaims{Subject: domain.Subject{UserID: 7}}, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = codec.Decode(token)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = codec.Decode(token)
	require.ErrorIs(t, err, customjwt.ErrTokenExpired)
}

func TestCodecTamperedSignatureIsNotReportedExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := newCodec(t, clock)

	token, _, err := codec.Encode(domain.TokenClaims{Subject: domain.Subject{UserID: 7}}, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Decode(tampered)
	require.ErrorIs(t, err, customjwt.ErrTokenSignature)

	clock.Advance(time.Hour)
	_, err = codec.Decode(tampered)
	require.ErrorIs(t, err, customjwt.ErrTokenSignature)
}

func TestCodecRejectsMalformedInput(t *testing.T) {
	codec := newCodec(t, &fakeClock{t: time.Now()})

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c", "eyJhbGciOiJub25lIn0.eyJqdGkiOiJ4In0."} {
		_, err := codec.Decode(raw)
		require.ErrorIs(t, err, customjwt.ErrTokenMalformed, raw)
	}
}

func TestCodecRequiresTokenIDAndExpiry(t *testing.T) {
	codec := newCodec(t, &fakeClock{t: time.Now()})

	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: []byte(primarySecret)},
		(&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", "primary"),
	)
	require.NoError(t, err)

	noID, err := gojwt.Signed(signer).Claims(gojwt.Claims{Expiry: gojwt.NewNumericDate(time.Now().Add(time.Hour))}).Serialize()
	require.NoError(t, err)
	_, err = codec.Decode(noID)
	require.ErrorIs(t, err, customjwt.ErrTokenMalformed)

	noExpiry, err := gojwt.Signed(signer).Claims(gojwt.Claims{ID: "abc"}).Serialize()
	require.NoError(t, err)
	_, err = codec.Decode(noExpiry)
	require.ErrorIs(t, err, customjwt.ErrTokenMalformed)
}

func TestCodecKeyRotation(t *testing.T) {
	clock := &fakeClock{t: time.Now()}

	oldRing, err := customjwt.NewKeyring("HS256", customjwt.Key{ID: "2023", Secret: []byte(retiredSecret)})
	require.NoError(t, err)
	oldToken, _, err := customjwt.NewCodec(oldRing, customjwt.WithClock(clock.Now)).Encode(domain.TokenClaims{Subject: domain.Subject{UserID: 3}}, time.Hour)
	require.NoError(t, err)

	rotated, err := customjwt.NewKeyring("HS256",
		customjwt.Key{ID: "2024", Secret: []byte(primarySecret)},
		customjwt.Key{ID: "2023", Secret: []byte(retiredSecret)},
	)
	require.NoError(t, err)
	claims, err := customjwt.NewCodec(rotated, customjwt.WithClock(clock.Now)).Decode(oldToken)
	require.NoError(t, err)
	require.Equal(t, int64(3), claims.Subject.UserID)

	// Once the retired key is dropped the kid no longer resolves.
	_, err = newCodec(t, clock).Decode(oldToken)
	require.ErrorIs(t, err, customjwt.ErrTokenMalformed)
}

func TestCodecWrongSecretSameKid(t *testing.T) {
	ring, err := customjwt.NewKeyring("HS256", customjwt.Key{ID: "primary", Secret: []byte(retiredSecret)})
	require.NoError(t, err)
	token, _, err := customjwt.NewCodec(ring).Encode(domain.TokenClaims{}, time.Hour)
	require.NoError(t, err)

	_, err = newCodec(t, &fakeClock{t: time.Now()}).Decode(token)
	require.ErrorIs(t, err, customjwt.ErrTokenSignature)
}

func TestNewKeyringValidation(t *testing.T) {
	_, err := customjwt.NewKeyring("RS256", customjwt.Key{ID: "k", Secret: []byte(primarySecret)})
	require.Error(t, err)

	_, err = customjwt.NewKeyring("HS256", customjwt.Key{ID: "k", Secret: []byte("short")})
	require.Error(t, err)

	_, err = customjwt.NewKeyring("HS512", customjwt.Key{ID: "k", Secret: []byte(primarySecret)})
	require.Error(t, err)

	_, err = customjwt.NewKeyring("HS256",
		customjwt.Key{ID: "k", Secret: []byte(primarySecret)},
		customjwt.Key{ID: "k", Secret: []byte(retiredSecret)},
	)
	require.Error(t, err)
}
