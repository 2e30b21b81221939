package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mishel123hanna/sign-language/internal/authn"
	"github.com/mishel123hanna/sign-language/internal/domain"
	"github.com/mishel123hanna/sign-language/internal/http/middleware"
	customjwt "github.com/mishel123hanna/sign-language/internal/jwt"
	"github.com/mishel123hanna/sign-language/internal/revocation"
)

func newRouter(t *testing.T) (*gin.Engine, *customjwt.Codec) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ring, err := customjwt.NewKeyring("HS256", customjwt.Key{ID: "k1", Secret: []byte("middleware-secret-0123456789abcdef-0123")})
	require.NoError(t, err)
	codec := customjwt.NewCodec(ring)
	auth := middleware.NewAuth(authn.New(codec, revocation.NewMemoryStore(time.Hour)))

	router := gin.New()
	router.GET("/me", auth.RequireAccess(), func(c *gin.Context) {
		claims, ok := middleware.GetClaims(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.Subject.UserID})
	})
	router.GET("/refresh", auth.RequireRefresh(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, codec
}

func do(router *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireAccess(t *testing.T) {
	router, codec := newRouter(t)
	access, _, err := codec.Encode(domain.TokenClaims{Subject: domain.Subject{UserID: 3}}, time.Hour)
	require.NoError(t, err)
	refresh, _, err := codec.Encode(domain.TokenClaims{Subject: domain.Subject{UserID: 3}, Refresh: true}, time.Hour)
	require.NoError(t, err)

	rec := do(router, "/me", "Bearer "+access)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user_id":3}`, rec.Body.String())

	rec = do(router, "/me", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "missing_credential", body["error"])

	rec = do(router, "/me", "Bearer garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = do(router, "/me", "Bearer "+refresh)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, "/refresh", "Bearer "+refresh)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, "/refresh", "Bearer "+access)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
