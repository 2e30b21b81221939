package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mishel123hanna/sign-language/internal/config"
	"github.com/mishel123hanna/sign-language/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterBlocksBurst(t *testing.T) {
	limiter := middleware.NewRateLimiter(10, "/health")
	router := gin.New()
	router.Use(limiter.Handler())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Burst is one request for a budget of ten per minute.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "rate_limited")

	for i := 0; i < 3; i++ {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 1, limiter.Clients())
}

func TestRateLimiterTracksClientsSeparately(t *testing.T) {
	limiter := middleware.NewRateLimiter(10)
	router := gin.New()
	router.Use(limiter.Handler())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	var codes []int
	for i := 0; i < 5; i++ {
		codes = append(codes, call("10.0.0.1:1000"))
	}
	require.Equal(t, []int{200, 429, 429, 429, 429}, codes)
	require.Equal(t, 1, limiter.Clients())

	require.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
	require.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1000"))
	require.Equal(t, 2, limiter.Clients())
}

func TestRateLimiterDisabled(t *testing.T) {
	var limiter *middleware.RateLimiter = middleware.NewRateLimiter(0)
	require.Nil(t, limiter)

	router := gin.New()
	router.Use(limiter.Handler())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestCORS(t *testing.T) {
	cfg := config.Config{
		CORSAllowedOrigins:   []string{"http://localhost:3000/"},
		CORSAllowedMethods:   []string{"GET", "POST"},
		CORSAllowedHeaders:   []string{"Authorization"},
		CORSAllowCredentials: true,
	}
	router := gin.New()
	router.Use(middleware.CORS(cfg))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
