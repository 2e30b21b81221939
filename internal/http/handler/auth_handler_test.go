package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func postForm(f *fixture, path string, form url.Values, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func get(f *fixture, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestAccountLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	w := postForm(f, "/auth/signup", url.Values{"username": {"Alice"}, "email": {"Alice@Example.com"}, "password": {"s3cret-pass"}}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	require.Equal(t, "alice", created["username"])
	require.Equal(t, "alice@example.com", created["email"])
	require.Equal(t, true, created["is_active"])
	require.NotContains(t, created, "password_hash")

	w = postForm(f, "/auth/signup", url.Values{"username": {"alice2"}, "email": {"alice@example.com"}, "password": {"s3cret-pass"}}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postForm(f, "/auth/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong-pass"}}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = postForm(f, "/auth/login", url.Values{"email": {"alice@example.com"}, "password": {"s3cret-pass"}}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode(t, w)
	require.Equal(t, "bearer", login["token_type"])
	access := login["access_token"].(string)
	refresh := login["refresh_token"].(string)

	w = get(f, "/auth/me", access)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", decode(t, w)["username"])

	w = get(f, "/auth/refresh_token", refresh)
	require.Equal(t, http.StatusOK, w.Code)
	renewed := decode(t, w)["access_token"].(string)
	require.NotEqual(t, access, renewed)

	// A refresh token is not an access token and vice versa.
	require.Equal(t, http.StatusForbidden, get(f, "/auth/me", refresh).Code)
	require.Equal(t, http.StatusForbidden, get(f, "/auth/refresh_token", access).Code)

	w = postForm(f, "/auth/logout", url.Values{}, access)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(f, "/auth/me", access)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "token_revoked", decode(t, w)["error"])

	// Logout also revokes the refresh token issued with the access token.
	w = get(f, "/auth/refresh_token", refresh)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "token_revoked", decode(t, w)["error"])

	// The renewed access token shares the revoked refresh pairing but its own jti is live.
	require.Equal(t, http.StatusOK, get(f, "/auth/me", renewed).Code)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t, nil)

	w := postForm(f, "/auth/signup", url.Values{"username": {"bob"}}, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = postForm(f, "/auth/signup", url.Values{"username": {"admin"}, "email": {"admin@example.com"}, "password": {"s3cret-pass"}}, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "validation_error", decode(t, w)["error"])

	w = postForm(f, "/auth/signup", url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"123"}}, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMeRequiresCredential(t *testing.T) {
	f := newFixture(t, nil)

	w := get(f, "/auth/me", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "missing_credential", decode(t, w)["error"])

	w = get(f, "/auth/me", "not.a.token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid_token", decode(t, w)["error"])
}
