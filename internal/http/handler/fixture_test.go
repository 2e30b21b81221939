package handler_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mishel123hanna/sign-language/internal/ai"
	"github.com/mishel123hanna/sign-language/internal/authn"
	"github.com/mishel123hanna/sign-language/internal/config"
	"github.com/mishel123hanna/sign-language/internal/domain"
	"github.com/mishel123hanna/sign-language/internal/http/handler"
	"github.com/mishel123hanna/sign-language/internal/http/middleware"
	customjwt "github.com/mishel123hanna/sign-language/internal/jwt"
	"github.com/mishel123hanna/sign-language/internal/revocation"
	"github.com/mishel123hanna/sign-language/internal/service"
	"github.com/mishel123hanna/sign-language/internal/stream"
	"github.com/mishel123hanna/sign-language/internal/video"
)

const handlerSecret = "handler-test-secret-0123456789abcdef-0123"

type fixture struct {
	engine       *gin.Engine
	codec        *customjwt.Codec
	store        *revocation.MemoryStore
	users        *userRepo
	history      *historyRepo
	translations *service.TranslationService
	hub          *stream.Hub
	videoDir     string
}

func newFixture(t *testing.T, translator handler.FrameTranslator) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ring, err := customjwt.NewKeyring("HS256", customjwt.Key{ID: "primary", Secret: []byte(handlerSecret)})
	require.NoError(t, err)
	codec := customjwt.NewCodec(ring)
	store := revocation.NewMemoryStore(time.Hour)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	dir := t.TempDir()
	sample := filepath.Join(dir, "test.mp4")
	require.NoError(t, os.WriteFile(sample, []byte("sample-video"), 0o644))
	videos, err := video.NewStore(dir, sample, zap.NewNop())
	require.NoError(t, err)

	cfg := config.Config{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 48 * time.Hour,
		MaxTextLength:   50,
		WSMaxFrameBytes: 1 << 16,
	}

	users := &userRepo{users: map[int64]domain.User{}}
	history := &historyRepo{}
	signs := signRepo{{ID: 1, Name: "hello", Description: "wave", LanguageCode: "ar"}}

	authSvc := service.NewAuthService(users, codec, store, node, cfg, zap.NewNop())
	translations := service.NewTranslationService(ai.NewMockClient(sample, videos, ai.WithCadence(0)), videos, users, history, signs, node, cfg, zap.NewNop())
	t.Cleanup(translations.Wait)
	if translator == nil {
		translator = translations
	}

	authenticator := authn.New(codec, store)
	auth := middleware.NewAuth(authenticator)
	hub := stream.NewHub(zap.NewNop())

	authHandler := handler.NewAuthHandler(authSvc)
	translateHandler := handler.NewTranslateHandler(translations)
	streamHandler := handler.NewStreamHandler(authenticator, translator, hub, cfg, zap.NewNop())

	r := gin.New()
	a := r.Group("/auth")
	a.POST("/signup", authHandler.Signup)
	a.POST("/login", authHandler.Login)
	a.GET("/refresh_token", auth.RequireRefresh(), authHandler.Refresh)
	a.POST("/logout", auth.RequireAccess(), authHandler.Logout)
	a.GET("/me", auth.RequireAccess(), authHandler.Me)
	r.POST("/generate-video/", auth.RequireAccess(), translateHandler.GenerateVideo)
	r.GET("/download-video/:filename", translateHandler.DownloadVideo)
	r.GET("/user-history/", auth.RequireAccess(), translateHandler.History)
	r.GET("/available-signs/", translateHandler.AvailableSigns)
	r.GET("/ws/translate", streamHandler.Translate)
	r.GET("/ws-docs", streamHandler.Docs)

	return &fixture{
		engine:       r,
		codec:        codec,
		store:        store,
		users:        users,
		history:      history,
		translations: translations,
		hub:          hub,
		videoDir:     dir,
	}
}

// accessToken seeds an active user and returns an access token for it.
func (f *fixture) accessToken(t *testing.T, id int64) string {
	t.Helper()
	f.users.put(domain.User{ID: id, Username: fmt.Sprintf("user%d", id), Email: fmt.Sprintf("user%d@example.com", id), IsActive: true})
	token, _, err := f.codec.Encode(domain.TokenClaims{Subject: domain.Subject{UserID: id, Email: fmt.Sprintf("user%d@example.com", id)}}, time.Hour)
	require.NoError(t, err)
	return token
}

type userRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

func (r *userRepo) put(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *userRepo) find(match func(domain.User) bool) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	u.CreatedAt = time.Now().UTC()
	r.put(u)
	return u, nil
}

type historyRepo struct {
	mu      sync.Mutex
	entries []domain.TranslationHistory
}

func (r *historyRepo) Create(_ context.Context, e domain.TranslationHistory) (domain.TranslationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *historyRepo) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.TranslationHistory, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var mine []domain.TranslationHistory
	for _, e := range r.entries {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].ID > mine[j].ID })
	total := len(mine)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return mine[offset:end], total, nil
}

func (r *historyRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type signRepo []domain.SignGesture

func (r signRepo) ListByLanguage(_ context.Context, lang string) ([]domain.SignGesture, error) {
	var out []domain.SignGesture
	for _, s := range r {
		if s.LanguageCode == lang {
			out = append(out, s)
		}
	}
	return out, nil
}
