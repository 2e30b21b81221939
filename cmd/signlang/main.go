package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/mishel123hanna/sign-language/internal/adapter/cache"
	"github.com/mishel123hanna/sign-language/internal/ai"
	"github.com/mishel123hanna/sign-language/internal/authn"
	"github.com/mishel123hanna/sign-language/internal/bootstrap"
	"github.com/mishel123hanna/sign-language/internal/config"
	httptransport "github.com/mishel123hanna/sign-language/internal/http"
	"github.com/mishel123hanna/sign-language/internal/http/handler"
	httpmiddleware "github.com/mishel123hanna/sign-language/internal/http/middleware"
	customjwt "github.com/mishel123hanna/sign-language/internal/jwt"
	apimiddleware "github.com/mishel123hanna/sign-language/internal/middleware"
	"github.com/mishel123hanna/sign-language/internal/repository"
	"github.com/mishel123hanna/sign-language/internal/revocation"
	"github.com/mishel123hanna/sign-language/internal/server"
	"github.com/mishel123hanna/sign-language/internal/service"
	"github.com/mishel123hanna/sign-language/internal/stream"
	"github.com/mishel123hanna/sign-language/internal/telemetry"
	"github.com/mishel123hanna/sign-language/internal/video"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newHistoryRepository,
			newSignRepository,
			newRevocationStore,
			newCodec,
			newAuthenticator,
			newVideoStore,
			newAIClient,
			newHub,
			newAuthService,
			newTranslationService,
			handler.NewAuthHandler,
			handler.NewTranslateHandler,
			newStreamHandler,
			newHandlers,
			httpmiddleware.NewAuth,
			newRateLimiter,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(bootstrap.EnsureSchema, video.StartSweeper, drainTranslations, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("service", cfg.ServiceName))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newHistoryRepository(pool *pgxpool.Pool) repository.HistoryRepository {
	return repository.NewPostgresHistoryRepo(pool)
}

func newSignRepository(pool *pgxpool.Pool) repository.SignRepository {
	return repository.NewPostgresSignRepo(pool)
}

func newRevocationStore(lc fx.Lifecycle, cfg config.Config, pool *pgxpool.Pool, logger *zap.Logger) (revocation.Store, error) {
	logger.Info("revocation store",
		zap.String("backend", cfg.RevocationBackend),
		zap.Duration("ttl", cfg.RevocationTTL),
		zap.Bool("fail_open", cfg.RevocationFailOpen),
	)

	switch cfg.RevocationBackend {
	case config.RevocationBackendRedis:
		client, err := newRedisClient(lc, cfg)
		if err != nil {
			return nil, err
		}
		return cacheadapter.NewRedisBlocklist(client, cfg.RevocationTTL, cacheadapter.WithOperationTimeout(cfg.RevocationTimeout)), nil
	case config.RevocationBackendPostgres:
		return repository.NewPostgresBlocklist(pool, cfg.RevocationTTL, cfg.RevocationTimeout), nil
	default:
		return revocation.NewMemoryStore(cfg.RevocationTTL), nil
	}
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newCodec(cfg config.Config) (*customjwt.Codec, error) {
	previous := make([]customjwt.Key, 0, len(cfg.JWTPreviousKeys))
	for _, k := range cfg.JWTPreviousKeys {
		previous = append(previous, customjwt.Key{ID: k.ID, Secret: k.Secret})
	}
	ring, err := customjwt.NewKeyring(cfg.JWTAlgorithm, customjwt.Key{ID: cfg.JWTKey.ID, Secret: cfg.JWTKey.Secret}, previous...)
	if err != nil {
		return nil, fmt.Errorf("jwt keyring: %w", err)
	}
	return customjwt.NewCodec(ring), nil
}

func newAuthenticator(codec *customjwt.Codec, store revocation.Store, cfg config.Config, logger *zap.Logger) *authn.Authenticator {
	return authn.New(codec, store, authn.WithFailOpen(cfg.RevocationFailOpen), authn.WithLogger(logger))
}

func newVideoStore(cfg config.Config, logger *zap.Logger) (*video.Store, error) {
	return video.NewStore(cfg.VideoDir, cfg.SampleVideo, logger.Named("video"))
}

func newAIClient(cfg config.Config, videos *video.Store) ai.Client {
	return ai.NewMockClient(cfg.SampleVideo, videos)
}

func newHub(logger *zap.Logger) *stream.Hub {
	return stream.NewHub(logger.Named("stream"))
}

func newAuthService(users repository.UserRepository, codec *customjwt.Codec, store revocation.Store, node *snowflake.Node, cfg config.Config, logger *zap.Logger, tp *telemetry.Provider) *service.AuthService {
	svc := service.NewAuthService(users, codec, store, node, cfg, logger)
	svc.UseTracer(tp.Tracer())
	return svc
}

func newTranslationService(client ai.Client, videos *video.Store, users repository.UserRepository, history repository.HistoryRepository, signs repository.SignRepository, node *snowflake.Node, cfg config.Config, logger *zap.Logger, tp *telemetry.Provider) *service.TranslationService {
	svc := service.NewTranslationService(client, videos, users, history, signs, node, cfg, logger)
	svc.UseTracer(tp.Tracer())
	return svc
}

func newStreamHandler(authenticator *authn.Authenticator, translations *service.TranslationService, hub *stream.Hub, cfg config.Config, logger *zap.Logger) *handler.StreamHandler {
	return handler.NewStreamHandler(authenticator, translations, hub, cfg, logger.Named("ws"))
}

func newHandlers(auth *handler.AuthHandler, translate *handler.TranslateHandler, ws *handler.StreamHandler) httptransport.Handlers {
	return httptransport.Handlers{Auth: auth, Translate: translate, Stream: ws}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM, "/health")
}

// drainTranslations waits for background history writes before the pool closes.
func drainTranslations(lc fx.Lifecycle, translations *service.TranslationService) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				translations.Drain()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				logger.Info("http server listening", zap.String("addr", addr), zap.String("prefix", cfg.APIPrefix))
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

