package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Revocation backends understood by Load.
const (
	RevocationBackendMemory   = "memory"
	RevocationBackendRedis    = "redis"
	RevocationBackendPostgres = "postgres"
)

const minSecretBytes = 32

// SigningKey is a named HMAC secret.
type SigningKey struct {
	ID     string
	Secret []byte
}

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	APIPrefix   string
	ServiceName string
	DatabaseURL string

	JWTAlgorithm    string
	JWTKey          SigningKey
	JWTPreviousKeys []SigningKey
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RevocationBackend  string
	RevocationTTL      time.Duration
	RevocationFailOpen bool
	RevocationTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	VideoDir             string
	SampleVideo          string
	VideoRetention       time.Duration
	VideoCleanupInterval time.Duration
	MaxTextLength        int

	WSMaxFrameBytes int64
	WSFrameInterval time.Duration

	RateLimitRPM         int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET_KEY")
	if strings.TrimSpace(secret) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(secret) < minSecretBytes {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY must be at least %d bytes", minSecretBytes)
	}
	previous, err := parseKeys(os.Getenv("JWT_PREVIOUS_KEYS"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8000"),
		APIPrefix:   strings.TrimRight(getEnv("API_PREFIX", "/api/v1"), "/"),
		ServiceName: getEnv("SERVICE_NAME", "sign-language-api"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAlgorithm:    strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
		JWTKey:          SigningKey{ID: getEnv("JWT_KEY_ID", "primary"), Secret: []byte(secret)},
		JWTPreviousKeys: previous,
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 48*time.Hour),

		RevocationBackend:  strings.ToLower(getEnv("REVOCATION_BACKEND", RevocationBackendMemory)),
		RevocationTTL:      getDuration("REVOCATION_TTL", time.Hour),
		RevocationFailOpen: getBool("REVOCATION_FAIL_OPEN", false),
		RevocationTimeout:  getDuration("REVOCATION_TIMEOUT", 500*time.Millisecond),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		RedisTLS:      getBool("REDIS_TLS", false),

		VideoDir:             getEnv("VIDEO_DIR", "static/videos"),
		SampleVideo:          getEnv("SAMPLE_VIDEO", "static/videos/test.mp4"),
		VideoRetention:       getDuration("VIDEO_RETENTION", 7*24*time.Hour),
		VideoCleanupInterval: getDuration("VIDEO_CLEANUP_INTERVAL", time.Hour),
		MaxTextLength:        getInt("MAX_TEXT_LENGTH", 1000),

		WSMaxFrameBytes: int64(getInt("WS_MAX_FRAME_BYTES", 1<<20)),
		WSFrameInterval: getDuration("WS_FRAME_INTERVAL", 100*time.Millisecond),

		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8000"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("JWT_ALGORITHM %q is not supported", c.JWTAlgorithm)
	}
	switch c.RevocationBackend {
	case RevocationBackendMemory, RevocationBackendRedis, RevocationBackendPostgres:
	default:
		return fmt.Errorf("REVOCATION_BACKEND %q is not supported", c.RevocationBackend)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	// A revoked access token must not outlive its blocklist entry.
	if c.RevocationTTL < c.AccessTokenTTL {
		return fmt.Errorf("REVOCATION_TTL (%s) must not be shorter than ACCESS_TOKEN_TTL (%s)", c.RevocationTTL, c.AccessTokenTTL)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("MAX_TEXT_LENGTH must be positive")
	}
	return nil
}

// parseKeys decodes "kid:secret,kid2:secret2".
func parseKeys(raw string) ([]SigningKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var keys []SigningKey
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		kid, secret, ok := strings.Cut(item, ":")
		if !ok || strings.TrimSpace(kid) == "" || len(secret) < minSecretBytes {
			return nil, fmt.Errorf("JWT_PREVIOUS_KEYS entry %q must be kid:secret with a secret of at least %d bytes", kid, minSecretBytes)
		}
		keys = append(keys, SigningKey{ID: strings.TrimSpace(kid), Secret: []byte(secret)})
	}
	return keys, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
