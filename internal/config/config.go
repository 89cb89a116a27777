// Package config resolves the process environment into a typed Config,
// using a plain env/envInt lookup pattern with sensible defaults, plus
// duration helpers and cast-based parsing for provider option maps.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

type Config struct {
	DatabaseURL string
	DataDir     string

	// SecretKey seeds the HKDF derivation used to encrypt provider API keys
	// at rest (internal/providers/secretbox.go).
	SecretKey string

	WorkerConcurrency int

	// Default per-provider rate limit, used when a provider's capabilities
	// descriptor does not declare one.
	DefaultRateLimitRequests int
	DefaultRateLimitWindow   time.Duration

	CircuitBreakerThreshold    uint32
	CircuitBreakerResetTimeout time.Duration

	GCCron string // cron expression, default "0 3 * * *" (daily at 03:00 local)

	TMDBAPIKey     string
	OMDBAPIKey     string
	TVDBAPIKey     string
	FanartTVAPIKey string
}

func Load() *Config {
	return &Config{
		DatabaseURL:       env("DATABASE_URL", "postgres://enrichr:enrichr@db:5432/enrichr?sslmode=disable"),
		DataDir:           env("DATA_DIR", "/data"),
		SecretKey:         env("SECRET_KEY", "change-me-in-production-32-bytes!"),
		WorkerConcurrency: envInt("WORKER_CONCURRENCY", 4),

		DefaultRateLimitRequests:   envInt("DEFAULT_RATE_LIMIT_REQUESTS", 40),
		DefaultRateLimitWindow:     envDuration("DEFAULT_RATE_LIMIT_WINDOW", 10*time.Second),
		CircuitBreakerThreshold:    uint32(envInt("CIRCUIT_BREAKER_THRESHOLD", 5)),
		CircuitBreakerResetTimeout: envDuration("CIRCUIT_BREAKER_RESET_TIMEOUT", 5*time.Minute),

		GCCron: env("GC_CRON", "0 3 * * *"),

		TMDBAPIKey:     env("TMDB_API_KEY", ""),
		OMDBAPIKey:     env("OMDB_API_KEY", ""),
		TVDBAPIKey:     env("TVDB_API_KEY", ""),
		FanartTVAPIKey: env("FANARTTV_API_KEY", ""),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// CastOptionInt reads a provider option by key and casts it to int,
// tolerating the loose string/number encodings operators paste into
// provider_config.options. Returns fallback on missing/unparsable.
func CastOptionInt(options map[string]string, key string, fallback int) int {
	v, ok := options[key]
	if !ok {
		return fallback
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return fallback
	}
	return i
}

func CastOptionBool(options map[string]string, key string, fallback bool) bool {
	v, ok := options[key]
	if !ok {
		return fallback
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return fallback
	}
	return b
}

func CastOptionDuration(options map[string]string, key string, fallback time.Duration) time.Duration {
	v, ok := options[key]
	if !ok {
		return fallback
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return fallback
	}
	return d
}
