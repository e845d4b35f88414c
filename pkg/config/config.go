package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultAPIURL is the local development origin of the NDVI backend.
	DefaultAPIURL = "http://localhost:8000"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend   BackendConfig
	Identity  IdentityConfig
	Counters  CountersConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Downloads DownloadsConfig
	Preview   PreviewConfig
	Breaker   BreakerConfig
	Jobs      JobsConfig
}

// BackendConfig points the client at the NDVI analysis backend.
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	SubmitTimeout  time.Duration
	DownloadData   bool
	GalleryLimit   int
}

// IdentityConfig selects where the client user id is persisted.
type IdentityConfig struct {
	File       string
	CookieName string
	CookieTTL  time.Duration
	Store      string
}

// CountersConfig selects the backend for ephemeral card counters.
type CountersConfig struct {
	Backend string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DownloadsConfig controls where downloaded result bundles and exports land.
type DownloadsConfig struct {
	Dir string
}

// PreviewConfig bounds the preview availability poller.
type PreviewConfig struct {
	MaxAttempts int
	Interval    time.Duration
	MaxInterval time.Duration
	Exponential bool
}

// BreakerConfig tunes the circuit breaker guarding backend calls.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// JobsConfig sizes the asynchronous submission worker pool.
type JobsConfig struct {
	Workers    int
	BufferSize int
	JobTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		BaseURL:        resolveAPIURL(v.GetString("NDVI_API_URL"), v.GetString("NEXT_PUBLIC_API_URL")),
		RequestTimeout: parseDuration(v.GetString("NDVI_REQUEST_TIMEOUT"), 30*time.Second),
		SubmitTimeout:  parseDuration(v.GetString("NDVI_SUBMIT_TIMEOUT"), 3*time.Minute),
		DownloadData:   v.GetBool("NDVI_DOWNLOAD_DATA"),
		GalleryLimit:   v.GetInt("NDVI_GALLERY_LIMIT"),
	}

	cfg.Identity = IdentityConfig{
		File:       expandHome(v.GetString("IDENTITY_FILE")),
		CookieName: v.GetString("IDENTITY_COOKIE"),
		CookieTTL:  parseDuration(v.GetString("IDENTITY_COOKIE_TTL"), 365*24*time.Hour),
		Store:      strings.ToLower(v.GetString("IDENTITY_STORE")),
	}

	cfg.Counters = CountersConfig{Backend: strings.ToLower(v.GetString("COUNTERS_BACKEND"))}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Downloads = DownloadsConfig{Dir: v.GetString("DOWNLOADS_DIR")}

	cfg.Preview = PreviewConfig{
		MaxAttempts: v.GetInt("PREVIEW_POLL_MAX_ATTEMPTS"),
		Interval:    parseDuration(v.GetString("PREVIEW_POLL_INTERVAL"), 2*time.Second),
		MaxInterval: parseDuration(v.GetString("PREVIEW_POLL_MAX_INTERVAL"), 10*time.Second),
		Exponential: v.GetBool("PREVIEW_POLL_EXPONENTIAL"),
	}

	cfg.Breaker = BreakerConfig{
		MaxRequests:      uint32(v.GetInt("BREAKER_MAX_REQUESTS")),
		Interval:         parseDuration(v.GetString("BREAKER_INTERVAL"), time.Minute),
		Timeout:          parseDuration(v.GetString("BREAKER_TIMEOUT"), 30*time.Second),
		FailureThreshold: uint32(v.GetInt("BREAKER_FAILURE_THRESHOLD")),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		BufferSize: v.GetInt("JOBS_BUFFER_SIZE"),
		JobTTL:     parseDuration(v.GetString("JOBS_TTL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("NDVI_API_URL", "")
	v.SetDefault("NEXT_PUBLIC_API_URL", "")
	v.SetDefault("NDVI_REQUEST_TIMEOUT", "30s")
	v.SetDefault("NDVI_SUBMIT_TIMEOUT", "3m")
	v.SetDefault("NDVI_DOWNLOAD_DATA", false)
	v.SetDefault("NDVI_GALLERY_LIMIT", 50)

	v.SetDefault("IDENTITY_FILE", "~/.ndvi/identity.json")
	v.SetDefault("IDENTITY_COOKIE", "ndvi_user_id")
	v.SetDefault("IDENTITY_COOKIE_TTL", "8760h")
	v.SetDefault("IDENTITY_STORE", "cookie")
	v.SetDefault("COUNTERS_BACKEND", "memory")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DOWNLOADS_DIR", "./downloads")

	v.SetDefault("PREVIEW_POLL_MAX_ATTEMPTS", 5)
	v.SetDefault("PREVIEW_POLL_INTERVAL", "2s")
	v.SetDefault("PREVIEW_POLL_MAX_INTERVAL", "10s")
	v.SetDefault("PREVIEW_POLL_EXPONENTIAL", false)

	v.SetDefault("BREAKER_MAX_REQUESTS", 1)
	v.SetDefault("BREAKER_INTERVAL", "1m")
	v.SetDefault("BREAKER_TIMEOUT", "30s")
	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 3)

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_BUFFER_SIZE", 16)
	v.SetDefault("JOBS_TTL", "1h")
}

// resolveAPIURL prefers the explicit backend URL, then the variable the web
// front end reads, then the local development origin.
func resolveAPIURL(candidates ...string) string {
	for _, raw := range candidates {
		if trimmed := strings.TrimRight(strings.TrimSpace(raw), "/"); trimmed != "" {
			return trimmed
		}
	}
	return DefaultAPIURL
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return strings.TrimPrefix(path, "~/")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
