package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Upstream UpstreamConfig
	Access   AccessConfig
	Session  SessionConfig
	Viewer   ViewerConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Exports  ExportsConfig
	CORS     CORSConfig
	Log      LogConfig
}

// UpstreamConfig locates the publications REST API the portal fronts.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AccessConfig holds the static per-tier access passwords.
//
// These are a UX gate inherited from the product, not an authentication
// system: the same strings are shown to viewers on the login screen.
type AccessConfig struct {
	UniversityPassword string
	DepartmentPassword string
	AuthorPassword     string
}

// SessionConfig tunes viewer session tokens.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// ViewerConfig tunes the publication viewer behaviour.
type ViewerConfig struct {
	PageSize        int
	SearchDebounce  time.Duration
	ScopedSearch    bool
	UpstreamPageMax int
}

// CacheConfig governs the optional read-through Redis cache.
type CacheConfig struct {
	Enabled   bool
	PageTTL   time.Duration
	AuthorTTL time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ExportsConfig gates listing exports.
type ExportsConfig struct {
	Enabled  bool
	MaxPages int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Upstream = UpstreamConfig{
		BaseURL: strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 10*time.Second),
	}

	cfg.Access = AccessConfig{
		UniversityPassword: v.GetString("ACCESS_UNIVERSITY_PASSWORD"),
		DepartmentPassword: v.GetString("ACCESS_DEPARTMENT_PASSWORD"),
		AuthorPassword:     v.GetString("ACCESS_AUTHOR_PASSWORD"),
	}

	cfg.Session = SessionConfig{
		Secret: v.GetString("SESSION_SECRET"),
		TTL:    parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		Issuer: v.GetString("SESSION_ISSUER"),
	}

	cfg.Viewer = ViewerConfig{
		PageSize:        v.GetInt("VIEWER_PAGE_SIZE"),
		SearchDebounce:  parseDuration(v.GetString("VIEWER_SEARCH_DEBOUNCE"), 400*time.Millisecond),
		ScopedSearch:    v.GetBool("VIEWER_SCOPED_SEARCH"),
		UpstreamPageMax: v.GetInt("VIEWER_UPSTREAM_PAGE_MAX"),
	}

	cfg.Cache = CacheConfig{
		Enabled:   v.GetBool("ENABLE_CACHE"),
		PageTTL:   parseDuration(v.GetString("CACHE_PAGE_TTL"), time.Minute),
		AuthorTTL: parseDuration(v.GetString("CACHE_AUTHOR_TTL"), 5*time.Minute),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:  v.GetBool("ENABLE_EXPORTS"),
		MaxPages: v.GetInt("EXPORTS_MAX_PAGES"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:3000/api")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")

	v.SetDefault("ACCESS_UNIVERSITY_PASSWORD", "university123")
	v.SetDefault("ACCESS_DEPARTMENT_PASSWORD", "department123")
	v.SetDefault("ACCESS_AUTHOR_PASSWORD", "author123")

	v.SetDefault("SESSION_SECRET", "dev_secret")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_ISSUER", "research-publication-portal")

	v.SetDefault("VIEWER_PAGE_SIZE", 10)
	v.SetDefault("VIEWER_SEARCH_DEBOUNCE", "400ms")
	v.SetDefault("VIEWER_SCOPED_SEARCH", false)
	v.SetDefault("VIEWER_UPSTREAM_PAGE_MAX", 100)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_PAGE_TTL", "1m")
	v.SetDefault("CACHE_AUTHOR_TTL", "5m")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_MAX_PAGES", 20)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
