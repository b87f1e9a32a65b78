package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":3005"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"120s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"110s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	PGDSN          string `envconfig:"PG_DSN"`
	DBHost         string `envconfig:"DB_HOST"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUsername     string `envconfig:"DB_USERNAME"`
	DBPassword     string `envconfig:"DB_PASSWORD"`
	DBName         string `envconfig:"DB_NAME"`
	DBMaxConns     int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBEnsureSchema bool   `envconfig:"DB_ENSURE_SCHEMA" default:"false"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	SheetsBaseURL      string        `envconfig:"SHEETS_BASE_URL" default:"https://docs.google.com"`
	SheetsFetchTimeout time.Duration `envconfig:"SHEETS_FETCH_TIMEOUT" default:"30s"`
	SheetsMaxBytes     int64         `envconfig:"SHEETS_MAX_BYTES" default:"10485760"`
	FieldSynonymsPath  string        `envconfig:"FIELD_SYNONYMS_PATH"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGIN" default:"http://localhost:3002"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables, after loading a
// .env file from the working directory when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.DatabaseDSN(); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DatabaseDSN returns PG_DSN, or composes one from the DB_* variables. Hosts
// on neon.tech require TLS.
func (c *Config) DatabaseDSN() (string, error) {
	if c.PGDSN != "" {
		return c.PGDSN, nil
	}
	if c.DBHost == "" || c.DBName == "" {
		return "", errors.New("database not configured: set PG_DSN or DB_HOST and DB_NAME")
	}
	sslMode := "disable"
	if strings.Contains(c.DBHost, "neon.tech") {
		sslMode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.DBHost, fmt.Sprint(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + sslMode,
	}
	if c.DBUsername != "" {
		u.User = url.UserPassword(c.DBUsername, c.DBPassword)
	}
	return u.String(), nil
}
