package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	MetricsAddr  string
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	BackendBase  string
	BackendToken string
	BackendRPS   int
	Workers      int
	SyncMonths   int
	MaxSessions  int
	CacheTTL     time.Duration
	SelectionTTL time.Duration // 0 keeps the selected property until cleared
	ReqTimeout   time.Duration
}

// Load reads the environment, after merging a .env file when one exists.
// Variables already set in the environment win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ""),
		MySQLDSN:     env("MYSQL_DSN", ""),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),
		BackendBase:  env("BACKEND_BASE_URL", "http://localhost:8000/api"),
		BackendToken: env("BACKEND_TOKEN", ""),
		BackendRPS:   atoi("BACKEND_RPS", 10),
		Workers:      atoi("SYNC_WORKERS", 4),
		SyncMonths:   atoi("SYNC_MONTHS", 12),
		MaxSessions:  atoi("MAX_SESSIONS", 10_000),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		SelectionTTL: time.Duration(atoi("SELECTION_TTL_SECONDS", 0)) * time.Second,
		ReqTimeout:   time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
	}
	if c.Workers < 1 {
		log.Warn().Int("workers", c.Workers).Msg("SYNC_WORKERS below 1, using 1")
		c.Workers = 1
	}
	if c.BackendToken == "" {
		log.Warn().Msg("BACKEND_TOKEN is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
