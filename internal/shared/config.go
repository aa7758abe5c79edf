package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	Port        string
	MetricsAddr string

	StoreDriver string
	DBFile      string
	SQLitePath  string
	MySQLDSN    string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	StoreURL      string
	ClientRPS     int
	ClientTimeout time.Duration

	SeedWorkers int
	SeedFile    string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
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
		AppEnv:        env("APP_ENV", "prod"),
		Port:          env("PORT", "3001"),
		MetricsAddr:   env("METRICS_ADDR", ""),
		StoreDriver:   strings.ToLower(env("STORE_DRIVER", "file")),
		DBFile:        env("DB_FILE", "db.json"),
		SQLitePath:    env("SQLITE_PATH", "data/store.db"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/brandenbed?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", ""),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 60)) * time.Second,
		StoreURL:      env("STORE_URL", "http://localhost:3001"),
		ClientRPS:     atoi("CLIENT_RPS", 0),
		ClientTimeout: time.Duration(atoi("CLIENT_TIMEOUT_SECONDS", 20)) * time.Second,
		SeedWorkers:   atoi("SEED_WORKERS", 4),
		SeedFile:      env("SEED_FILE", "testdata/db.json"),
	}
	if c.SeedWorkers < 1 {
		c.SeedWorkers = 1
	}
	return c
}

// Addr is the listen address for the record store.
func (c Config) Addr() string { return ":" + c.Port }

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
