package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv          string
	HTTPAddr        string
	MetricsAddr     string
	MySQLDSN        string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	OpenLibraryBase string
	OpenLibraryRPS  int
	Workers         int
	ImportFile      string
	CacheTTL        time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ":9100"),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/libris?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisDB:         atoi("REDIS_DB", 0),
		RedisPass:       env("REDIS_PASSWORD", ""),
		OpenLibraryBase: env("OPENLIBRARY_BASE_URL", "https://openlibrary.org"),
		OpenLibraryRPS:  atoi("OPENLIBRARY_RPS", 3),
		Workers:         atoi("IMPORT_WORKERS", 8),
		ImportFile:      env("IMPORT_ISBNS_FILE", ""),
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.MySQLDSN == "" {
		log.Warn().Msg("MYSQL_DSN is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
