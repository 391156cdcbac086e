package main

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"libris/internal/adapters/observability"
	"libris/internal/adapters/openlibrary"
	redisad "libris/internal/adapters/redis"
	"libris/internal/app"
	"libris/internal/shared"
	mysqlrepo "libris/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	isbns := loadISBNs(cfg.ImportFile)

	log.Info().
		Str("base", cfg.OpenLibraryBase).
		Int("workers", cfg.Workers).
		Int("isbns", len(isbns)).
		Msg("importer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := openlibrary.New(cfg.OpenLibraryBase, cfg.OpenLibraryRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Open Library client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	imp := app.NewImportService(client, repo, cache)
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, isbn := range isbns {
		isbn := isbn

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(isbn string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := imp.ImportBook(ctx, isbn); err != nil {
				log.Warn().Str("isbn", isbn).Err(err).Msg("import failed")
				return
			}
			log.Info().Str("isbn", isbn).Msg("import ok")
		}(isbn)
	}

	wg.Wait()
	log.Info().Msg("import completed")
}

// loadISBNs reads one ISBN per line from path, falling back to the built-in
// seed list when no file is configured.
func loadISBNs(path string) []string {
	if path == "" {
		return shared.SeedISBNs
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("open ISBN file failed")
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		log.Fatal().Err(err).Msg("read ISBN file failed")
	}
	return out
}
