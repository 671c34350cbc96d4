package main

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_rms/internal/adapters/observability"
	redisad "hotel_rms/internal/adapters/redis"
	"hotel_rms/internal/adapters/revenue"
	"hotel_rms/internal/app"
	"hotel_rms/internal/shared"
	mysqlrepo "hotel_rms/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "syncer")

	log.Info().
		Str("base", cfg.BackendBase).
		Int("workers", cfg.Workers).
		Int("months", cfg.SyncMonths).
		Msg("syncer starting")

	if cfg.MySQLDSN == "" {
		log.Fatal().Msg("MYSQL_DSN is required")
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := revenue.New(cfg.BackendBase, cfg.BackendToken, cfg.BackendRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	syncer := app.NewSyncService(client, repo, cache)

	props, err := app.NewPropertyService(client).ListMyProperties(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list properties failed")
	}
	log.Info().Int("properties", len(props)).Msg("properties listed")

	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())-1

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, p := range props {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := syncer.SyncProperty(ctx, id, year, month, cfg.SyncMonths); err != nil {
				log.Warn().Str("id", id).Err(err).Msg("sync failed")
				return
			}
			log.Info().Str("id", id).Msg("sync ok")
		}(p.ID)
	}

	wg.Wait()
	log.Info().Msg("sync completed")
}
