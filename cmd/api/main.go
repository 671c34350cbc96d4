package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "hotel_rms/internal/adapters/http_server"
	"hotel_rms/internal/adapters/observability"
	redisad "hotel_rms/internal/adapters/redis"
	"hotel_rms/internal/adapters/revenue"
	"hotel_rms/internal/app"
	"hotel_rms/internal/domain"
	"hotel_rms/internal/resolver"
	"hotel_rms/internal/shared"
	mysqlrepo "hotel_rms/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// the snapshot database is optional; without it history comes from the backend
	var repo domain.HistoryRepository
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		repo = mysqlrepo.New(db)
	} else {
		log.Info().Msg("MYSQL_DSN empty, snapshot store disabled")
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
	}
	cancel()

	client, err := revenue.New(cfg.BackendBase, cfg.BackendToken, cfg.BackendRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}

	// deps
	props := app.NewPropertyService(client)
	sessions := resolver.NewRegistry(props, cache, cfg.MaxSessions,
		resolver.WithTTL(int(cfg.SelectionTTL.Seconds())))
	cal := app.NewCalendarService(repo, client, cache, cfg.CacheTTL)

	// http
	srv := server.New(cfg.ReqTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Calendar: cal, Sessions: sessions})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
