package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	server "brandenbed/internal/adapters/http_server"
	"brandenbed/internal/adapters/observability"
	redisad "brandenbed/internal/adapters/redis"
	"brandenbed/internal/app"
	"brandenbed/internal/domain"
	"brandenbed/internal/shared"
	"brandenbed/internal/storage/filedb"
	"brandenbed/internal/storage/sqldb"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	repo := openRepo(cfg)

	// optional listing cache
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, running without cache")
			_ = rc.Close()
		} else {
			defer rc.Close()
			cache = rc
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache enabled")
		}
	}
	svc := app.NewStoreService(repo, cache, int(cfg.CacheTTL/time.Second))

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	observability.Serve(cfg.MetricsAddr, reg)
	srv.MountHandlers(&server.Handlers{S: svc})

	log.Info().Str("addr", cfg.Addr()).Str("driver", cfg.StoreDriver).Msg("record store listening")
	httpSrv := &http.Server{Addr: cfg.Addr(), Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func openRepo(cfg shared.Config) domain.RecordRepository {
	var (
		db  *sql.DB
		d   sqldb.Dialect
		err error
	)
	switch cfg.StoreDriver {
	case "file":
		fdb, err := filedb.Open(cfg.DBFile, domain.Collections)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.DBFile).Msg("open db file failed")
		}
		log.Info().Str("file", cfg.DBFile).Msg("serving JSON file")
		return fdb
	case "sqlite":
		db, err = sqldb.OpenSQLite(cfg.SQLitePath)
		d = sqldb.SQLite
	case "mysql":
		db, err = sqldb.OpenMySQL(cfg.MySQLDSN)
		d = sqldb.MySQL
	default:
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("unknown STORE_DRIVER (want file, sqlite or mysql)")
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("database open failed")
	}
	log.Info().Str("driver", d.Name).Msg("database connection ok")

	repo := sqldb.New(db, d)
	if err := repo.Migrate(context.Background(), domain.Collections); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	return repo
}
