package main

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"brandenbed/internal/adapters/observability"
	"brandenbed/internal/adapters/storeclient"
	"brandenbed/internal/app"
	"brandenbed/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("store", cfg.StoreURL).
		Str("file", cfg.SeedFile).
		Int("workers", cfg.SeedWorkers).
		Msg("seeder starting")

	f, err := os.Open(cfg.SeedFile)
	if err != nil {
		log.Fatal().Err(err).Msg("open seed file failed")
	}
	fx, err := app.ReadFixture(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("parse seed file failed")
	}

	client, err := storeclient.New(cfg.StoreURL, cfg.ClientTimeout, cfg.ClientRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store client")
	}
	seeder := app.NewSeedService(client)
	sem := semaphore.NewWeighted(int64(cfg.SeedWorkers))
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)

	for _, coll := range fx.Collections() {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(coll string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := seeder.SeedCollection(ctx, coll, fx[coll])
			if err != nil {
				failed.Add(1)
				log.Warn().Str("collection", coll).Int("created", res.Created).Err(err).Msg("seed failed")
				return
			}
			log.Info().Str("collection", coll).Int("created", res.Created).Int("skipped", res.Skipped).Msg("seed ok")
		}(coll)
	}

	wg.Wait()
	if n := failed.Load(); n > 0 {
		log.Fatal().Int32("collections", n).Msg("seeding incomplete")
	}
	log.Info().Msg("seeding completed")
}
