package main

import (
	"context"
	"time"

	"chantier_portal_backend/internal/chantiers/repository"
	"chantier_portal_backend/internal/geocoding"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/db"
	"chantier_portal_backend/platform/logger"
)

// One-shot backfill for chantiers saved with an address label but no
// coordinates. The periodic scheduler does the same in small batches; this
// binary drains the backlog in one run.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting chantier geocode backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)
	geocoder := geocoding.New(cfg, log)

	const batchSize = 25
	for {
		pending, err := repo.ListMissingCoordinates(ctx, batchSize)
		if err != nil {
			log.Error("failed to list chantiers", "error", err)
			return
		}
		if len(pending) == 0 {
			log.Info("no chantiers left to geocode")
			return
		}

		progress := false

		for _, chantier := range pending {
			if chantier.AddressLabel == "" {
				continue
			}

			candidates, err := geocoder.Search(ctx, chantier.AddressLabel)
			if err != nil {
				log.Error("geocode failed", "chantierId", chantier.ID, "error", err)
				time.Sleep(time.Second)
				continue
			}
			if len(candidates) == 0 {
				log.Info("no geocode result", "chantierId", chantier.ID, "address", chantier.AddressLabel)
				time.Sleep(time.Second)
				continue
			}

			top := candidates[0]
			if err := repo.SetCoordinates(ctx, chantier.ID, top.Lat, top.Lng); err != nil {
				log.Error("failed to update chantier", "chantierId", chantier.ID, "error", err)
				time.Sleep(time.Second)
				continue
			}

			log.Info("chantier geocoded", "chantierId", chantier.ID, "lat", top.Lat, "lng", top.Lng)
			progress = true
			time.Sleep(time.Second)
		}

		if !progress {
			log.Info("no geocode progress in batch, stopping")
			return
		}
	}
}
