package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"chantier_portal_backend/internal/chantiers/repository"
	chantierservice "chantier_portal_backend/internal/chantiers/service"
	contactrepository "chantier_portal_backend/internal/contacts/repository"
	contactservice "chantier_portal_backend/internal/contacts/service"
	"chantier_portal_backend/internal/events"
	"chantier_portal_backend/internal/geocoding"
	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/logger"
)

const (
	defaultBackfillLimit = 50

	// backfillParallelism caps concurrent lookups so a batch stays polite
	// toward the geocoding provider.
	backfillParallelism = 4
)

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	repo      *repository.Repository
	chantiers *chantierservice.Service
	contacts  *contactservice.Service
	geocoder  *geocoding.Client
	cfg       config.SchedulerConfig
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, geocoder *geocoding.Client, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	repo := repository.New(pool)
	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		repo:      repo,
		chantiers: chantierservice.New(repo, bus, log),
		contacts:  contactservice.New(contactrepository.New(pool), log),
		geocoder:  geocoder,
		cfg:       cfg,
		log:       log,
	}

	mux.HandleFunc(TaskTrashPurge, w.handleTrashPurge)
	mux.HandleFunc(TaskGeocodeBackfill, w.handleGeocodeBackfill)

	return w, nil
}

func (w *Worker) handleTrashPurge(ctx context.Context, _ *asynq.Task) error {
	retention := w.cfg.GetTrashRetention()

	chantiers, err := w.chantiers.PurgeExpired(ctx, retention)
	if err != nil {
		return err
	}
	contacts, err := w.contacts.PurgeExpired(ctx, retention)
	if err != nil {
		return err
	}
	if chantiers > 0 || contacts > 0 {
		w.log.Info("trash purge completed",
			"chantiers", chantiers,
			"contacts", contacts,
			"retention", retention.String(),
		)
	}
	return nil
}

// handleGeocodeBackfill resolves coordinates for chantiers whose address was
// confirmed by label only. One failed lookup skips the row instead of failing
// the whole batch.
func (w *Worker) handleGeocodeBackfill(ctx context.Context, task *asynq.Task) error {
	if w.geocoder == nil {
		return nil
	}

	payload, err := ParseGeocodeBackfillPayload(task)
	if err != nil {
		return err
	}
	limit := payload.Limit
	if limit < 1 {
		limit = defaultBackfillLimit
	}

	pending, err := w.repo.ListMissingCoordinates(ctx, limit)
	if err != nil {
		return err
	}

	var resolved atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillParallelism)
	for _, chantier := range pending {
		g.Go(func() error {
			candidates, err := w.geocoder.Search(gctx, chantier.AddressLabel)
			if err != nil {
				w.log.Warn("geocode backfill lookup failed", "chantier_id", chantier.ID, "error", err)
				return nil
			}
			if len(candidates) == 0 {
				return nil
			}

			top := candidates[0]
			if err := w.repo.SetCoordinates(gctx, chantier.ID, top.Lat, top.Lng); err != nil {
				w.log.Warn("geocode backfill update failed", "chantier_id", chantier.ID, "error", err)
				return nil
			}
			resolved.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if len(pending) > 0 {
		w.log.Info("geocode backfill completed", "pending", len(pending), "resolved", resolved.Load())
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
