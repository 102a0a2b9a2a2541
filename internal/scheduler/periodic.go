package scheduler

import (
	"fmt"

	"github.com/hibiken/asynq"

	"chantier_portal_backend/platform/config"
	"chantier_portal_backend/platform/logger"
)

// Periodic enqueues the recurring maintenance tasks. Trash purge runs hourly,
// geocode backfill every six hours.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
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

	scheduler := asynq.NewScheduler(opt, nil)

	if _, err := scheduler.Register("@every 1h", NewTrashPurgeTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register trash purge: %w", err)
	}

	backfillTask, err := NewGeocodeBackfillTask(GeocodeBackfillPayload{Limit: defaultBackfillLimit})
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register("@every 6h", backfillTask, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register geocode backfill: %w", err)
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until Shutdown is called.
func (p *Periodic) Run() error {
	p.log.Info("periodic scheduler starting")
	return p.scheduler.Run()
}

func (p *Periodic) Shutdown() {
	if p == nil || p.scheduler == nil {
		return
	}
	p.scheduler.Shutdown()
}
