package jobs

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ghostreact/markapp/internal/tasks"
)

// Scheduler periodically enqueues maintenance work onto the redis
// stream the worker consumes. Session pruning happens there, never in
// the auth flow itself.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	stream string
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, stream string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		stream: stream,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	// Daily session prune at midnight.
	if _, err := s.cron.AddFunc("0 0 0 * * *", s.enqueueSessionPrune); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueSessionPrune() {
	_, err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"type": tasks.TypeSessionPrune},
	}).Result()
	if err != nil {
		s.log.Error().Err(err).Msg("enqueue session prune failed")
	}
}
