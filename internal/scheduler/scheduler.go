package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	PruneSpec             = "0 3 * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	pruneTimeout          = 5 * time.Minute
)

// Pruner removes journal records older than a cutoff.
type Pruner interface {
	DeleteRequestsBefore(ctx context.Context, t time.Time) (int64, error)
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	pruner    Pruner
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func New(ctx context.Context, pruner Pruner, retention time.Duration, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:       ctx,
		cron:      c,
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(PruneSpec, s.pruneHistory); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop stops the cron and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pruneHistory() {
	ctx, cancel := context.WithTimeout(s.ctx, pruneTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	cutoff := s.now().UTC().Add(-s.retention)

	deleted, err := s.pruner.DeleteRequestsBefore(ctx, cutoff)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to prune request history",
			"error", err,
			"cutoff", cutoff,
			"retention", s.retention)

		return
	}

	s.log.InfoContext(ctx, "Request history is pruned",
		"deleted", deleted,
		"cutoff", cutoff,
		"retention", s.retention)
}
