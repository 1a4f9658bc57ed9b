package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

type stubPruner struct {
	cutoffs []time.Time
	err     error
}

func (p *stubPruner) DeleteRequestsBefore(_ context.Context, t time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, t)
	return 3, p.err
}

func TestPruneHistoryUsesRetention(t *testing.T) {
	pruner := &stubPruner{}
	s := New(context.Background(), pruner, 48*time.Hour, slog.New(slog.DiscardHandler))

	now := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.pruneHistory()

	if len(pruner.cutoffs) != 1 {
		t.Fatalf("expected one prune call, got %d", len(pruner.cutoffs))
	}

	if want := now.Add(-48 * time.Hour); !pruner.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %v, want %v", pruner.cutoffs[0], want)
	}
}

func TestPruneHistorySurvivesErrors(t *testing.T) {
	pruner := &stubPruner{err: errors.New("db is locked")}
	s := New(context.Background(), pruner, time.Hour, slog.New(slog.DiscardHandler))

	s.pruneHistory()

	if len(pruner.cutoffs) != 1 {
		t.Fatalf("expected prune to be attempted once, got %d", len(pruner.cutoffs))
	}
}

func TestPruneHistorySkipsWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pruner := &stubPruner{}
	New(ctx, pruner, time.Hour, slog.New(slog.DiscardHandler)).pruneHistory()

	if len(pruner.cutoffs) != 0 {
		t.Fatalf("expected no prune calls after cancellation, got %d", len(pruner.cutoffs))
	}
}

func TestPruneSpecRunsDaily(t *testing.T) {
	schedule, err := cron.ParseStandard(PruneSpec)
	if err != nil {
		t.Fatalf("ParseStandard returned error: %v", err)
	}

	from := time.Date(2026, 10, 18, 4, 0, 0, 0, time.UTC)
	next := schedule.Next(from)

	if want := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("next run = %v, want %v", next, want)
	}
}

func TestStartAndStop(t *testing.T) {
	s := New(context.Background(), &stubPruner{}, time.Hour, slog.New(slog.DiscardHandler))

	if err := s.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	s.Stop()
}
