package workers

import (
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/repositories"
	"chat-room/services"
	"context"
	stdErrors "errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// ReaperWorker periodically evicts participants whose last heartbeat is older
// than the inactivity threshold and announces their departure.
type ReaperWorker struct {
	participants repositories.IParticipantRepository
	statuses     services.StatusPoster
	log          *slog.Logger
	interval     time.Duration
	threshold    time.Duration
	concurrency  int
	now          func() time.Time
}

func NewReaperWorker(
	participants repositories.IParticipantRepository,
	statuses services.StatusPoster,
	log *slog.Logger,
	interval, threshold time.Duration,
	concurrency int,
	now func() time.Time,
) *ReaperWorker {
	return &ReaperWorker{
		participants: participants,
		statuses:     statuses,
		log:          log,
		interval:     interval,
		threshold:    threshold,
		concurrency:  concurrency,
		now:          now,
	}
}

// Run sweeps on every tick. A sweep runs inline, so cycles never overlap;
// ticks elapsed during a long sweep are dropped by the ticker.
func (w *ReaperWorker) Run(ctx context.Context) error {
	w.log.Info("Starting presence reaper", "interval", w.interval, "threshold", w.threshold)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping presence reaper")
			return ctx.Err()
		case <-ticker.C:
			_, _ = w.Sweep(ctx)
		}
	}
}

// Sweep runs one cycle and returns how many participants were evicted.
// When the snapshot cannot be read the cycle is skipped. Each eviction is
// isolated: a failure is logged and never cancels the others.
func (w *ReaperWorker) Sweep(ctx context.Context) (int, error) {
	participants, err := w.participants.List(ctx)
	if err != nil {
		w.log.Error("Reaper snapshot failed, skipping cycle", "error", err)
		return 0, err
	}

	now := w.now()
	stale := lo.Filter(participants, func(p domain.Participant, _ int) bool {
		return p.IsStale(now, w.threshold)
	})
	if len(stale) == 0 {
		return 0, nil
	}

	var evicted atomic.Int64
	var g errgroup.Group
	if w.concurrency > 0 {
		g.SetLimit(w.concurrency)
	}
	for _, p := range stale {
		g.Go(func() error {
			if w.evict(ctx, p.Name) {
				evicted.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	count := int(evicted.Load())
	w.log.Info("Reaper cycle done", "stale", len(stale), "evicted", count)
	return count, nil
}

// evict reports whether name was removed by this cycle.
func (w *ReaperWorker) evict(ctx context.Context, name string) bool {
	if err := w.participants.Delete(ctx, name); err != nil {
		if stdErrors.Is(err, errors.ErrParticipantNotFound) {
			w.log.Debug("Participant already gone", "name", name)
			return false
		}
		w.log.Error("Failed to evict participant", "name", name, "error", err)
		return false
	}
	if err := w.statuses.PostStatus(ctx, name, domain.LeftText); err != nil {
		w.log.Error("Failed to announce departure", "name", name, "error", err)
	}
	return true
}
