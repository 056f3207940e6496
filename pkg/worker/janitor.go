package worker

import (
	"context"
	"log/slog"
	"time"
)

type Reclaimer interface {
	ReclaimExpired(ctx context.Context) (int, error)
}

type Purger interface {
	PurgeStale(ctx context.Context, now time.Time) (int, error)
}

type BatchPurger interface {
	PurgeDeleted(ctx context.Context) (int, error)
}

// Janitor finalizes abandoned tasks, hard-deletes tombstoned or
// never-confirmed documents and then removes emptied deleted batches.
type Janitor struct {
	tasks    Reclaimer
	docs     Purger
	batches  BatchPurger
	interval time.Duration
	log      *slog.Logger
}

func NewJanitor(tasks Reclaimer, docs Purger, interval time.Duration, log *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{tasks: tasks, docs: docs, interval: interval, log: log}
}

// WithBatches enables purging of deleted batches.
func (j *Janitor) WithBatches(b BatchPurger) *Janitor {
	j.batches = b
	return j
}

func (j *Janitor) Run(ctx context.Context) error {
	t := time.NewTicker(j.interval)
	defer t.Stop()
	for {
		j.Sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Sweep runs one pass. Errors are logged; the next pass retries.
func (j *Janitor) Sweep(ctx context.Context) (reclaimed, purged int) {
	var err error
	if reclaimed, err = j.tasks.ReclaimExpired(ctx); err != nil {
		j.log.Error("reclaim expired tasks", "error", err)
	}
	if purged, err = j.docs.PurgeStale(ctx, time.Now().UTC()); err != nil {
		j.log.Error("purge stale cvs", "error", err)
	}
	var batches int
	if j.batches != nil {
		if batches, err = j.batches.PurgeDeleted(ctx); err != nil {
			j.log.Error("purge deleted batches", "error", err)
		}
	}
	if reclaimed > 0 || purged > 0 || batches > 0 {
		j.log.Info("janitor sweep", "reclaimed", reclaimed, "purged", purged, "batches", batches)
	}
	return reclaimed, purged
}
