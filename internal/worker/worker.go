// Package worker runs background maintenance for the content store.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// maxPasses bounds one collection round so a busy store cannot keep the
// worker rewriting forever.
const maxPasses = 10

// Collector runs one value-log GC pass and reports whether it rewrote
// anything.
type Collector interface {
	CollectGarbage(discardRatio float64) (bool, error)
}

type Worker struct {
	target       Collector
	logger       *zap.Logger
	interval     time.Duration
	discardRatio float64
}

func NewWorker(target Collector, logger *zap.Logger, interval time.Duration, discardRatio float64) *Worker {
	return &Worker{
		target:       target,
		logger:       logger,
		interval:     interval,
		discardRatio: discardRatio,
	}
}

// Start runs the worker loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker shutting down")
			return
		case <-ticker.C:
			w.collect(ctx)
		}
	}
}

// collect repeats GC passes while they keep rewriting files, as Badger
// recommends, and returns the number of rewrites.
func (w *Worker) collect(ctx context.Context) int {
	rewritten := 0
	for pass := 0; pass < maxPasses && ctx.Err() == nil; pass++ {
		again, err := w.target.CollectGarbage(w.discardRatio)
		if err != nil {
			w.logger.Error("Value log GC failed", zap.Error(err))
			break
		}
		if !again {
			break
		}
		rewritten++
	}

	if rewritten > 0 {
		w.logger.Info("Value log GC complete", zap.Int("rewritten", rewritten))
	}
	return rewritten
}
