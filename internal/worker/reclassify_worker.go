package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/civicgov/grievance-service/internal/service"
)

// ReclassifyWorker periodically re-runs the hosted classifier over grievances
// the heuristic fallback routed.
type ReclassifyWorker struct {
	service   *service.GrievanceService
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

// NewReclassifyWorker constructs the worker.
func NewReclassifyWorker(grievanceService *service.GrievanceService, interval time.Duration, batchSize int, logger *zap.Logger) *ReclassifyWorker {
	return &ReclassifyWorker{
		service:   grievanceService,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run sweeps on the configured interval until ctx is cancelled. Blocks; run
// in a goroutine.
func (w *ReclassifyWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reclassify worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ReclassifyWorker) sweep(ctx context.Context) {
	upgraded, err := w.service.ReclassifyPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Warn("reclassify sweep failed", zap.Error(err))
		return
	}
	if upgraded > 0 {
		w.logger.Info("reclassify sweep complete", zap.Int("upgraded", upgraded))
	}
}
