package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskpro/helpdesk-service/internal/service"
)

// EscalationWorker drives the unanswered-ticket sweep on a fixed
// interval. It runs on its own goroutine, holds no locks shared with
// request handling, and stops when its context is cancelled. A panic
// inside one sweep is contained; the next tick runs normally.
type EscalationWorker struct {
	escalations *service.EscalationService
	interval    time.Duration
	logger      *zap.Logger
}

// NewEscalationWorker constructs the worker.
func NewEscalationWorker(escalations *service.EscalationService, interval time.Duration, logger *zap.Logger) *EscalationWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &EscalationWorker{escalations: escalations, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (w *EscalationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("escalation worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("escalation worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *EscalationWorker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("escalation sweep panicked", zap.Any("panic", r))
		}
	}()
	// Sweep errors are already logged; the next tick retries.
	_ = w.escalations.Sweep(ctx, time.Now())
}
