package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/freteops/freteops/internal/panel"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPanelWarmup primes the shared dashboard cache.
	TaskPanelWarmup = "panel:warmup"
	// TaskPanelInvalidate drops the cached dashboard entries and re-primes
	// them from the upstream.
	TaskPanelInvalidate = "panel:invalidate"
)

// PanelWarmupPayload configures one warmup run.
type PanelWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewPanelWarmupTask constructs an Asynq task.
func NewPanelWarmupTask(payload PanelWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPanelWarmup, data), nil
}

// NewPanelInvalidateTask constructs an Asynq task.
func NewPanelInvalidateTask() *asynq.Task {
	return asynq.NewTask(TaskPanelInvalidate, nil)
}

// NewPanelWarmupHandler processes TaskPanelWarmup tasks. The warmup fetches
// the alert lists and the sporadic exclusion config so the first dashboard
// hit after a cache expiry never pays the upstream round trip.
func NewPanelWarmupHandler(svc *panel.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PanelWarmupPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		if err := svc.Warm(ctx); err != nil {
			logger.Warn("panel warmup failed", slog.String("reason", payload.Reason), slog.Any("error", err))
			return err
		}
		logger.Info("panel cache warmed", slog.String("reason", payload.Reason))
		return nil
	}
}

// NewPanelInvalidateHandler processes TaskPanelInvalidate tasks.
func NewPanelInvalidateHandler(svc *panel.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := svc.Invalidate(ctx); err != nil {
			return err
		}
		if err := svc.Warm(ctx); err != nil {
			logger.Warn("panel re-warm after invalidation failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
