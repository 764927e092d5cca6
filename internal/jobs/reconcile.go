// Package jobs runs the background work of the payment service on asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"momopay/internal/config"
	"momopay/internal/logger"
	"momopay/internal/services/webhook"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const TypeReconcile = "collections:reconcile"

type ReconcilePayload struct {
	OlderThanSeconds int64 `json:"older_than_seconds"`
}

// NewReconcileTask builds a reconciliation task for rows older than olderThan.
func NewReconcileTask(olderThan time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{OlderThanSeconds: int64(olderThan / time.Second)})
	if err != nil {
		return nil, err
	}
	// Overlapping sweeps are harmless but wasteful.
	return asynq.NewTask(TypeReconcile, payload, asynq.Unique(time.Minute), asynq.MaxRetry(3)), nil
}

type ReconcileHandler struct {
	reconciler webhook.Reconciler
	defaultAge time.Duration
}

func NewReconcileHandler(reconciler webhook.Reconciler, defaultAge time.Duration) *ReconcileHandler {
	if reconciler == nil {
		panic("reconciler is required")
	}
	return &ReconcileHandler{reconciler: reconciler, defaultAge: defaultAge}
}

func (h *ReconcileHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	age := time.Duration(payload.OlderThanSeconds) * time.Second
	if age <= 0 {
		age = h.defaultAge
	}

	report, err := h.reconciler.Reconcile(ctx, age)
	if err != nil {
		logger.WithField("error", err.Error()).Error("reconciliation failed")
		return err
	}
	logger.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"resumed":   report.Resumed,
		"refreshed": report.Refreshed,
		"failed":    report.Failed,
	}).Info("reconciliation finished")
	return nil
}

// Enqueuer submits tasks to the queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TriggerReconcile enqueues an immediate sweep.
func TriggerReconcile(ctx context.Context, q Enqueuer, olderThan time.Duration) (string, error) {
	task, err := NewReconcileTask(olderThan)
	if err != nil {
		return "", err
	}
	info, err := q.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	return info.ID, nil
}

// RedisOpt maps the typed Redis config onto asynq's connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewServer(cfg config.RedisConfig) *asynq.Server {
	return asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency:    4,
		RetryDelayFunc: asynq.DefaultRetryDelayFunc,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.WithFields(logrus.Fields{
				"task_type": task.Type(),
				"error":     err.Error(),
			}).Error("task failed")
		}),
	})
}

func NewMux(h *ReconcileHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeReconcile, h)
	return mux
}

// NewScheduler registers the periodic sweep.
func NewScheduler(cfg config.RedisConfig, interval, olderThan time.Duration) (*asynq.Scheduler, error) {
	task, err := NewReconcileTask(olderThan)
	if err != nil {
		return nil, err
	}
	scheduler := asynq.NewScheduler(RedisOpt(cfg), &asynq.SchedulerOpts{})
	if _, err := scheduler.Register(fmt.Sprintf("@every %s", interval), task); err != nil {
		return nil, fmt.Errorf("failed to register reconcile schedule: %w", err)
	}
	return scheduler, nil
}
