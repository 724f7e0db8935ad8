// Package enrichment feeds completed call logs to the asynchronous AI
// enrichment collaborator over JetStream. The core never computes
// summaries or sentiment itself; it only announces that a log exists.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/config"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/jetstream"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/observer"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
)

// LogCreatedEvent is the wire payload announcing a new call log.
type LogCreatedEvent struct {
	CallLogID   string    `json:"call_log_id"`
	WorkspaceID string    `json:"workspace_id"`
	CallListID  string    `json:"call_list_id"`
	StudentID   string    `json:"student_id"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CallDate    time.Time `json:"call_date"`
}

// TaskData holds the data for one dispatch task.
type TaskData struct {
	Ctx context.Context // Context derived for the task, NOT the original request context
	Log model.CallLog
}

// IDispatcher defines the interface for the enrichment dispatch pool.
type IDispatcher interface {
	SubmitTask(taskData TaskData) error
	Stop()
}

// Dispatcher publishes log-created events through a bounded worker pool so
// a slow broker never blocks the completion request path.
type Dispatcher struct {
	pool       *ants.PoolWithFunc
	js         jetstream.ClientInterface
	subject    string
	baseLogger *zap.Logger
}

// Ensure Dispatcher implements IDispatcher
var _ IDispatcher = (*Dispatcher)(nil)

// NewDispatcher creates and initializes the dispatch pool.
func NewDispatcher(
	cfg config.EnrichmentWorkerPoolConfig,
	js jetstream.ClientInterface,
	subject string,
	baseLogger *zap.Logger,
) (*Dispatcher, error) {
	d := &Dispatcher{
		js:         js,
		subject:    subject,
		baseLogger: baseLogger.Named("enrichment_dispatcher"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		taskData, ok := i.(TaskData)
		if !ok {
			d.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		d.dispatch(taskData)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			d.baseLogger.Error("Panic recovered in enrichment dispatcher", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment dispatch pool: %w", err)
	}
	d.pool = pool
	d.baseLogger.Info("Enrichment dispatch pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return d, nil
}

// SetupStream ensures the enrichment stream exists.
func SetupStream(ctx context.Context, js jetstream.ClientInterface, streamName, subject string, maxAgeDays int) error {
	return js.SetupStream(ctx, &nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Duration(maxAgeDays) * 24 * time.Hour,
		Storage:   nats.FileStorage,
	})
}

// SubmitTask hands a call log to the pool. Errors are reported to the
// caller but completion has already committed; the caller only logs them.
func (d *Dispatcher) SubmitTask(taskData TaskData) error {
	observer.SetEnrichmentQueueLength(d.pool.Waiting())

	err := d.pool.Invoke(taskData)
	if err != nil {
		d.baseLogger.Warn("Failed to submit enrichment dispatch task",
			zap.String("call_log_id", taskData.Log.ID),
			zap.String("workspace_id", taskData.Log.WorkspaceID),
			zap.Error(err),
		)
		observer.IncEnrichmentDispatch(taskData.Log.WorkspaceID, "submit_error")
		if errors.Is(err, ants.ErrPoolOverload) {
			return fmt.Errorf("enrichment dispatch pool overload: %w", err)
		}
		return fmt.Errorf("failed to invoke enrichment dispatch task: %w", err)
	}
	return nil
}

// dispatch runs on a pool worker: serialize the event and publish it.
func (d *Dispatcher) dispatch(taskData TaskData) {
	log := logger.FromContextOr(taskData.Ctx, d.baseLogger).With(
		zap.String("call_log_id", taskData.Log.ID),
		zap.String("workspace_id", taskData.Log.WorkspaceID),
	)

	event := LogCreatedEvent{
		CallLogID:   taskData.Log.ID,
		WorkspaceID: taskData.Log.WorkspaceID,
		CallListID:  taskData.Log.CallListID,
		StudentID:   taskData.Log.StudentID,
		Status:      taskData.Log.Status,
		Notes:       taskData.Log.Notes,
		CallDate:    taskData.Log.CallDate,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("Failed to marshal enrichment event", zap.Error(err))
		observer.IncEnrichmentDispatch(taskData.Log.WorkspaceID, "marshal_error")
		return
	}

	headers := map[string]string{
		"workspace_id": taskData.Log.WorkspaceID,
	}
	if err := d.js.Publish(d.subject, payload, headers); err != nil {
		log.Error("Failed to publish enrichment event", zap.Error(err))
		observer.IncEnrichmentDispatch(taskData.Log.WorkspaceID, "publish_error")
		return
	}

	observer.IncEnrichmentDispatch(taskData.Log.WorkspaceID, "published")
	log.Debug("Published enrichment event", zap.String("subject", d.subject))
}

// Stop releases the pool, waiting for in-flight tasks.
func (d *Dispatcher) Stop() {
	if d.pool != nil {
		d.pool.Release()
		d.baseLogger.Info("Enrichment dispatch pool stopped")
	}
}
