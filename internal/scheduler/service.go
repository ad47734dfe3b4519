package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

// Pinger reports whether the broker is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SelectQueue picks the scheduling backend once at startup: the broker queue
// when one is configured and answers a ping, the immediate queue otherwise.
// Broker unreachability is a degrade signal, never a startup failure.
func SelectQueue(ctx context.Context, logg *logger.Logger, broker *BrokerQueue, immediate *ImmediateQueue, ping Pinger) WorkQueue {
	if broker == nil || ping == nil {
		logg.Warn(ctx, "no broker configured, scheduler running in immediate mode")
		return immediate
	}
	if err := ping.Ping(ctx); err != nil {
		logg.Error(ctx, "broker unreachable, scheduler running in immediate mode", err)
		return immediate
	}
	logg.Info(ctx, "scheduler running in queued mode")
	return broker
}

// Scheduler is the public scheduling surface. It delegates to the selected
// WorkQueue backend and owns the recurring registry shared by both modes.
type Scheduler struct {
	logg              *logger.Logger
	queue             WorkQueue
	exec              Executor
	recurring         *RecurringRegistry
	cfg               config.QueueConfig
	bidirectionalCron bool
}

// SchedulerParams collects the scheduler dependencies.
type SchedulerParams struct {
	Logger    *logger.Logger
	Queue     WorkQueue
	Executor  Executor
	Recurring *RecurringRegistry
	Config    config.QueueConfig
	// RecurringBidirectional controls whether cron-fired inventory runs push
	// internal stock out, or stay pull-only.
	RecurringBidirectional bool
}

// NewScheduler builds the scheduling facade.
func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("work queue required")
	}
	if params.Executor == nil {
		return nil, fmt.Errorf("executor required")
	}
	recurring := params.Recurring
	if recurring == nil {
		recurring = NewRecurringRegistry(nil)
	}
	return &Scheduler{
		logg:              params.Logger,
		queue:             params.Queue,
		exec:              params.Executor,
		recurring:         recurring,
		cfg:               params.Config,
		bidirectionalCron: params.RecurringBidirectional,
	}, nil
}

// EnqueueInventorySync schedules an inventory reconciliation run.
func (s *Scheduler) EnqueueInventorySync(ctx context.Context, bidirectional bool, opts EnqueueOptions) (*EnqueueResult, error) {
	return s.enqueue(ctx, enums.JobTypeInventorySync, JobPayload{Bidirectional: bidirectional}, opts)
}

// EnqueueShopifySync schedules a bulk catalog import from the channel.
func (s *Scheduler) EnqueueShopifySync(ctx context.Context, limit int, syncDeletions bool, opts EnqueueOptions) (*EnqueueResult, error) {
	return s.enqueue(ctx, enums.JobTypeShopifySync, JobPayload{Limit: limit, SyncDeletions: syncDeletions}, opts)
}

// EnqueueProductSync schedules a single-product operation.
func (s *Scheduler) EnqueueProductSync(ctx context.Context, operation string, payload JobPayload, opts EnqueueOptions) (*EnqueueResult, error) {
	switch operation {
	case OperationDeploy, OperationImport, OperationUpdate:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product sync operation").
			WithDetails(map[string]any{"operation": operation})
	}
	payload.Operation = operation
	return s.enqueue(ctx, enums.JobTypeProductSync, payload, opts)
}

// enqueue delegates to the backend. A queue that reports itself unavailable
// mid-flight degrades that one call to an immediate run; the error never
// reaches the caller.
func (s *Scheduler) enqueue(ctx context.Context, jobType enums.JobType, payload JobPayload, opts EnqueueOptions) (*EnqueueResult, error) {
	result, err := s.queue.Enqueue(ctx, jobType, payload, opts)
	if err == nil {
		return result, nil
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeQueueUnavailable) {
		return nil, err
	}

	s.logg.Warn(s.logg.WithJob(ctx, jobType.String()), "queue unavailable, executing immediately")
	out, execErr := s.exec.Execute(ctx, jobType, payload)
	if execErr != nil {
		return nil, execErr
	}
	return &EnqueueResult{JobID: ImmediateJobID, Immediate: true, Result: out}, nil
}

// ScheduleRecurring registers a cron definition for a job family. Any
// existing definition under the same name is replaced in the same call.
func (s *Scheduler) ScheduleRecurring(name, cronExpr string) error {
	jobType, err := enums.ParseJobType(name)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "recurring jobs are named after a job type")
	}
	return s.recurring.Schedule(name, cronExpr, func() {
		ctx := s.logg.WithJob(context.Background(), name)
		if _, err := s.enqueue(ctx, jobType, s.recurringPayload(jobType), EnqueueOptions{}); err != nil {
			s.logg.Error(ctx, "recurring enqueue failed", err)
		}
	})
}

// recurringPayload builds the payload a cron trigger enqueues. Inventory runs
// are pull-only unless bidirectional cron runs were opted into.
func (s *Scheduler) recurringPayload(jobType enums.JobType) JobPayload {
	payload := JobPayload{}
	if jobType == enums.JobTypeInventorySync {
		payload.Bidirectional = s.bidirectionalCron
	}
	return payload
}

// ClearRecurring removes a recurring definition; unknown names are ignored.
func (s *Scheduler) ClearRecurring(name string) {
	s.recurring.Clear(name)
}

// ListRecurring returns all active recurring definitions.
func (s *Scheduler) ListRecurring() []RecurringEntry {
	return s.recurring.List()
}

// Stats returns backend queue counts plus the recurring definitions.
func (s *Scheduler) Stats(ctx context.Context) (*QueueStats, []RecurringEntry, error) {
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return nil, nil, err
	}
	return stats, s.recurring.List(), nil
}

// CleanupOldJobs prunes finished job rows past the retention window.
func (s *Scheduler) CleanupOldJobs(ctx context.Context, retention time.Duration) (int64, error) {
	return s.queue.Cleanup(ctx, retention)
}

// IsAvailable reports whether work is being durably queued.
func (s *Scheduler) IsAvailable() bool {
	return s.queue.IsAvailable()
}

// StartRecurring begins firing recurring triggers.
func (s *Scheduler) StartRecurring() {
	s.recurring.Start()
}

// Shutdown stops recurring triggers and the queue backend.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.recurring.Stop()
	return s.queue.Shutdown(ctx)
}
