package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
)

// ImmediateJobID is the sentinel job id returned when work ran synchronously
// instead of being queued.
const ImmediateJobID = "immediate"

// JobPayload carries the operation parameters for one sync job. Fields are
// job-type specific; unused ones stay zero.
type JobPayload struct {
	Operation     string          `json:"operation,omitempty"`
	ProductID     *uuid.UUID      `json:"productId,omitempty"`
	Limit         int             `json:"limit,omitempty"`
	SyncDeletions bool            `json:"syncDeletions,omitempty"`
	Bidirectional bool            `json:"bidirectional,omitempty"`
	Remote        json.RawMessage `json:"remote,omitempty"`
}

// EnqueueOptions tunes a single enqueue call.
type EnqueueOptions struct {
	Priority    int
	Delay       time.Duration
	MaxAttempts int
}

func (o EnqueueOptions) validate() error {
	if o.Priority < 0 || o.Priority > 10 {
		return pkgerrors.New(pkgerrors.CodeValidation, "priority must be between 0 and 10")
	}
	if o.Delay < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delay cannot be negative")
	}
	if o.MaxAttempts < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max attempts cannot be negative")
	}
	return nil
}

// EnqueueResult is the uniform outcome of every scheduling call. Immediate
// runs carry the operation result inline; queued runs carry the job id.
type EnqueueResult struct {
	JobID     string `json:"jobId"`
	Immediate bool   `json:"immediate"`
	Result    any    `json:"result,omitempty"`
}

// QueueStats reports per-status job counts. Available is false in immediate
// mode, where no durable queue exists to count.
type QueueStats struct {
	Available bool  `json:"available"`
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Executor runs one job's work synchronously.
type Executor interface {
	Execute(ctx context.Context, jobType enums.JobType, payload JobPayload) (any, error)
}

// WorkQueue is the scheduling backend. Two implementations exist: a
// broker-backed queue with durable job rows, and a synchronous in-process
// fallback. Callers pick one at startup and depend only on this interface.
type WorkQueue interface {
	Enqueue(ctx context.Context, jobType enums.JobType, payload JobPayload, opts EnqueueOptions) (*EnqueueResult, error)
	Stats(ctx context.Context) (*QueueStats, error)
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
	Shutdown(ctx context.Context) error
	IsAvailable() bool
}
