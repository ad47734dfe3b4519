package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/raktimproloy/shopify-backend/pkg/enums"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

// ImmediateQueue executes work synchronously in-process. It is the fallback
// backend when no broker is configured or reachable at startup. Delay and
// priority options are accepted and ignored; there is no queue to order.
type ImmediateQueue struct {
	logg *logger.Logger
	exec Executor
}

// NewImmediateQueue builds the synchronous backend.
func NewImmediateQueue(logg *logger.Logger, exec Executor) (*ImmediateQueue, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor required")
	}
	return &ImmediateQueue{logg: logg, exec: exec}, nil
}

// Enqueue runs the job now and returns its result inline.
func (q *ImmediateQueue) Enqueue(ctx context.Context, jobType enums.JobType, payload JobPayload, opts EnqueueOptions) (*EnqueueResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	ctx = q.logg.WithJob(ctx, jobType.String())
	q.logg.Info(ctx, "executing job immediately")
	result, err := q.exec.Execute(ctx, jobType, payload)
	if err != nil {
		return nil, err
	}
	return &EnqueueResult{JobID: ImmediateJobID, Immediate: true, Result: result}, nil
}

// Stats returns the fixed unavailable shape; there are no queues to count.
func (q *ImmediateQueue) Stats(ctx context.Context) (*QueueStats, error) {
	return &QueueStats{Available: false}, nil
}

// Cleanup is a no-op; immediate runs leave no job rows behind.
func (q *ImmediateQueue) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

// Shutdown is a no-op.
func (q *ImmediateQueue) Shutdown(ctx context.Context) error {
	return nil
}

// IsAvailable reports false: work is not durably queued.
func (q *ImmediateQueue) IsAvailable() bool {
	return false
}
