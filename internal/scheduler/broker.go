package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

const publishTimeout = 15 * time.Second

// jobMessage is the broker envelope. The row in sync_jobs is authoritative;
// the message just tells a worker which row to pick up.
type jobMessage struct {
	JobID string `json:"jobId"`
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// gcpPublisher adapts the Pub/Sub publisher to the narrow publisher interface.
type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}

// NewGCPPublisher wraps a Pub/Sub publisher for the broker queue.
func NewGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BrokerQueue is the durable queued backend: every job is a sync_jobs row
// plus one broker message naming it. Stats and cleanup read the rows, so they
// survive broker restarts.
type BrokerQueue struct {
	logg *logger.Logger
	repo *Repository
	tx   txRunner
	pub  publisher
	cfg  config.QueueConfig
	now  func() time.Time

	mu     sync.Mutex
	closed bool
}

// BrokerQueueParams collects the broker queue dependencies.
type BrokerQueueParams struct {
	Logger    *logger.Logger
	Repo      *Repository
	Tx        txRunner
	Publisher publisher
	Config    config.QueueConfig
	Now       func() time.Time
}

// NewBrokerQueue builds the queued backend.
func NewBrokerQueue(params BrokerQueueParams) (*BrokerQueue, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("job repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	cfg := params.Config
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &BrokerQueue{
		logg: params.Logger,
		repo: params.Repo,
		tx:   params.Tx,
		pub:  params.Publisher,
		cfg:  cfg,
		now:  now,
	}, nil
}

// Enqueue persists the job row and publishes its id. A publish failure after
// the row is written marks the row failed and reports the queue unavailable
// so the caller can degrade to an immediate run.
func (q *BrokerQueue) Enqueue(ctx context.Context, jobType enums.JobType, payload JobPayload, opts EnqueueOptions) (*EnqueueResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !jobType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown job type")
	}
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return nil, pkgerrors.New(pkgerrors.CodeQueueUnavailable, "queue is shut down")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode job payload")
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = q.cfg.MaxAttempts
	}
	status := enums.JobStatusWaiting
	if opts.Delay > 0 {
		status = enums.JobStatusDelayed
	}
	job := &models.SyncJob{
		ID:          uuid.New(),
		Type:        jobType,
		Payload:     data,
		Status:      status,
		Priority:    opts.Priority,
		MaxAttempts: maxAttempts,
		RunAt:       q.now().Add(opts.Delay),
	}
	if payload.Operation != "" {
		op := payload.Operation
		job.Operation = &op
	}

	if err := q.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := q.repo.WithTx(tx).CreateJob(ctx, job)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert job")
	}

	if err := q.publish(ctx, job); err != nil {
		if markErr := q.repo.MarkFailed(ctx, job.ID, err, q.now()); markErr != nil {
			q.logg.Error(ctx, "mark unpublished job failed", markErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeQueueUnavailable, err, "publish job message")
	}

	ctx = q.logg.WithJob(ctx, jobType.String())
	q.logg.Info(q.logg.WithField(ctx, "job_id", job.ID.String()), "job enqueued")
	return &EnqueueResult{JobID: job.ID.String(), Immediate: false}, nil
}

func (q *BrokerQueue) publish(ctx context.Context, job *models.SyncJob) error {
	data, err := json.Marshal(jobMessage{JobID: job.ID.String()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := q.pub.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_type": job.Type.String(),
		},
	})
	if result == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	_, err = result.Get(ctx)
	return err
}

// Stats counts job rows per status.
func (q *BrokerQueue) Stats(ctx context.Context) (*QueueStats, error) {
	counts, err := q.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count jobs")
	}
	return &QueueStats{
		Available: true,
		Waiting:   counts[enums.JobStatusWaiting],
		Delayed:   counts[enums.JobStatusDelayed],
		Active:    counts[enums.JobStatusActive],
		Completed: counts[enums.JobStatusCompleted],
		Failed:    counts[enums.JobStatusFailed],
	}, nil
}

// Cleanup prunes terminal job rows past the retention window.
func (q *BrokerQueue) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = time.Duration(q.cfg.RetentionDays) * 24 * time.Hour
	}
	cutoff := q.now().Add(-retention)
	deleted, err := q.repo.DeleteOldTerminal(ctx, cutoff, q.cfg.FailedKeep)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: prune jobs")
	}
	if deleted > 0 {
		q.logg.Info(q.logg.WithField(ctx, "deleted", deleted), "pruned old job rows")
	}
	return deleted, nil
}

// Shutdown stops accepting new work. In-flight workers finish their current
// job against the database on their own.
func (q *BrokerQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// IsAvailable reports true: this backend queues durably.
func (q *BrokerQueue) IsAvailable() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.closed
}
