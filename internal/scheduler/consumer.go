package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
	"github.com/raktimproloy/shopify-backend/pkg/metrics"
)

const jitterWindow = 2 * time.Second

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// Consumer drains the sync subscription: it claims the job row named by each
// message, runs it, and records the outcome. Retries ride on the broker's
// redelivery; a message whose job is not yet runnable is nacked back.
type Consumer struct {
	logg    *logger.Logger
	repo    *Repository
	exec    Executor
	sub     *gcppubsub.Subscriber
	metrics *metrics.SyncJobMetrics
	cfg     config.QueueConfig
	now     func() time.Time
}

// ConsumerParams collects the consumer dependencies.
type ConsumerParams struct {
	Logger     *logger.Logger
	Repo       *Repository
	Executor   Executor
	Subscriber *gcppubsub.Subscriber
	Metrics    *metrics.SyncJobMetrics
	Config     config.QueueConfig
	Now        func() time.Time
}

// NewConsumer builds the job consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("job repository required")
	}
	if params.Executor == nil {
		return nil, fmt.Errorf("executor required")
	}
	if params.Subscriber == nil {
		return nil, fmt.Errorf("subscriber required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	cfg := params.Config
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 10 * time.Minute
	}
	return &Consumer{
		logg:    params.Logger,
		repo:    params.Repo,
		exec:    params.Executor,
		sub:     params.Subscriber,
		metrics: params.Metrics,
		cfg:     cfg,
		now:     now,
	}, nil
}

// Run blocks on the subscription until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process handles one message. The return value decides ack (true) or nack.
func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"job_type":   msg.Attributes["job_type"],
	})

	var envelope jobMessage
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "malformed job message, dropping", err)
		return true
	}
	jobID, err := uuid.Parse(envelope.JobID)
	if err != nil {
		c.logg.Error(logCtx, "invalid job id, dropping", err)
		return true
	}
	logCtx = c.logg.WithField(logCtx, "job_id", jobID.String())

	job, err := c.repo.FindJob(logCtx, jobID)
	if err != nil {
		// The row may simply not be visible yet; let the broker redeliver.
		c.logg.Warn(logCtx, "job row not found yet")
		return false
	}
	if job.Status.Terminal() {
		c.logg.Info(logCtx, "job already finished, dropping message")
		return true
	}

	now := c.now()
	if job.RunAt.After(now) {
		// Delayed job: hand the message back until its run time.
		return false
	}

	claimed, err := c.repo.ClaimJob(logCtx, jobID, now)
	if err != nil {
		c.logg.Error(logCtx, "claim job", err)
		return false
	}
	if !claimed {
		c.logg.Info(logCtx, "job claimed elsewhere, dropping message")
		return true
	}
	job.Attempts++

	var payload JobPayload
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			c.failJob(logCtx, job.ID, job.Type, fmt.Errorf("malformed payload: %w", err))
			return true
		}
	}

	logCtx = c.logg.WithJob(logCtx, job.Type.String())
	started := c.now()
	result, execErr := c.exec.Execute(logCtx, job.Type, payload)
	c.metrics.ObserveDuration(job.Type.String(), c.now().Sub(started))

	if execErr == nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			encoded = nil
		}
		if err := c.repo.MarkCompleted(logCtx, job.ID, encoded, c.now()); err != nil {
			c.logg.Error(logCtx, "mark job completed", err)
			return false
		}
		c.metrics.IncSuccess(job.Type.String())
		c.logg.Info(logCtx, "job completed")
		return true
	}

	if job.Attempts >= job.MaxAttempts {
		c.failJob(logCtx, job.ID, job.Type, execErr)
		return true
	}

	delay := withJitter(nextBackoff(job.Attempts, c.cfg.BackoffBase, c.cfg.BackoffMax))
	if err := c.repo.MarkRetry(logCtx, job.ID, c.now().Add(delay), execErr); err != nil {
		c.logg.Error(logCtx, "mark job for retry", err)
	}
	c.logg.Error(c.logg.WithField(logCtx, "retry_in", delay.String()), "job attempt failed", execErr)
	return false
}

func (c *Consumer) failJob(ctx context.Context, id uuid.UUID, jobType enums.JobType, cause error) {
	if err := c.repo.MarkFailed(ctx, id, cause, c.now()); err != nil {
		c.logg.Error(ctx, "mark job failed", err)
	}
	c.metrics.IncFailure(jobType.String())
	c.logg.Error(ctx, "job failed terminally", cause)
}

// nextBackoff doubles the base per completed attempt, capped at max.
func nextBackoff(attempts int, base, max time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
