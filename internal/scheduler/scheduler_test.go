package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

// fakeExecutor records executions and returns a scripted result.
type fakeExecutor struct {
	calls  []enums.JobType
	result any
	err    error
}

func (e *fakeExecutor) Execute(ctx context.Context, jobType enums.JobType, payload JobPayload) (any, error) {
	e.calls = append(e.calls, jobType)
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

// unavailableQueue always reports the broker gone.
type unavailableQueue struct{}

func (unavailableQueue) Enqueue(ctx context.Context, jobType enums.JobType, payload JobPayload, opts EnqueueOptions) (*EnqueueResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeQueueUnavailable, "broker gone")
}
func (unavailableQueue) Stats(ctx context.Context) (*QueueStats, error) {
	return &QueueStats{Available: true}, nil
}
func (unavailableQueue) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}
func (unavailableQueue) Shutdown(ctx context.Context) error { return nil }
func (unavailableQueue) IsAvailable() bool                  { return true }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestScheduler(t *testing.T, queue WorkQueue, exec Executor) *Scheduler {
	t.Helper()
	sched, err := NewScheduler(SchedulerParams{
		Logger:   testLogger(),
		Queue:    queue,
		Executor: exec,
		Config:   config.QueueConfig{MaxAttempts: 3},
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return sched
}

func TestImmediateQueueExecutesInline(t *testing.T) {
	exec := &fakeExecutor{result: map[string]int{"imported": 2}}
	queue, err := NewImmediateQueue(testLogger(), exec)
	if err != nil {
		t.Fatalf("new immediate queue: %v", err)
	}

	result, err := queue.Enqueue(context.Background(), enums.JobTypeShopifySync, JobPayload{Limit: 10}, EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if result.JobID != ImmediateJobID || !result.Immediate {
		t.Fatalf("expected immediate result shape, got %+v", result)
	}
	if result.Result == nil {
		t.Fatal("expected inline result")
	}
	if len(exec.calls) != 1 || exec.calls[0] != enums.JobTypeShopifySync {
		t.Fatalf("expected one execution, got %v", exec.calls)
	}

	stats, err := queue.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Available {
		t.Fatal("immediate mode must report stats unavailable")
	}
	if queue.IsAvailable() {
		t.Fatal("immediate queue must report unavailable")
	}
}

func TestEnqueueOptionsValidation(t *testing.T) {
	exec := &fakeExecutor{}
	queue, _ := NewImmediateQueue(testLogger(), exec)

	cases := []EnqueueOptions{
		{Priority: -1},
		{Priority: 11},
		{Delay: -time.Second},
		{MaxAttempts: -2},
	}
	for _, opts := range cases {
		_, err := queue.Enqueue(context.Background(), enums.JobTypeInventorySync, JobPayload{}, opts)
		if err == nil {
			t.Fatalf("expected validation error for %+v", opts)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation code for %+v, got %v", opts, err)
		}
	}
	if len(exec.calls) != 0 {
		t.Fatal("invalid options must not execute")
	}
}

func TestSchedulerDegradesToImmediate(t *testing.T) {
	exec := &fakeExecutor{result: "ran"}
	sched := newTestScheduler(t, unavailableQueue{}, exec)

	result, err := sched.EnqueueInventorySync(context.Background(), true, EnqueueOptions{})
	if err != nil {
		t.Fatalf("queue unavailability must not surface: %v", err)
	}
	if !result.Immediate || result.JobID != ImmediateJobID {
		t.Fatalf("expected degraded immediate result, got %+v", result)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one immediate execution, got %d", len(exec.calls))
	}
}

func TestSchedulerSurfacesExecutionErrors(t *testing.T) {
	exec := &fakeExecutor{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	sched := newTestScheduler(t, unavailableQueue{}, exec)

	_, err := sched.EnqueueProductSync(context.Background(), OperationDeploy,
		JobPayload{ProductID: ptrUUID(uuid.New())}, EnqueueOptions{})
	if err == nil {
		t.Fatal("expected execution error to surface")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestEnqueueProductSyncRejectsUnknownOperation(t *testing.T) {
	sched := newTestScheduler(t, unavailableQueue{}, &fakeExecutor{})

	_, err := sched.EnqueueProductSync(context.Background(), "explode", JobPayload{}, EnqueueOptions{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestRecurringSingleDefinitionPerName(t *testing.T) {
	registry := NewRecurringRegistry(func() time.Time {
		return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	})

	if err := registry.Schedule("inventory-sync", "*/6 * * * *", func() {}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := registry.Schedule("inventory-sync", "0 */6 * * *", func() {}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	entries := registry.List()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one definition, got %d", len(entries))
	}
	if entries[0].Cron != "0 */6 * * *" {
		t.Fatalf("expected the second cron to win, got %s", entries[0].Cron)
	}
	if entries[0].NextRun.IsZero() {
		t.Fatal("expected a computed next-run time")
	}
}

func TestRecurringClearIsIdempotent(t *testing.T) {
	registry := NewRecurringRegistry(nil)

	registry.Clear("never-scheduled")

	if err := registry.Schedule("product-sync", "30 2 * * *", func() {}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	registry.Clear("product-sync")
	registry.Clear("product-sync")

	if entries := registry.List(); len(entries) != 0 {
		t.Fatalf("expected empty registry, got %v", entries)
	}
}

func TestRecurringRejectsBadCron(t *testing.T) {
	registry := NewRecurringRegistry(nil)
	err := registry.Schedule("inventory-sync", "not a cron", func() {})
	if err == nil {
		t.Fatal("expected invalid cron to be rejected")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestScheduleRecurringRequiresKnownJobType(t *testing.T) {
	sched := newTestScheduler(t, unavailableQueue{}, &fakeExecutor{})

	if err := sched.ScheduleRecurring("mystery-job", "* * * * *"); err == nil {
		t.Fatal("expected unknown job name to be rejected")
	}
	if err := sched.ScheduleRecurring("inventory-sync", "0 */6 * * *"); err != nil {
		t.Fatalf("known job name must schedule: %v", err)
	}
	if entries := sched.ListRecurring(); len(entries) != 1 {
		t.Fatalf("expected one recurring entry, got %d", len(entries))
	}
}

func TestRecurringInventoryDefaultsReadOnly(t *testing.T) {
	sched := newTestScheduler(t, unavailableQueue{}, &fakeExecutor{})

	if payload := sched.recurringPayload(enums.JobTypeInventorySync); payload.Bidirectional {
		t.Fatal("cron-fired inventory runs must default to pull-only")
	}
	if payload := sched.recurringPayload(enums.JobTypeShopifySync); payload.Bidirectional {
		t.Fatal("non-inventory jobs carry no bidirectional flag")
	}

	optedIn, err := NewScheduler(SchedulerParams{
		Logger:                 testLogger(),
		Queue:                  unavailableQueue{},
		Executor:               &fakeExecutor{},
		Config:                 config.QueueConfig{MaxAttempts: 3},
		RecurringBidirectional: true,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if payload := optedIn.recurringPayload(enums.JobTypeInventorySync); !payload.Bidirectional {
		t.Fatal("opted-in schedulers must fire bidirectional inventory runs")
	}
}

func TestNextBackoffProgression(t *testing.T) {
	base := 5 * time.Second
	max := time.Minute

	if got := nextBackoff(1, base, max); got != 5*time.Second {
		t.Fatalf("attempt 1: got %s", got)
	}
	if got := nextBackoff(2, base, max); got != 10*time.Second {
		t.Fatalf("attempt 2: got %s", got)
	}
	if got := nextBackoff(3, base, max); got != 20*time.Second {
		t.Fatalf("attempt 3: got %s", got)
	}
	if got := nextBackoff(10, base, max); got != max {
		t.Fatalf("expected cap at max, got %s", got)
	}
}

// fakePublishResult and fakePublisher script the broker side.
type fakePublishResult struct {
	id  string
	err error
}

func (r fakePublishResult) Get(ctx context.Context) (string, error) { return r.id, r.err }

type fakePublisher struct {
	published int
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.published++
	return fakePublishResult{id: "m1", err: p.err}
}

type gormTx struct {
	db *gorm.DB
}

func (t gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.Transaction(fn)
}

func newBroker(t *testing.T, db *gorm.DB, pub publisher) *BrokerQueue {
	t.Helper()
	queue, err := NewBrokerQueue(BrokerQueueParams{
		Logger:    testLogger(),
		Repo:      NewRepository(db),
		Tx:        gormTx{db: db},
		Publisher: pub,
		Config:    config.QueueConfig{MaxAttempts: 3, RetentionDays: 7, FailedKeep: 10},
	})
	if err != nil {
		t.Fatalf("new broker queue: %v", err)
	}
	return queue
}

func TestBrokerEnqueuePersistsAndPublishes(t *testing.T) {
	db := setupJobsTestDB(t)
	pub := &fakePublisher{}
	queue := newBroker(t, db, pub)

	result, err := queue.Enqueue(context.Background(), enums.JobTypeInventorySync,
		JobPayload{Bidirectional: true}, EnqueueOptions{Priority: 2})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if result.Immediate {
		t.Fatal("broker enqueue must not be immediate")
	}
	if pub.published != 1 {
		t.Fatalf("expected one publish, got %d", pub.published)
	}

	jobID, err := uuid.Parse(result.JobID)
	if err != nil {
		t.Fatalf("expected job id, got %q", result.JobID)
	}
	job, err := NewRepository(db).FindJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != enums.JobStatusWaiting || job.Priority != 2 || job.MaxAttempts != 3 {
		t.Fatalf("unexpected job row: %+v", job)
	}
}

func TestBrokerEnqueueDelayedJob(t *testing.T) {
	db := setupJobsTestDB(t)
	queue := newBroker(t, db, &fakePublisher{})

	result, err := queue.Enqueue(context.Background(), enums.JobTypeShopifySync,
		JobPayload{Limit: 25}, EnqueueOptions{Delay: time.Hour})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	jobID, _ := uuid.Parse(result.JobID)
	job, err := NewRepository(db).FindJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Status != enums.JobStatusDelayed {
		t.Fatalf("expected delayed status, got %s", job.Status)
	}
	if !job.RunAt.After(time.Now().UTC().Add(30 * time.Minute)) {
		t.Fatalf("expected future run_at, got %s", job.RunAt)
	}
}

func TestBrokerPublishFailureReportsQueueUnavailable(t *testing.T) {
	db := setupJobsTestDB(t)
	pub := &fakePublisher{err: errors.New("pubsub down")}
	queue := newBroker(t, db, pub)

	_, err := queue.Enqueue(context.Background(), enums.JobTypeInventorySync, JobPayload{}, EnqueueOptions{})
	if err == nil {
		t.Fatal("expected publish failure to surface")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeQueueUnavailable {
		t.Fatalf("expected queue unavailable code, got %v", err)
	}

	// The orphaned row was flipped to failed.
	counts, err := NewRepository(db).CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[enums.JobStatusFailed] != 1 {
		t.Fatalf("expected one failed row, got %+v", counts)
	}
}

func TestBrokerShutdownStopsEnqueues(t *testing.T) {
	db := setupJobsTestDB(t)
	queue := newBroker(t, db, &fakePublisher{})

	if err := queue.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if queue.IsAvailable() {
		t.Fatal("expected unavailable after shutdown")
	}
	_, err := queue.Enqueue(context.Background(), enums.JobTypeInventorySync, JobPayload{}, EnqueueOptions{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeQueueUnavailable {
		t.Fatalf("expected queue unavailable after shutdown, got %v", err)
	}
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }
