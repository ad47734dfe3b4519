package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// Repository persists sync job rows. The broker message only carries the job
// id; everything a worker needs lives here.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a job repository bound to the shared gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateJob inserts a new job row.
func (r *Repository) CreateJob(ctx context.Context, job *models.SyncJob) (*models.SyncJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// FindJob loads one job row.
func (r *Repository) FindJob(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	var job models.SyncJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimJob transitions a runnable job to active and bumps its attempt count.
// The guarded UPDATE makes the claim safe under concurrent workers: only one
// of them sees a row flip.
func (r *Repository) ClaimJob(ctx context.Context, id uuid.UUID, claimedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Where("id = ? AND status IN ? AND run_at <= ?", id,
			[]enums.JobStatus{enums.JobStatusWaiting, enums.JobStatusDelayed}, claimedAt).
		Updates(map[string]any{
			"status":     enums.JobStatusActive,
			"started_at": claimedAt,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCompleted finishes a job with its serialized result.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, result json.RawMessage, finishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.JobStatusCompleted,
			"finished_at": finishedAt,
			"result":      result,
			"last_error":  nil,
		}).Error
}

// MarkRetry schedules a failed attempt for another run.
func (r *Repository) MarkRetry(ctx context.Context, id uuid.UUID, runAt time.Time, cause error) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.JobStatusDelayed,
			"run_at":     runAt,
			"last_error": cause.Error(),
		}).Error
}

// MarkFailed terminates a job after its attempts are exhausted.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause error, finishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.JobStatusFailed,
			"finished_at": finishedAt,
			"last_error":  cause.Error(),
		}).Error
}

// CountByStatus returns job counts for the stats surface.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.JobStatus]int64, error) {
	type row struct {
		Status enums.JobStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.SyncJob{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.JobStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// DeleteOldTerminal prunes finished jobs older than the cutoff. The most
// recent failedKeep failed rows survive regardless of age so there is always
// a window of failures left to inspect.
func (r *Repository) DeleteOldTerminal(ctx context.Context, cutoff time.Time, failedKeep int) (int64, error) {
	completed := r.db.WithContext(ctx).
		Where("status = ? AND finished_at < ?", enums.JobStatusCompleted, cutoff).
		Delete(&models.SyncJob{})
	if completed.Error != nil {
		return 0, completed.Error
	}
	deleted := completed.RowsAffected

	if failedKeep < 0 {
		failedKeep = 0
	}
	keep := r.db.
		Model(&models.SyncJob{}).
		Select("id").
		Where("status = ?", enums.JobStatusFailed).
		Order("finished_at DESC").
		Limit(failedKeep)
	failed := r.db.WithContext(ctx).
		Where("status = ? AND finished_at < ? AND id NOT IN (?)", enums.JobStatusFailed, cutoff, keep).
		Delete(&models.SyncJob{})
	if failed.Error != nil {
		return deleted, failed.Error
	}
	return deleted + failed.RowsAffected, nil
}
