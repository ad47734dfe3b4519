package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// SyncJob is the durable record of a queued scheduler job. The broker only
// carries the job id; workers load and claim the row before executing so
// retries, stats, and cleanup work from the database.
type SyncJob struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Type        enums.JobType   `gorm:"column:type;not null;index"`
	Operation   *string         `gorm:"column:operation"`
	Payload     json.RawMessage `gorm:"column:payload;type:jsonb"`
	Status      enums.JobStatus `gorm:"column:status;not null;default:waiting;index"`
	Priority    int             `gorm:"column:priority;not null;default:0"`
	Attempts    int             `gorm:"column:attempts;not null;default:0"`
	MaxAttempts int             `gorm:"column:max_attempts;not null;default:3"`
	RunAt       time.Time       `gorm:"column:run_at;not null;index"`
	StartedAt   *time.Time      `gorm:"column:started_at"`
	FinishedAt  *time.Time      `gorm:"column:finished_at"`
	LastError   *string         `gorm:"column:last_error"`
	Result      json.RawMessage `gorm:"column:result;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
