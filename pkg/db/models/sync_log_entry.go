package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// SyncLogEntry is the append-only audit record of a reconciliation attempt.
// It is the sole durable record of why catalog or inventory state changed.
type SyncLogEntry struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Channel         enums.Channel       `gorm:"column:channel;not null;index"`
	Operation       enums.SyncOperation `gorm:"column:operation;not null;index"`
	Status          enums.SyncLogStatus `gorm:"column:status;not null;index"`
	ProductID       *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	VariantID       *uuid.UUID          `gorm:"column:variant_id;type:uuid"`
	RemoteProductID *string             `gorm:"column:remote_product_id"`
	Message         string              `gorm:"column:message;not null"`
	Details         json.RawMessage     `gorm:"column:details;type:jsonb"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}
