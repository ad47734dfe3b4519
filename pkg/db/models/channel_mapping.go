package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// ChannelMapping binds a local (product, variant) pair to its remote
// identifiers. At most one mapping exists per (variant, channel); failed
// mappings are kept for retry and audit, never deleted.
type ChannelMapping struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID        uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID        uuid.UUID        `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:ux_mappings_variant_channel"`
	Channel          enums.Channel    `gorm:"column:channel;not null;uniqueIndex:ux_mappings_variant_channel"`
	ChannelProductID string           `gorm:"column:channel_product_id;not null;index"`
	ChannelVariantID string           `gorm:"column:channel_variant_id;not null"`
	CachedPayload    json.RawMessage  `gorm:"column:cached_payload;type:jsonb"`
	SyncStatus       enums.SyncStatus `gorm:"column:sync_status;not null;default:pending"`
	LastSyncAt       *time.Time       `gorm:"column:last_sync_at"`
	LastError        *string          `gorm:"column:last_error"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
