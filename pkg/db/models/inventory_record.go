package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// InventoryRecord tracks stock for one (variant, channel) pair. Exactly one
// row exists per pair; rows are updated in place and never deleted.
// Available must always equal Quantity - Reserved and never go negative.
type InventoryRecord struct {
	ID         uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	VariantID  uuid.UUID     `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:ux_inventory_variant_channel"`
	Channel    enums.Channel `gorm:"column:channel;not null;uniqueIndex:ux_inventory_variant_channel"`
	Quantity   int           `gorm:"column:quantity;not null;default:0"`
	Reserved   int           `gorm:"column:reserved;not null;default:0"`
	Available  int           `gorm:"column:available;not null;default:0"`
	LastSyncAt *time.Time    `gorm:"column:last_sync_at"`
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// Normalize recomputes Available from Quantity and Reserved, clamping at zero.
func (r *InventoryRecord) Normalize() {
	if r.Quantity < 0 {
		r.Quantity = 0
	}
	if r.Reserved < 0 {
		r.Reserved = 0
	}
	if r.Reserved > r.Quantity {
		r.Reserved = r.Quantity
	}
	r.Available = r.Quantity - r.Reserved
}
