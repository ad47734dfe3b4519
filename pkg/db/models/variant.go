package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Variant belongs to exactly one Product and carries its own price and
// inventory per channel.
type Variant struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex:ux_variants_sku"`
	Title     string          `gorm:"column:title;not null"`
	Size      *string         `gorm:"column:size"`
	Color     *string         `gorm:"column:color"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	WeightKG  *float64        `gorm:"column:weight_kg;type:numeric(8,3)"`
	ImageKeys pq.StringArray  `gorm:"column:image_keys;type:text[]"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
