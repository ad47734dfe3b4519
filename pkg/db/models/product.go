package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// Product is the canonical catalog listing. Rows are soft-deleted by flipping
// Status; orders and sync logs keep referencing them.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SKU         string              `gorm:"column:sku;not null;uniqueIndex:ux_products_sku"`
	Title       string              `gorm:"column:title;not null"`
	Description *string             `gorm:"column:description"`
	Category    *string             `gorm:"column:category"`
	Brand       *string             `gorm:"column:brand"`
	BasePrice   decimal.Decimal     `gorm:"column:base_price;type:numeric(12,2);not null"`
	Status      enums.ProductStatus `gorm:"column:status;not null;default:active"`
	Variants    []Variant           `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
