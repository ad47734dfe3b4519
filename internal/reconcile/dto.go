package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	"github.com/raktimproloy/shopify-backend/pkg/shopify"
)

// DeployResult reports the remote identifiers created by a deploy.
type DeployResult struct {
	ProductID       uuid.UUID `json:"productId"`
	RemoteProductID string    `json:"remoteProductId"`
	VariantCount    int       `json:"variantCount"`
}

// ImportItemError records one per-item failure inside a bulk import.
type ImportItemError struct {
	RemoteProductID string `json:"remoteProductId"`
	Message         string `json:"message"`
}

// ImportSummary aggregates importBulk outcomes. Per-item failures never abort
// the batch; they land in Errors instead.
type ImportSummary struct {
	Imported int               `json:"imported"`
	Updated  int               `json:"updated"`
	Deleted  int               `json:"deleted"`
	Failed   int               `json:"failed"`
	Total    int               `json:"total"`
	Errors   []ImportItemError `json:"errors,omitempty"`
}

// InventorySyncSummary aggregates one inventory sync run.
type InventorySyncSummary struct {
	SyncedFromRemote int `json:"syncedFromRemote"`
	SyncedToRemote   int `json:"syncedToRemote"`
	Failed           int `json:"failed"`
	Skipped          int `json:"skipped"`
}

// Status returns the audit status for the run: success only when nothing failed.
func (s InventorySyncSummary) Status() enums.SyncLogStatus {
	if s.Failed > 0 {
		return enums.SyncLogStatusPartial
	}
	return enums.SyncLogStatusSuccess
}

// UpdateProductInput carries local field changes pushed out via updateToRemote.
// Nil pointers leave the remote field untouched.
type UpdateProductInput struct {
	Title       *string
	Description *string
	Brand       *string
	Status      *enums.ProductStatus
}

// fallbackSKU derives a deterministic SKU for remote payloads that omit one.
func fallbackSKU(channel enums.Channel, remoteID int64) string {
	return fmt.Sprintf("%s-%d", channel.SKUPrefix(), remoteID)
}

// fallbackVariantSKU scopes the fallback per variant.
func fallbackVariantSKU(channel enums.Channel, remoteProductID, remoteVariantID int64) string {
	return fmt.Sprintf("%s-%d-%d", channel.SKUPrefix(), remoteProductID, remoteVariantID)
}

// parsePrice converts the channel's string price, defaulting to zero when
// absent or malformed. Prices are advisory on import; a bad price must not
// fail the whole product.
func parsePrice(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// productFromRemote maps a validated remote payload onto a new local product
// with its variants, applying the fallback rules for sku, name, and price.
func productFromRemote(channel enums.Channel, remote shopify.RemoteProduct) *models.Product {
	product := &models.Product{
		ID:     uuid.New(),
		Title:  strings.TrimSpace(remote.Title),
		Status: enums.ProductStatusActive,
	}
	if remote.BodyHTML != "" {
		desc := remote.BodyHTML
		product.Description = &desc
	}
	if remote.ProductType != "" {
		category := remote.ProductType
		product.Category = &category
	}
	if remote.Vendor != "" {
		brand := remote.Vendor
		product.Brand = &brand
	}
	if remote.Status == "archived" || remote.Status == "draft" {
		product.Status = enums.ProductStatusInactive
	}

	for _, rv := range remote.Variants {
		product.Variants = append(product.Variants, variantFromRemote(channel, remote, rv))
	}
	if len(product.Variants) == 0 {
		// Payloads without variants still need one locally so inventory and
		// mappings have a row to hang off.
		product.Variants = append(product.Variants, models.Variant{
			ID:    uuid.New(),
			Title: product.Title,
			SKU:   fallbackSKU(channel, remote.ID),
			Price: decimal.Zero,
		})
	}

	product.SKU = product.Variants[0].SKU
	product.BasePrice = product.Variants[0].Price
	return product
}

func variantFromRemote(channel enums.Channel, remote shopify.RemoteProduct, rv shopify.RemoteVariant) models.Variant {
	variant := models.Variant{
		ID:    uuid.New(),
		Title: strings.TrimSpace(rv.Title),
		SKU:   strings.TrimSpace(rv.SKU),
		Price: parsePrice(rv.Price),
	}
	if variant.SKU == "" {
		variant.SKU = fallbackVariantSKU(channel, remote.ID, rv.ID)
	}
	if variant.Title == "" {
		variant.Title = strings.TrimSpace(remote.Title)
	}
	if rv.Option1 != "" {
		size := rv.Option1
		variant.Size = &size
	}
	if rv.Option2 != "" {
		color := rv.Option2
		variant.Color = &color
	}
	if rv.Weight != nil {
		weight := *rv.Weight
		variant.WeightKG = &weight
	}
	for _, img := range remote.Images {
		if img.Src != "" {
			variant.ImageKeys = append(variant.ImageKeys, img.Src)
		}
	}
	return variant
}

// payloadFromProduct builds the outbound create/update payload for a local
// product and its variants.
func payloadFromProduct(product *models.Product) shopify.ProductPayload {
	payload := shopify.ProductPayload{
		Title:  product.Title,
		Status: remoteStatus(product.Status),
	}
	if product.Description != nil {
		payload.BodyHTML = *product.Description
	}
	if product.Brand != nil {
		payload.Vendor = *product.Brand
	}
	if product.Category != nil {
		payload.ProductType = *product.Category
	}
	for _, variant := range product.Variants {
		payload.Variants = append(payload.Variants, variantPayload(variant))
	}
	return payload
}

func variantPayload(variant models.Variant) shopify.VariantPayload {
	vp := shopify.VariantPayload{
		SKU:   variant.SKU,
		Title: variant.Title,
		Price: variant.Price.StringFixed(2),
	}
	if variant.Size != nil {
		vp.Option1 = *variant.Size
	}
	if variant.Color != nil {
		vp.Option2 = *variant.Color
	}
	if variant.WeightKG != nil {
		weight := *variant.WeightKG
		vp.Weight = &weight
		vp.WeightUnit = "kg"
	}
	return vp
}

func remoteStatus(status enums.ProductStatus) string {
	switch status {
	case enums.ProductStatusActive:
		return "active"
	case enums.ProductStatusDeleted:
		return "archived"
	default:
		return "draft"
	}
}

func remoteIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func remoteIDFromString(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}
