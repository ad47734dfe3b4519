package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// GetInventory returns the single inventory row for a (variant, channel) pair.
func (r *Repository) GetInventory(ctx context.Context, variantID uuid.UUID, channel enums.Channel) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		First(&record, "variant_id = ? AND channel = ?", variantID, channel).
		Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertInventory creates or updates the inventory row for a (variant,
// channel) pair. The unique index on the pair keeps concurrent writers from
// creating a second row; Available is always recomputed before the write.
func (r *Repository) UpsertInventory(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error) {
	record.Normalize()

	var existing models.InventoryRecord
	err := r.db.WithContext(ctx).
		First(&existing, "variant_id = ? AND channel = ?", record.VariantID, record.Channel).
		Error
	switch {
	case err == nil:
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
	default:
		return nil, err
	}

	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// SetInventoryQuantities overwrites quantity/reserved for the pair and stamps
// the sync time. The row must already exist.
func (r *Repository) SetInventoryQuantities(ctx context.Context, variantID uuid.UUID, channel enums.Channel, quantity, reserved int, syncedAt time.Time) error {
	record, err := r.GetInventory(ctx, variantID, channel)
	if err != nil {
		return err
	}
	record.Quantity = quantity
	record.Reserved = reserved
	record.Normalize()
	record.LastSyncAt = &syncedAt
	return r.db.WithContext(ctx).Save(record).Error
}

// ListInventoryByChannel returns every inventory row for one channel.
func (r *Repository) ListInventoryByChannel(ctx context.Context, channel enums.Channel) ([]models.InventoryRecord, error) {
	var rows []models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// VariantsMissingInternalInventory returns variant ids that have no
// internal-channel inventory row yet. Provisioning runs before any sync that
// assumes internal records exist.
func (r *Repository) VariantsMissingInternalInventory(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Where("id NOT IN (?)", r.db.
			Model(&models.InventoryRecord{}).
			Select("variant_id").
			Where("channel = ?", enums.ChannelInternal),
		).
		Pluck("id", &ids).
		Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
