package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// CreateMapping inserts a channel mapping row. The unique index on
// (variant_id, channel) rejects a second mapping for the same pair.
func (r *Repository) CreateMapping(ctx context.Context, mapping *models.ChannelMapping) (*models.ChannelMapping, error) {
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(mapping).Error; err != nil {
		return nil, err
	}
	return mapping, nil
}

// FindMapping returns the mapping for a (variant, channel) pair.
func (r *Repository) FindMapping(ctx context.Context, variantID uuid.UUID, channel enums.Channel) (*models.ChannelMapping, error) {
	var mapping models.ChannelMapping
	err := r.db.WithContext(ctx).
		First(&mapping, "variant_id = ? AND channel = ?", variantID, channel).
		Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// FindMappingsByChannelProduct returns all variant mappings bound to one
// remote product id.
func (r *Repository) FindMappingsByChannelProduct(ctx context.Context, channel enums.Channel, channelProductID string) ([]models.ChannelMapping, error) {
	var rows []models.ChannelMapping
	err := r.db.WithContext(ctx).
		Where("channel = ? AND channel_product_id = ?", channel, channelProductID).
		Find(&rows).
		Error
	return rows, err
}

// ListMappingsByChannel returns every mapping for one channel.
func (r *Repository) ListMappingsByChannel(ctx context.Context, channel enums.Channel) ([]models.ChannelMapping, error) {
	var rows []models.ChannelMapping
	err := r.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// SetMappingSyncStatus transitions a mapping's sync status, recording the
// attempt time and error text. Mappings are never deleted; failed ones stay
// visible for retry and audit.
func (r *Repository) SetMappingSyncStatus(ctx context.Context, id uuid.UUID, status enums.SyncStatus, syncErr error) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"sync_status":  status,
		"last_sync_at": now,
	}
	if syncErr != nil {
		msg := syncErr.Error()
		updates["last_error"] = msg
	} else {
		updates["last_error"] = nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ChannelMapping{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

// UpdateMappingPayload refreshes the cached remote payload on a mapping.
func (r *Repository) UpdateMappingPayload(ctx context.Context, id uuid.UUID, payload []byte) error {
	return r.db.WithContext(ctx).
		Model(&models.ChannelMapping{}).
		Where("id = ?", id).
		Update("cached_payload", payload).
		Error
}
