package catalog

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
)

// SyncLogFilter narrows ListSyncLogs. Zero values mean no filtering.
type SyncLogFilter struct {
	Channel   enums.Channel
	Operation enums.SyncOperation
	Status    enums.SyncLogStatus
	Limit     int
}

// AppendSyncLog writes one immutable audit entry. Marshal failures on the
// details map fall back to an entry without details; the audit trail is more
// important than its structured payload.
func (r *Repository) AppendSyncLog(ctx context.Context, entry *models.SyncLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// AppendSyncLogDetails is the convenience form taking a details map.
func (r *Repository) AppendSyncLogDetails(ctx context.Context, entry *models.SyncLogEntry, details map[string]any) error {
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}
	return r.AppendSyncLog(ctx, entry)
}

// ListSyncLogs returns recent audit entries, newest first.
func (r *Repository) ListSyncLogs(ctx context.Context, filter SyncLogFilter) ([]models.SyncLogEntry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	qb := r.db.WithContext(ctx).Model(&models.SyncLogEntry{})
	if filter.Channel != "" {
		qb = qb.Where("channel = ?", filter.Channel)
	}
	if filter.Operation != "" {
		qb = qb.Where("operation = ?", filter.Operation)
	}
	if filter.Status != "" {
		qb = qb.Where("status = ?", filter.Status)
	}
	var rows []models.SyncLogEntry
	err := qb.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
