package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
)

// inventoryLeaseScope serializes bidirectional runs. Read-only pulls are
// idempotent and run unguarded.
const inventoryLeaseScope = "inventory-sync:shopify"

// SyncInventoryReadOnly pulls remote stock levels and overwrites both the
// channel and internal inventory rows. Pull-only, so replaying it is safe.
func (e *Engine) SyncInventoryReadOnly(ctx context.Context) (*InventorySyncSummary, error) {
	ctx = e.logg.WithOperation(e.logg.WithChannel(ctx, e.channel.String()), enums.SyncOperationInventoryPull.String())

	mappings, err := e.store.ListMappingsByChannel(ctx, e.channel)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list mappings")
	}

	summary := &InventorySyncSummary{}
	for _, mapping := range mappings {
		if err := ctx.Err(); err != nil {
			return summary, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inventory pull interrupted")
		}
		if err := e.pullOne(ctx, mapping, true); err != nil {
			if errors.Is(err, errUntracked) {
				summary.Skipped++
				continue
			}
			summary.Failed++
			e.logg.Error(e.logg.WithField(ctx, "variant_id", mapping.VariantID), "inventory pull", err)
			continue
		}
		summary.SyncedFromRemote++
	}

	e.appendInventoryLog(ctx, enums.SyncOperationInventoryPull, summary)
	return summary, nil
}

// SyncInventoryBidirectional pulls remote stock for every mapping and then
// pushes internal availability back out. The whole run holds a lease so two
// overlapping runs cannot interleave a stale pull with a fresh push. The pull
// phase finishes completely before the first push.
func (e *Engine) SyncInventoryBidirectional(ctx context.Context) (*InventorySyncSummary, error) {
	ctx = e.logg.WithOperation(e.logg.WithChannel(ctx, e.channel.String()), enums.SyncOperationInventorySync.String())

	acquired, err := e.lease.Acquire(ctx, inventoryLeaseScope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire sync lease")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an inventory sync is already running for this channel")
	}
	defer func() {
		if err := e.lease.Release(context.WithoutCancel(ctx), inventoryLeaseScope); err != nil {
			e.logg.Error(ctx, "release sync lease", err)
		}
	}()

	mappings, err := e.store.ListMappingsByChannel(ctx, e.channel)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list mappings")
	}

	summary := &InventorySyncSummary{}

	// Pull phase: remote counts land on the channel rows and the internal
	// rows, so the push phase sends fresh numbers instead of clobbering a
	// remote change with stale internal stock.
	for _, mapping := range mappings {
		if err := ctx.Err(); err != nil {
			return summary, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inventory sync interrupted")
		}
		if err := e.pullOne(ctx, mapping, true); err != nil {
			if errors.Is(err, errUntracked) {
				continue
			}
			summary.Failed++
			e.logg.Error(e.logg.WithField(ctx, "variant_id", mapping.VariantID), "inventory pull", err)
			continue
		}
		summary.SyncedFromRemote++
	}

	// Push phase: internal availability goes out in batches so channel rate
	// limits are respected and a cancel takes effect between batches.
	for start := 0; start < len(mappings); start += e.cfg.BatchSize {
		if start > 0 && e.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "inventory sync interrupted")
			case <-time.After(e.cfg.BatchDelay):
			}
		}
		end := start + e.cfg.BatchSize
		if end > len(mappings) {
			end = len(mappings)
		}
		for _, mapping := range mappings[start:end] {
			pushed, err := e.pushOne(ctx, mapping)
			if err != nil {
				summary.Failed++
				e.logg.Error(e.logg.WithField(ctx, "variant_id", mapping.VariantID), "inventory push", err)
				continue
			}
			if !pushed {
				summary.Skipped++
				continue
			}
			summary.SyncedToRemote++
		}
	}

	e.appendInventoryLog(ctx, enums.SyncOperationInventorySync, summary)
	return summary, nil
}

// errUntracked marks a variant whose remote side carries no inventory.
var errUntracked = errors.New("remote inventory not tracked")

// pullOne overwrites local rows with the remote stock for one mapping. When
// mirrorInternal is set the internal row is overwritten too.
func (e *Engine) pullOne(ctx context.Context, mapping models.ChannelMapping, mirrorInternal bool) error {
	remoteProductID, err := remoteIDFromString(mapping.ChannelProductID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStaleReference, err, "mapping has a malformed remote product id")
	}
	remoteVariantID, err := remoteIDFromString(mapping.ChannelVariantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStaleReference, err, "mapping has a malformed remote variant id")
	}

	remote, err := e.remote.GetInventory(ctx, remoteProductID, remoteVariantID)
	if err != nil {
		return err
	}
	if remote == nil {
		return errUntracked
	}

	syncedAt := e.now()
	if err := e.store.SetInventoryQuantities(ctx, mapping.VariantID, e.channel, remote.Quantity, remote.Reserved, syncedAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: write channel inventory")
	}
	if mirrorInternal {
		err := e.store.SetInventoryQuantities(ctx, mapping.VariantID, enums.ChannelInternal, remote.Quantity, remote.Reserved, syncedAt)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_, err = e.store.UpsertInventory(ctx, &models.InventoryRecord{
				VariantID:  mapping.VariantID,
				Channel:    enums.ChannelInternal,
				Quantity:   remote.Quantity,
				Reserved:   remote.Reserved,
				LastSyncAt: &syncedAt,
			})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: write internal inventory")
		}
	}
	return nil
}

// pushOne sends internal availability for one mapping out to the channel.
// A variant that no longer exists remotely flips its mapping to failed and
// reports skipped; the run keeps going.
func (e *Engine) pushOne(ctx context.Context, mapping models.ChannelMapping) (bool, error) {
	remoteVariantID, err := remoteIDFromString(mapping.ChannelVariantID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStaleReference, err, "mapping has a malformed remote variant id")
	}

	exists, err := e.remote.VariantExists(ctx, remoteVariantID)
	if err != nil {
		return false, err
	}
	if !exists {
		staleErr := pkgerrors.New(pkgerrors.CodeStaleReference, "remote variant no longer exists").
			WithDetails(map[string]any{"channelVariantId": mapping.ChannelVariantID})
		if markErr := e.store.SetMappingSyncStatus(ctx, mapping.ID, enums.SyncStatusFailed, staleErr); markErr != nil {
			e.logg.Error(ctx, "mark mapping stale", markErr)
		}
		return false, nil
	}

	internal, err := e.store.GetInventory(ctx, mapping.VariantID, enums.ChannelInternal)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load internal inventory")
	}

	if err := e.remote.SetInventory(ctx, remoteVariantID, internal.Available); err != nil {
		if markErr := e.store.SetMappingSyncStatus(ctx, mapping.ID, enums.SyncStatusFailed, err); markErr != nil {
			e.logg.Error(ctx, "mark mapping failed", markErr)
		}
		return false, err
	}

	syncedAt := e.now()
	if err := e.store.SetInventoryQuantities(ctx, mapping.VariantID, e.channel, internal.Quantity, internal.Reserved, syncedAt); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mirror pushed inventory")
	}
	if err := e.store.SetMappingSyncStatus(ctx, mapping.ID, enums.SyncStatusSynced, nil); err != nil {
		e.logg.Error(ctx, "mark mapping synced", err)
	}
	return true, nil
}

// EnsureInternalInventoryExists backfills a zero-quantity internal row for
// every variant that lacks one. Returns the number of rows created.
func (e *Engine) EnsureInternalInventoryExists(ctx context.Context) (int, error) {
	missing, err := e.store.VariantsMissingInternalInventory(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find variants without internal inventory")
	}
	created := 0
	for _, variantID := range missing {
		record := &models.InventoryRecord{
			VariantID: variantID,
			Channel:   enums.ChannelInternal,
		}
		if _, err := e.store.UpsertInventory(ctx, record); err != nil {
			return created, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create internal inventory")
		}
		created++
	}
	if created > 0 {
		e.logg.Info(e.logg.WithField(ctx, "created", created), "backfilled internal inventory rows")
	}
	return created, nil
}

func (e *Engine) appendInventoryLog(ctx context.Context, op enums.SyncOperation, summary *InventorySyncSummary) {
	entry := &models.SyncLogEntry{
		Channel:   e.channel,
		Operation: op,
		Status:    summary.Status(),
		Message: fmt.Sprintf("inventory sync: %d pulled, %d pushed, %d skipped, %d failed",
			summary.SyncedFromRemote, summary.SyncedToRemote, summary.Skipped, summary.Failed),
	}
	if err := e.store.AppendSyncLogDetails(ctx, entry, map[string]any{"summary": summary}); err != nil {
		e.logg.Error(ctx, "append inventory sync log", err)
	}
}
