package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/internal/catalog"
	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/db"
	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
	"github.com/raktimproloy/shopify-backend/pkg/shopify"
)

// Store is the catalog persistence surface the engine depends on.
type Store interface {
	WithTx(tx *gorm.DB) Store

	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	MarkProductStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error
	UpdateVariant(ctx context.Context, variant *models.Variant) (*models.Variant, error)
	ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Variant, error)

	GetInventory(ctx context.Context, variantID uuid.UUID, channel enums.Channel) (*models.InventoryRecord, error)
	UpsertInventory(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error)
	SetInventoryQuantities(ctx context.Context, variantID uuid.UUID, channel enums.Channel, quantity, reserved int, syncedAt time.Time) error
	VariantsMissingInternalInventory(ctx context.Context) ([]uuid.UUID, error)

	CreateMapping(ctx context.Context, mapping *models.ChannelMapping) (*models.ChannelMapping, error)
	FindMapping(ctx context.Context, variantID uuid.UUID, channel enums.Channel) (*models.ChannelMapping, error)
	FindMappingsByChannelProduct(ctx context.Context, channel enums.Channel, channelProductID string) ([]models.ChannelMapping, error)
	ListMappingsByChannel(ctx context.Context, channel enums.Channel) ([]models.ChannelMapping, error)
	SetMappingSyncStatus(ctx context.Context, id uuid.UUID, status enums.SyncStatus, syncErr error) error
	UpdateMappingPayload(ctx context.Context, id uuid.UUID, payload []byte) error

	AppendSyncLog(ctx context.Context, entry *models.SyncLogEntry) error
	AppendSyncLogDetails(ctx context.Context, entry *models.SyncLogEntry, details map[string]any) error
}

// RemoteClient is the channel API surface the engine depends on.
type RemoteClient interface {
	CreateProduct(ctx context.Context, payload shopify.ProductPayload) (*shopify.RemoteProduct, error)
	UpdateProduct(ctx context.Context, productID int64, payload shopify.ProductPayload) (*shopify.RemoteProduct, error)
	GetProduct(ctx context.Context, productID int64) (*shopify.RemoteProduct, error)
	ListProducts(ctx context.Context, limit int) ([]shopify.RemoteProduct, error)
	GetInventory(ctx context.Context, productID, variantID int64) (*shopify.RemoteInventory, error)
	SetInventory(ctx context.Context, variantID int64, available int) error
	VariantExists(ctx context.Context, variantID int64) (bool, error)
}

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// storeAdapter lifts *catalog.Repository into the Store interface.
type storeAdapter struct {
	*catalog.Repository
}

func (a storeAdapter) WithTx(tx *gorm.DB) Store {
	return storeAdapter{a.Repository.WithTx(tx)}
}

// NewStore wraps a catalog repository for engine use.
func NewStore(repo *catalog.Repository) Store {
	return storeAdapter{repo}
}

// ServiceParams collects the engine dependencies.
type ServiceParams struct {
	Logger *logger.Logger
	Store  Store
	Remote RemoteClient
	Tx     TxRunner
	Lease  Lease
	Config config.SyncConfig
	Now    func() time.Time
}

// Engine reconciles the local catalog with one remote sales channel.
type Engine struct {
	logg    *logger.Logger
	store   Store
	remote  RemoteClient
	tx      TxRunner
	lease   Lease
	cfg     config.SyncConfig
	channel enums.Channel
	now     func() time.Time
}

// NewEngine constructs the reconciliation engine.
func NewEngine(params ServiceParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote client required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Lease == nil {
		return nil, fmt.Errorf("lease required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	cfg := params.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.DefaultImportLimit <= 0 {
		cfg.DefaultImportLimit = 250
	}
	return &Engine{
		logg:    params.Logger,
		store:   params.Store,
		remote:  params.Remote,
		tx:      params.Tx,
		lease:   params.Lease,
		cfg:     cfg,
		channel: enums.ChannelShopify,
		now:     now,
	}, nil
}

// Channel returns the remote channel this engine reconciles against.
func (e *Engine) Channel() enums.Channel {
	return e.channel
}

// Deploy pushes a local product to the remote channel and records mappings
// plus a remote inventory row for every variant. The remote create happens
// first; local bookkeeping lands in one transaction afterwards so a remote
// failure leaves no half-written mappings.
func (e *Engine) Deploy(ctx context.Context, productID uuid.UUID) (*DeployResult, error) {
	ctx = e.logg.WithOperation(e.logg.WithChannel(ctx, e.channel.String()), enums.SyncOperationDeploy.String())

	product, err := e.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status == enums.ProductStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deploy a deleted product")
	}
	if len(product.Variants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no variants to deploy")
	}
	for _, variant := range product.Variants {
		existing, err := e.store.FindMapping(ctx, variant.ID, e.channel)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check mapping")
		}
		if existing != nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is already deployed to this channel").
				WithDetails(map[string]any{"variantId": variant.ID, "channelProductId": existing.ChannelProductID})
		}
	}

	remote, err := e.remote.CreateProduct(ctx, payloadFromProduct(product))
	if err != nil {
		e.appendFailureLog(ctx, enums.SyncOperationDeploy, &product.ID, nil, nil, "remote product create failed", err)
		return nil, err
	}

	if txErr := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txStore := e.store.WithTx(tx)
		for i, variant := range product.Variants {
			remoteVariant := matchRemoteVariant(remote, variant.SKU, i)
			mapping := &models.ChannelMapping{
				ProductID:        product.ID,
				VariantID:        variant.ID,
				Channel:          e.channel,
				ChannelProductID: remoteIDString(remote.ID),
				ChannelVariantID: remoteIDString(remoteVariant.ID),
				SyncStatus:       enums.SyncStatusSynced,
			}
			if payload, err := json.Marshal(remoteVariant); err == nil {
				mapping.CachedPayload = payload
			}
			syncedAt := e.now()
			mapping.LastSyncAt = &syncedAt
			if _, err := txStore.CreateMapping(ctx, mapping); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert mapping")
			}

			quantity := 0
			if internal, err := txStore.GetInventory(ctx, variant.ID, enums.ChannelInternal); err == nil {
				quantity = internal.Available
			}
			record := &models.InventoryRecord{
				VariantID: variant.ID,
				Channel:   e.channel,
				Quantity:  quantity,
			}
			if _, err := txStore.UpsertInventory(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert remote inventory")
			}
		}
		remoteID := remoteIDString(remote.ID)
		return txStore.AppendSyncLog(ctx, &models.SyncLogEntry{
			Channel:         e.channel,
			Operation:       enums.SyncOperationDeploy,
			Status:          enums.SyncLogStatusSuccess,
			ProductID:       &product.ID,
			RemoteProductID: &remoteID,
			Message:         fmt.Sprintf("deployed %d variant(s)", len(product.Variants)),
		})
	}); txErr != nil {
		e.appendFailureLog(ctx, enums.SyncOperationDeploy, &product.ID, nil, nil, "local deploy bookkeeping failed", txErr)
		return nil, txErr
	}

	e.logg.Info(e.logg.WithField(ctx, "remote_product_id", remote.ID), "product deployed")
	return &DeployResult{
		ProductID:       product.ID,
		RemoteProductID: remoteIDString(remote.ID),
		VariantCount:    len(product.Variants),
	}, nil
}

// ImportOne creates a local product from one remote payload. Product,
// variants, both inventory rows, and the mapping land in a single
// transaction.
func (e *Engine) ImportOne(ctx context.Context, remote shopify.RemoteProduct) (*models.Product, error) {
	ctx = e.logg.WithOperation(e.logg.WithChannel(ctx, e.channel.String()), enums.SyncOperationImport.String())

	if remote.ID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote product id is required")
	}
	if strings.TrimSpace(remote.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote product title is required")
	}

	existing, err := e.store.FindMappingsByChannelProduct(ctx, e.channel, remoteIDString(remote.ID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check existing mappings")
	}
	if len(existing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "remote product is already imported").
			WithDetails(map[string]any{"remoteProductId": remote.ID})
	}

	product := productFromRemote(e.channel, remote)
	if txErr := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txStore := e.store.WithTx(tx)
		if _, err := txStore.CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists locally")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		for i, variant := range product.Variants {
			quantity := 0
			channelVariantID := remoteIDString(remote.ID)
			if i < len(remote.Variants) {
				rv := remote.Variants[i]
				channelVariantID = remoteIDString(rv.ID)
				if rv.InventoryQuantity != nil {
					quantity = *rv.InventoryQuantity
				}
			}
			for _, channel := range []enums.Channel{enums.ChannelInternal, e.channel} {
				record := &models.InventoryRecord{
					VariantID: variant.ID,
					Channel:   channel,
					Quantity:  quantity,
				}
				if _, err := txStore.UpsertInventory(ctx, record); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert inventory")
				}
			}
			syncedAt := e.now()
			mapping := &models.ChannelMapping{
				ProductID:        product.ID,
				VariantID:        variant.ID,
				Channel:          e.channel,
				ChannelProductID: remoteIDString(remote.ID),
				ChannelVariantID: channelVariantID,
				SyncStatus:       enums.SyncStatusSynced,
				LastSyncAt:       &syncedAt,
			}
			if i < len(remote.Variants) {
				if payload, err := json.Marshal(remote.Variants[i]); err == nil {
					mapping.CachedPayload = payload
				}
			}
			if _, err := txStore.CreateMapping(ctx, mapping); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert mapping")
			}
		}
		remoteID := remoteIDString(remote.ID)
		return txStore.AppendSyncLog(ctx, &models.SyncLogEntry{
			Channel:         e.channel,
			Operation:       enums.SyncOperationImport,
			Status:          enums.SyncLogStatusSuccess,
			ProductID:       &product.ID,
			RemoteProductID: &remoteID,
			Message:         fmt.Sprintf("imported %q with %d variant(s)", product.Title, len(product.Variants)),
		})
	}); txErr != nil {
		remoteID := remoteIDString(remote.ID)
		e.appendFailureLog(ctx, enums.SyncOperationImport, nil, nil, &remoteID, "import failed", txErr)
		return nil, txErr
	}

	return product, nil
}

// ImportBulk reconciles the whole remote listing into the local catalog.
// Per-item failures are collected, never fatal. When syncDeletions is set,
// locally mapped products missing from the remote listing are soft-deleted
// before the import pass.
func (e *Engine) ImportBulk(ctx context.Context, limit int, syncDeletions bool) (*ImportSummary, error) {
	ctx = e.logg.WithOperation(e.logg.WithChannel(ctx, e.channel.String()), enums.SyncOperationBulkImport.String())
	if limit <= 0 {
		limit = e.cfg.DefaultImportLimit
	}

	remotes, err := e.remote.ListProducts(ctx, limit)
	if err != nil {
		e.appendFailureLog(ctx, enums.SyncOperationBulkImport, nil, nil, nil, "remote listing failed", err)
		return nil, err
	}

	summary := &ImportSummary{Total: len(remotes)}
	present := make(map[string]struct{}, len(remotes))
	for _, remote := range remotes {
		present[remoteIDString(remote.ID)] = struct{}{}
	}

	if syncDeletions {
		deleted, err := e.softDeleteMissing(ctx, present)
		if err != nil {
			return nil, err
		}
		summary.Deleted = deleted
	}

	for _, remote := range remotes {
		if err := ctx.Err(); err != nil {
			return summary, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bulk import interrupted")
		}
		mappings, err := e.store.FindMappingsByChannelProduct(ctx, e.channel, remoteIDString(remote.ID))
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, ImportItemError{RemoteProductID: remoteIDString(remote.ID), Message: err.Error()})
			continue
		}
		if len(mappings) > 0 {
			if _, err := e.applyRemoteProduct(ctx, remote, mappings); err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, ImportItemError{RemoteProductID: remoteIDString(remote.ID), Message: err.Error()})
				continue
			}
			summary.Updated++
			continue
		}
		if _, err := e.ImportOne(ctx, remote); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, ImportItemError{RemoteProductID: remoteIDString(remote.ID), Message: err.Error()})
			continue
		}
		summary.Imported++
	}

	status := enums.SyncLogStatusSuccess
	if summary.Failed > 0 {
		status = enums.SyncLogStatusPartial
	}
	entry := &models.SyncLogEntry{
		Channel:   e.channel,
		Operation: enums.SyncOperationBulkImport,
		Status:    status,
		Message: fmt.Sprintf("bulk import: %d imported, %d updated, %d deleted, %d failed of %d",
			summary.Imported, summary.Updated, summary.Deleted, summary.Failed, summary.Total),
	}
	if err := e.store.AppendSyncLogDetails(ctx, entry, map[string]any{"summary": summary}); err != nil {
		e.logg.Error(ctx, "append bulk import log", err)
	}
	return summary, nil
}

// UpdateFromRemote applies a remote product change to the local catalog. A
// payload with no local mapping is skipped without error so webhook-style
// feeds can replay events for products that were never imported.
func (e *Engine) UpdateFromRemote(ctx context.Context, remote shopify.RemoteProduct) (bool, error) {
	ctx = e.logg.WithOperation(e.logg.WithChannel(ctx, e.channel.String()), enums.SyncOperationUpdate.String())
	if remote.ID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "remote product id is required")
	}

	mappings, err := e.store.FindMappingsByChannelProduct(ctx, e.channel, remoteIDString(remote.ID))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load mappings")
	}
	if len(mappings) == 0 {
		e.logg.Debug(e.logg.WithField(ctx, "remote_product_id", remote.ID), "no local mapping, skipping remote update")
		return false, nil
	}
	return e.applyRemoteProduct(ctx, remote, mappings)
}

// applyRemoteProduct writes remote field changes onto the mapped local
// product and variants inside one transaction.
func (e *Engine) applyRemoteProduct(ctx context.Context, remote shopify.RemoteProduct, mappings []models.ChannelMapping) (bool, error) {
	productID := mappings[0].ProductID
	remoteVariantByID := make(map[string]shopify.RemoteVariant, len(remote.Variants))
	for _, rv := range remote.Variants {
		remoteVariantByID[remoteIDString(rv.ID)] = rv
	}

	if txErr := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txStore := e.store.WithTx(tx)
		product, err := txStore.FindProductByID(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load mapped product")
		}

		product.Title = strings.TrimSpace(remote.Title)
		if remote.BodyHTML != "" {
			desc := remote.BodyHTML
			product.Description = &desc
		}
		if remote.Vendor != "" {
			brand := remote.Vendor
			product.Brand = &brand
		}
		if remote.ProductType != "" {
			category := remote.ProductType
			product.Category = &category
		}
		if product.Status != enums.ProductStatusDeleted {
			if remote.Status == "archived" || remote.Status == "draft" {
				product.Status = enums.ProductStatusInactive
			} else if remote.Status == "active" {
				product.Status = enums.ProductStatusActive
			}
		}
		if _, err := txStore.UpdateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		variants, err := txStore.ListVariantsByProduct(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load variants")
		}
		variantByID := make(map[uuid.UUID]*models.Variant, len(variants))
		for i := range variants {
			variantByID[variants[i].ID] = &variants[i]
		}

		for _, mapping := range mappings {
			rv, ok := remoteVariantByID[mapping.ChannelVariantID]
			if !ok {
				continue
			}
			variant := variantByID[mapping.VariantID]
			if variant == nil {
				continue
			}
			if title := strings.TrimSpace(rv.Title); title != "" {
				variant.Title = title
			}
			if price := strings.TrimSpace(rv.Price); price != "" {
				variant.Price = parsePrice(price)
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
			if _, err := txStore.UpdateVariant(ctx, variant); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update variant")
			}
			if err := txStore.SetMappingSyncStatus(ctx, mapping.ID, enums.SyncStatusSynced, nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark mapping synced")
			}
			if payload, err := json.Marshal(rv); err == nil {
				if err := txStore.UpdateMappingPayload(ctx, mapping.ID, payload); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cache mapping payload")
				}
			}
		}

		remoteID := remoteIDString(remote.ID)
		return txStore.AppendSyncLog(ctx, &models.SyncLogEntry{
			Channel:         e.channel,
			Operation:       enums.SyncOperationUpdate,
			Status:          enums.SyncLogStatusSuccess,
			ProductID:       &productID,
			RemoteProductID: &remoteID,
			Message:         "applied remote product update",
		})
	}); txErr != nil {
		remoteID := remoteIDString(remote.ID)
		e.appendFailureLog(ctx, enums.SyncOperationUpdate, &productID, nil, &remoteID, "remote update failed locally", txErr)
		return false, txErr
	}
	return true, nil
}

// UpdateToRemote applies local field changes and pushes the resulting state
// out to the channel. A product with no mapping is updated locally and
// skipped remotely. The local write is kept when the remote push fails; the
// mapping flips to failed so a later sync retries it.
func (e *Engine) UpdateToRemote(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (bool, error) {
	ctx = e.logg.WithOperation(e.logg.WithChannel(ctx, e.channel.String()), enums.SyncOperationExport.String())

	product, err := e.loadProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}

	if txErr := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txStore := e.store.WithTx(tx)
		if input.Title != nil {
			product.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			product.Description = input.Description
		}
		if input.Brand != nil {
			product.Brand = input.Brand
		}
		if input.Status != nil {
			product.Status = *input.Status
		}
		_, err := txStore.UpdateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		return nil
	}); txErr != nil {
		return false, txErr
	}

	mappings := make([]models.ChannelMapping, 0, len(product.Variants))
	for _, variant := range product.Variants {
		mapping, err := e.store.FindMapping(ctx, variant.ID, e.channel)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load mapping")
		}
		mappings = append(mappings, *mapping)
	}
	if len(mappings) == 0 {
		e.logg.Debug(e.logg.WithField(ctx, "product_id", productID), "no channel mapping, local update only")
		return false, nil
	}

	remoteID, err := remoteIDFromString(mappings[0].ChannelProductID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStaleReference, err, "mapping has a malformed remote product id")
	}

	if _, err := e.remote.UpdateProduct(ctx, remoteID, payloadFromProduct(product)); err != nil {
		for _, mapping := range mappings {
			if markErr := e.store.SetMappingSyncStatus(ctx, mapping.ID, enums.SyncStatusFailed, err); markErr != nil {
				e.logg.Error(ctx, "mark mapping failed", markErr)
			}
		}
		remoteIDValue := mappings[0].ChannelProductID
		e.appendFailureLog(ctx, enums.SyncOperationExport, &product.ID, nil, &remoteIDValue, "remote product update failed", err)
		return false, err
	}

	for _, mapping := range mappings {
		if err := e.store.SetMappingSyncStatus(ctx, mapping.ID, enums.SyncStatusSynced, nil); err != nil {
			e.logg.Error(ctx, "mark mapping synced", err)
		}
	}
	remoteIDValue := mappings[0].ChannelProductID
	if err := e.store.AppendSyncLog(ctx, &models.SyncLogEntry{
		Channel:         e.channel,
		Operation:       enums.SyncOperationExport,
		Status:          enums.SyncLogStatusSuccess,
		ProductID:       &product.ID,
		RemoteProductID: &remoteIDValue,
		Message:         "pushed local product update",
	}); err != nil {
		e.logg.Error(ctx, "append export log", err)
	}
	return true, nil
}

// softDeleteMissing marks mapped products absent from the remote listing as
// deleted. Returns the number of distinct products flipped.
func (e *Engine) softDeleteMissing(ctx context.Context, present map[string]struct{}) (int, error) {
	mappings, err := e.store.ListMappingsByChannel(ctx, e.channel)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list mappings")
	}
	seen := make(map[uuid.UUID]struct{})
	deleted := 0
	for _, mapping := range mappings {
		if _, ok := present[mapping.ChannelProductID]; ok {
			continue
		}
		if _, ok := seen[mapping.ProductID]; ok {
			continue
		}
		seen[mapping.ProductID] = struct{}{}

		product, err := e.store.FindProductByID(ctx, mapping.ProductID)
		if err != nil || product.Status == enums.ProductStatusDeleted {
			continue
		}
		if err := e.store.MarkProductStatus(ctx, mapping.ProductID, enums.ProductStatusDeleted); err != nil {
			return deleted, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: soft delete product")
		}
		productID := mapping.ProductID
		remoteID := mapping.ChannelProductID
		if err := e.store.AppendSyncLog(ctx, &models.SyncLogEntry{
			Channel:         e.channel,
			Operation:       enums.SyncOperationSoftDelete,
			Status:          enums.SyncLogStatusSuccess,
			ProductID:       &productID,
			RemoteProductID: &remoteID,
			Message:         "product missing from remote listing, soft-deleted",
		}); err != nil {
			e.logg.Error(ctx, "append soft delete log", err)
		}
		deleted++
	}
	return deleted, nil
}

// loadProduct fetches a product with variants, mapping the missing-row case
// to a NotFound error.
func (e *Engine) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := e.store.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

// matchRemoteVariant pairs a local variant with its remote counterpart by
// SKU, falling back to position.
func matchRemoteVariant(remote *shopify.RemoteProduct, sku string, index int) shopify.RemoteVariant {
	for _, rv := range remote.Variants {
		if rv.SKU != "" && rv.SKU == sku {
			return rv
		}
	}
	if index < len(remote.Variants) {
		return remote.Variants[index]
	}
	return shopify.RemoteVariant{ID: remote.ID}
}

// appendFailureLog records a failed operation in the audit log. Logging
// failures are reported but never mask the original error.
func (e *Engine) appendFailureLog(ctx context.Context, op enums.SyncOperation, productID, variantID *uuid.UUID, remoteProductID *string, message string, cause error) {
	entry := &models.SyncLogEntry{
		Channel:         e.channel,
		Operation:       op,
		Status:          enums.SyncLogStatusFailed,
		ProductID:       productID,
		VariantID:       variantID,
		RemoteProductID: remoteProductID,
		Message:         message,
	}
	if err := e.store.AppendSyncLogDetails(ctx, entry, map[string]any{"error": cause.Error()}); err != nil {
		e.logg.Error(ctx, "append failure log", err)
	}
}
