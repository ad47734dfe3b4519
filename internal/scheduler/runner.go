package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/raktimproloy/shopify-backend/internal/reconcile"
	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/shopify"
)

// Product sync operations accepted in a JobPayload.
const (
	OperationDeploy = "deploy"
	OperationImport = "import"
	OperationUpdate = "update"
)

// engineOps is the slice of the reconciliation engine the executor drives.
type engineOps interface {
	Deploy(ctx context.Context, productID uuid.UUID) (*reconcile.DeployResult, error)
	ImportOne(ctx context.Context, remote shopify.RemoteProduct) (*models.Product, error)
	ImportBulk(ctx context.Context, limit int, syncDeletions bool) (*reconcile.ImportSummary, error)
	UpdateFromRemote(ctx context.Context, remote shopify.RemoteProduct) (bool, error)
	SyncInventoryReadOnly(ctx context.Context) (*reconcile.InventorySyncSummary, error)
	SyncInventoryBidirectional(ctx context.Context) (*reconcile.InventorySyncSummary, error)
	EnsureInternalInventoryExists(ctx context.Context) (int, error)
}

// EngineExecutor dispatches jobs onto the reconciliation engine.
type EngineExecutor struct {
	engine engineOps
}

// NewEngineExecutor wraps the engine for scheduler use.
func NewEngineExecutor(engine engineOps) (*EngineExecutor, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine required")
	}
	return &EngineExecutor{engine: engine}, nil
}

// Execute runs one job's work and returns the engine result.
func (e *EngineExecutor) Execute(ctx context.Context, jobType enums.JobType, payload JobPayload) (any, error) {
	switch jobType {
	case enums.JobTypeInventorySync:
		if _, err := e.engine.EnsureInternalInventoryExists(ctx); err != nil {
			return nil, err
		}
		if payload.Bidirectional {
			return e.engine.SyncInventoryBidirectional(ctx)
		}
		return e.engine.SyncInventoryReadOnly(ctx)

	case enums.JobTypeShopifySync:
		return e.engine.ImportBulk(ctx, payload.Limit, payload.SyncDeletions)

	case enums.JobTypeProductSync:
		return e.executeProductSync(ctx, payload)

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown job type").
			WithDetails(map[string]any{"jobType": jobType})
	}
}

func (e *EngineExecutor) executeProductSync(ctx context.Context, payload JobPayload) (any, error) {
	switch payload.Operation {
	case OperationDeploy:
		if payload.ProductID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "deploy requires a product id")
		}
		return e.engine.Deploy(ctx, *payload.ProductID)

	case OperationImport:
		remote, err := decodeRemoteProduct(payload.Remote)
		if err != nil {
			return nil, err
		}
		return e.engine.ImportOne(ctx, remote)

	case OperationUpdate:
		remote, err := decodeRemoteProduct(payload.Remote)
		if err != nil {
			return nil, err
		}
		applied, err := e.engine.UpdateFromRemote(ctx, remote)
		if err != nil {
			return nil, err
		}
		return map[string]any{"applied": applied}, nil

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product sync operation").
			WithDetails(map[string]any{"operation": payload.Operation})
	}
}

func decodeRemoteProduct(raw json.RawMessage) (shopify.RemoteProduct, error) {
	var remote shopify.RemoteProduct
	if len(raw) == 0 {
		return remote, pkgerrors.New(pkgerrors.CodeValidation, "remote product payload is required")
	}
	if err := json.Unmarshal(raw, &remote); err != nil {
		return remote, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed remote product payload")
	}
	return remote, nil
}
