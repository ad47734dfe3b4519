package enums

import "fmt"

// SyncOperation names a reconciliation operation for audit logging.
type SyncOperation string

const (
	SyncOperationDeploy        SyncOperation = "deploy"
	SyncOperationImport        SyncOperation = "import"
	SyncOperationBulkImport    SyncOperation = "bulk_import"
	SyncOperationUpdate        SyncOperation = "update"
	SyncOperationExport        SyncOperation = "export"
	SyncOperationSoftDelete    SyncOperation = "soft_delete"
	SyncOperationInventoryPull SyncOperation = "inventory_pull"
	SyncOperationInventorySync SyncOperation = "inventory_sync"
)

var validSyncOperations = []SyncOperation{
	SyncOperationDeploy,
	SyncOperationImport,
	SyncOperationBulkImport,
	SyncOperationUpdate,
	SyncOperationExport,
	SyncOperationSoftDelete,
	SyncOperationInventoryPull,
	SyncOperationInventorySync,
}

// String implements fmt.Stringer.
func (o SyncOperation) String() string {
	return string(o)
}

// IsValid reports whether the value is a known SyncOperation.
func (o SyncOperation) IsValid() bool {
	for _, candidate := range validSyncOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseSyncOperation converts raw input into a SyncOperation.
func ParseSyncOperation(value string) (SyncOperation, error) {
	for _, candidate := range validSyncOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync operation %q", value)
}
