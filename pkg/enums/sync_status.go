package enums

import "fmt"

// SyncStatus tracks the reconciliation state of a ChannelMapping. There is no
// terminal state; failed mappings stay retry-eligible.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

var validSyncStatuses = []SyncStatus{
	SyncStatusPending,
	SyncStatusSynced,
	SyncStatusFailed,
}

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncStatus.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncStatus converts raw input into a SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, error) {
	for _, candidate := range validSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync status %q", value)
}

// SyncLogStatus is the outcome recorded on an audit log entry.
type SyncLogStatus string

const (
	SyncLogStatusSuccess SyncLogStatus = "success"
	SyncLogStatusFailed  SyncLogStatus = "failed"
	SyncLogStatusPartial SyncLogStatus = "partial"
)

// String implements fmt.Stringer.
func (s SyncLogStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncLogStatus.
func (s SyncLogStatus) IsValid() bool {
	switch s {
	case SyncLogStatusSuccess, SyncLogStatusFailed, SyncLogStatusPartial:
		return true
	}
	return false
}

// ParseSyncLogStatus converts raw input into a SyncLogStatus.
func ParseSyncLogStatus(value string) (SyncLogStatus, error) {
	status := SyncLogStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid sync log status %q", value)
	}
	return status, nil
}
