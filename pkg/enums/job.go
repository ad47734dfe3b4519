package enums

import "fmt"

// JobType identifies a schedulable job family.
type JobType string

const (
	JobTypeInventorySync JobType = "inventory-sync"
	JobTypeShopifySync   JobType = "shopify-sync"
	JobTypeProductSync   JobType = "product-sync"
)

var validJobTypes = []JobType{
	JobTypeInventorySync,
	JobTypeShopifySync,
	JobTypeProductSync,
}

// String implements fmt.Stringer.
func (t JobType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known JobType.
func (t JobType) IsValid() bool {
	for _, candidate := range validJobTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseJobType converts raw input into a JobType.
func ParseJobType(value string) (JobType, error) {
	for _, candidate := range validJobTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job type %q", value)
}

// JobStatus is the queue lifecycle state of a persisted job.
type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusDelayed   JobStatus = "delayed"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

var validJobStatuses = []JobStatus{
	JobStatusWaiting,
	JobStatusDelayed,
	JobStatusActive,
	JobStatusCompleted,
	JobStatusFailed,
}

// String implements fmt.Stringer.
func (s JobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known JobStatus.
func (s JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the status will never change again on its own.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
