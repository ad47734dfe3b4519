package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
)

// RecurringEntry describes one active recurring definition.
type RecurringEntry struct {
	Name    string    `json:"name"`
	Cron    string    `json:"cron"`
	NextRun time.Time `json:"nextRun"`
}

// RecurringRegistry keeps at most one cron definition per job name.
// Scheduling a name that already exists replaces the old definition in the
// same call, so two definitions for one logical job can never coexist.
// Triggering is delegated to the embedded cron runner; List computes next-run
// times from the parsed schedules, so the invariant is testable without
// starting the runner.
type RecurringRegistry struct {
	mu      sync.Mutex
	runner  *cron.Cron
	entries map[string]cron.EntryID
	specs   map[string]string
	now     func() time.Time
}

// NewRecurringRegistry builds an empty registry.
func NewRecurringRegistry(now func() time.Time) *RecurringRegistry {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RecurringRegistry{
		runner:  cron.New(),
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]string),
		now:     now,
	}
}

// Schedule registers a recurring job, replacing any existing definition with
// the same name.
func (r *RecurringRegistry) Schedule(name, spec string, job func()) error {
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recurring job name is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cron expression")
	}
	if job == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recurring job function is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.entries[name]; ok {
		r.runner.Remove(id)
		delete(r.entries, name)
		delete(r.specs, name)
	}
	id, err := r.runner.AddFunc(spec, job)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "register cron entry")
	}
	r.entries[name] = id
	r.specs[name] = spec
	return nil
}

// Clear removes the definition for a name. Removing a name that was never
// scheduled is not an error.
func (r *RecurringRegistry) Clear(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.entries[name]; ok {
		r.runner.Remove(id)
		delete(r.entries, name)
		delete(r.specs, name)
	}
}

// List returns every active definition with its next fire time.
func (r *RecurringRegistry) List() []RecurringEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entries := make([]RecurringEntry, 0, len(r.entries))
	for name, id := range r.entries {
		entry := r.runner.Entry(id)
		next := entry.Next
		if next.IsZero() && entry.Schedule != nil {
			next = entry.Schedule.Next(now)
		}
		entries = append(entries, RecurringEntry{
			Name:    name,
			Cron:    r.specs[name],
			NextRun: next,
		})
	}
	return entries
}

// Start begins firing triggers.
func (r *RecurringRegistry) Start() {
	r.runner.Start()
}

// Stop halts triggering and waits for running jobs to return.
func (r *RecurringRegistry) Stop() {
	<-r.runner.Stop().Done()
}
