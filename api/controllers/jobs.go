package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/raktimproloy/shopify-backend/api/responses"
	"github.com/raktimproloy/shopify-backend/api/validators"
	"github.com/raktimproloy/shopify-backend/internal/scheduler"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

func parseEnqueueOptions(r *http.Request) (scheduler.EnqueueOptions, error) {
	var opts scheduler.EnqueueOptions

	priority, err := validators.ParseQueryInt(r, "priority", 0, 0, 10)
	if err != nil {
		return opts, err
	}
	delaySeconds, err := validators.ParseQueryInt(r, "delaySeconds", 0, 0, 86400)
	if err != nil {
		return opts, err
	}

	opts.Priority = priority
	opts.Delay = time.Duration(delaySeconds) * time.Second
	return opts, nil
}

// JobStats reports queue depth per status plus the recurring schedule.
func JobStats(sched *scheduler.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		stats, recurring, err := sched.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"queue":     stats,
			"recurring": recurring,
		})
	}
}

type scheduleRecurringRequest struct {
	Name string `json:"name" validate:"required"`
	Cron string `json:"cron" validate:"required"`
}

// ScheduleRecurring registers (or replaces) the recurring definition for a
// job type.
func ScheduleRecurring(sched *scheduler.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		var payload scheduleRecurringRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := sched.ScheduleRecurring(payload.Name, payload.Cron); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"name": payload.Name, "cron": payload.Cron})
	}
}

// ClearRecurring removes a recurring definition. Clearing an unknown name is
// a no-op.
func ClearRecurring(sched *scheduler.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		name := chi.URLParam(r, "name")
		sched.ClearRecurring(name)
		responses.WriteSuccess(w, map[string]any{"name": name, "cleared": true})
	}
}

// CleanupJobs prunes old terminal job rows.
func CleanupJobs(sched *scheduler.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		retentionDays, err := validators.ParseQueryInt(r, "retentionDays", 0, 0, 365)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := sched.CleanupOldJobs(r.Context(), time.Duration(retentionDays)*24*time.Hour)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"removed": removed})
	}
}
