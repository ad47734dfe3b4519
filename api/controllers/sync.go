package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/raktimproloy/shopify-backend/api/responses"
	"github.com/raktimproloy/shopify-backend/api/validators"
	"github.com/raktimproloy/shopify-backend/internal/catalog"
	"github.com/raktimproloy/shopify-backend/internal/scheduler"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

type triggerSyncRequest struct {
	Limit         int    `json:"limit,omitempty" validate:"omitempty,min=1,max=250"`
	SyncDeletions bool   `json:"syncDeletions,omitempty"`
	Priority      int    `json:"priority,omitempty" validate:"omitempty,min=0,max=10"`
	DelaySeconds  int    `json:"delaySeconds,omitempty" validate:"omitempty,min=0"`
	MaxAttempts   int    `json:"maxAttempts,omitempty" validate:"omitempty,min=0,max=10"`
	Mode          string `json:"mode,omitempty" validate:"omitempty,oneof=readonly bidirectional"`
}

func (p triggerSyncRequest) options() scheduler.EnqueueOptions {
	return scheduler.EnqueueOptions{
		Priority:    p.Priority,
		Delay:       time.Duration(p.DelaySeconds) * time.Second,
		MaxAttempts: p.MaxAttempts,
	}
}

// TriggerProductSync queues a bulk catalog import from the channel.
func TriggerProductSync(sched *scheduler.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		var payload triggerSyncRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := sched.EnqueueShopifySync(r.Context(), payload.Limit, payload.SyncDeletions, payload.options())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// TriggerInventorySync queues an inventory reconciliation pass. Mode
// "readonly" only pulls remote counts; "bidirectional" also pushes local
// availability back.
func TriggerInventorySync(sched *scheduler.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		var payload triggerSyncRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bidirectional := payload.Mode != "readonly"
		result, err := sched.EnqueueInventorySync(r.Context(), bidirectional, payload.options())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

// ListSyncLogs returns recent audit entries, newest first.
func ListSyncLogs(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := catalog.SyncLogFilter{Limit: limit}

		if raw := strings.TrimSpace(r.URL.Query().Get("channel")); raw != "" {
			channel, err := enums.ParseChannel(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel filter"))
				return
			}
			filter.Channel = channel
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("operation")); raw != "" {
			op, err := enums.ParseSyncOperation(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operation filter"))
				return
			}
			filter.Operation = op
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseSyncLogStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = status
		}

		entries, err := repo.ListSyncLogs(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sync logs"))
			return
		}

		responses.WriteSuccess(w, entries)
	}
}
