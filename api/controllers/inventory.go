package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/api/responses"
	"github.com/raktimproloy/shopify-backend/internal/catalog"
	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

// ListInventory returns every stock row on one channel, oldest first.
// Defaults to the internal ledger when no channel is given.
func ListInventory(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository unavailable"))
			return
		}

		channel := enums.ChannelInternal
		if raw := strings.TrimSpace(r.URL.Query().Get("channel")); raw != "" {
			parsed, err := enums.ParseChannel(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel"))
				return
			}
			channel = parsed
		}

		rows, err := repo.ListInventoryByChannel(r.Context(), channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list inventory"))
			return
		}

		responses.WriteSuccess(w, map[string]any{"channel": channel, "records": rows})
	}
}

// VariantInventory returns one variant with its per-channel stock rows.
// Channels without a row yet are simply absent from the response.
func VariantInventory(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository unavailable"))
			return
		}

		variantID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id"))
			return
		}

		variant, err := repo.FindVariantByID(r.Context(), variantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find variant"))
			return
		}

		stock := map[string]*models.InventoryRecord{}
		for _, channel := range []enums.Channel{enums.ChannelInternal, enums.ChannelShopify} {
			record, err := repo.GetInventory(r.Context(), variantID, channel)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load inventory"))
				return
			}
			stock[channel.String()] = record
		}

		responses.WriteSuccess(w, map[string]any{"variant": variant, "inventory": stock})
	}
}
