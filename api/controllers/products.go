package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/api/responses"
	"github.com/raktimproloy/shopify-backend/api/validators"
	"github.com/raktimproloy/shopify-backend/internal/catalog"
	"github.com/raktimproloy/shopify-backend/internal/reconcile"
	"github.com/raktimproloy/shopify-backend/internal/scheduler"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

// GetProductBySKU looks a product up by its merchant SKU, variants included.
func GetProductBySKU(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository unavailable"))
			return
		}

		sku := strings.TrimSpace(r.URL.Query().Get("sku"))
		if sku == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku query parameter is required"))
			return
		}

		product, err := repo.FindProductBySKU(r.Context(), sku)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"sku": sku}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find product"))
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// DeployProduct queues a first-time push of a local product to the channel.
// When the broker is down the job runs inline and the result is returned
// directly.
func DeployProduct(sched *scheduler.Scheduler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		opts, err := parseEnqueueOptions(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := sched.EnqueueProductSync(r.Context(), scheduler.OperationDeploy, scheduler.JobPayload{
			Operation: scheduler.OperationDeploy,
			ProductID: &productID,
		}, opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, result)
	}
}

type updateProductRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Brand       *string `json:"brand,omitempty" validate:"omitempty,max=255"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

func (p updateProductRequest) toInput() (reconcile.UpdateProductInput, error) {
	input := reconcile.UpdateProductInput{
		Title:       p.Title,
		Description: p.Description,
		Brand:       p.Brand,
	}
	if p.Status != nil {
		status, err := enums.ParseProductStatus(*p.Status)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product status")
		}
		input.Status = &status
	}
	return input, nil
}

// UpdateProduct applies local edits and pushes them to the channel when the
// product is mapped. The local write always lands; a failed push is reported
// without rolling it back.
func UpdateProduct(engine *reconcile.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile engine unavailable"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pushed, err := engine.UpdateToRemote(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"productId": productID, "pushed": pushed})
	}
}
