package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/raktimproloy/shopify-backend/api/responses"
	"github.com/raktimproloy/shopify-backend/pkg/config"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

// ReadinessPinger is any dependency the readiness probe can check.
type ReadinessPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopSync-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every wired dependency. Nil pingers are skipped so the
// API can run without a broker.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]ReadinessPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopSync-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		statuses := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				statuses[name] = "disabled"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				statuses[name] = "down"
				healthy = false
				continue
			}
			statuses[name] = "up"
		}

		if !healthy {
			responses.WriteError(ctx, logg,
				w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(statuses))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}
