package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/brendonia/brendonia-backend/api/responses"
	"github.com/brendonia/brendonia-backend/pkg/config"
	pkgerrors "github.com/brendonia/brendonia-backend/pkg/errors"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is the dependency health surface checked by readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Brendonia-Env", cfg.App.Env)
		responses.WriteOK(w, map[string]any{"status": "live"})
	}
}

// HealthReady reports ready only when the datastores answer. Redis is
// optional; a nil pinger is skipped rather than failing readiness.
func HealthReady(cfg *config.Config, database Pinger, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Brendonia-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if database != nil {
			if err := database.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteOK(w, map[string]any{"status": "ready"})
	}
}
