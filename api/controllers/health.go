package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/resale-backend/api/responses"
	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Resale-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports 503 until both the database and redis answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Resale-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		ready := true
		for name, pinger := range map[string]Pinger{"database": db, "redis": redis} {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				ready = false
				checks[name] = "down"
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "health.dependency_down")
				}
			}
		}

		if !ready {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "checks": checks})
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
