package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/resale-backend/api/responses"
	"github.com/angelmondragon/resale-backend/internal/cron"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

type abandonmentSweeper interface {
	Sweep(ctx context.Context) (*cron.SweepSummary, error)
}

// AdminSweep runs one abandonment sweep in-request. Per-order failures are
// counted in the summary; only a failed candidate query is an error response.
func AdminSweep(sweeper abandonmentSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := sweeper.Sweep(r.Context())
		if summary == nil {
			if err == nil {
				err = pkgerrors.New(pkgerrors.CodeInternal, "sweep returned no summary")
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "abandonment sweep failed"))
			return
		}
		if err != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "admin.sweep.partial_failure")
		}
		responses.WriteSuccess(w, summary)
	}
}
