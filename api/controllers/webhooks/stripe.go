package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/resale-backend/api/responses"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const maxWebhookBody = int64(65536)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeEventGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook verifies and applies Stripe payment events. Signature and
// malformed-event failures answer 4xx so Stripe stops retrying; storage
// failures answer 5xx so it retries.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeEventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe webhook not configured"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIntegrity, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeIntegrity, err, "verify signature"))
			return
		}

		claimed := false
		if guard != nil {
			first, err := guard.Claim(ctx, event.ID)
			switch {
			case err != nil:
				// the order-level guard still prevents double application
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "stripe event guard unavailable")
				}
			case !first:
				responses.WriteSuccess(w, map[string]any{"received": true, "duplicate": true})
				return
			default:
				claimed = true
			}
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if claimed {
				_ = guard.Release(ctx, event.ID)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "stripe_event_id", event.ID), "stripe event processed")
		}
		responses.WriteSuccess(w, map[string]any{"received": true})
	}
}
