package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/resale-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/resale-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

type paymentConfirmer interface {
	Confirm(ctx context.Context, orderID uuid.UUID, source string) (*payments.Result, error)
}

type ServiceParams struct {
	Payments paymentConfirmer
	Logger   *logger.Logger
}

// Service routes verified Stripe events to payment confirmation.
type Service struct {
	payments paymentConfirmer
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, fmt.Errorf("payment confirmer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

// HandleEvent applies checkout completion events. Event types it does not
// handle are acknowledged untouched.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		s.logg.Debug(ctx, "stripe event ignored")
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	orderID, ok := pkgstripe.OrderIDFromSession(&session)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id missing from checkout session").
			WithDetails(map[string]any{"session_id": session.ID})
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	// delayed payment methods complete the session before the funds settle
	if event.Type == stripe.EventTypeCheckoutSessionCompleted && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		s.logg.Info(ctx, "checkout completed with payment still pending")
		return nil
	}

	_, err := s.payments.Confirm(ctx, orderID, payments.SourceWebhook)
	return err
}
