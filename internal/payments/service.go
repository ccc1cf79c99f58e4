package payments

import (
	"context"
	"fmt"

	"github.com/angelmondragon/resale-backend/internal/notifications"
	"github.com/angelmondragon/resale-backend/internal/orders"
	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Outcome classifies a confirmation attempt.
type Outcome string

const (
	OutcomeConfirmed   Outcome = "confirmed"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeConflict    Outcome = "conflict"
)

// Sources recorded on confirmation logs.
const (
	SourceWebhook   = "webhook"
	SourceReconcile = "reconcile"
)

type orderService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
	CommitStock(ctx context.Context, order *models.Order) (bool, error)
}

type cartClearer interface {
	ClearForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Result reports what Confirm did.
type Result struct {
	Outcome Outcome
	Order   *models.Order
}

// ServiceParams wires the payment confirmation service.
type ServiceParams struct {
	Orders   orderService
	Carts    cartClearer
	Notifier notifications.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.OrderMetrics
}

// Service applies a confirmed payment to an order exactly once.
type Service struct {
	orders   orderService
	carts    cartClearer
	notifier notifications.Notifier
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		orders:   params.Orders,
		carts:    params.Carts,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Confirm marks the order paid and then runs the stock commit, cart clear and
// confirmation notification as independent best-effort steps. Redelivery of an
// already-applied confirmation is a no-op success. Lookup and status-write
// failures are returned so the processor retries.
func (s *Service) Confirm(ctx context.Context, orderID uuid.UUID, source string) (*Result, error) {
	ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{"source": source})

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if res := s.settled(ctx, order); res != nil {
		return res, nil
	}

	transitioned, err := s.orders.MarkPaid(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		// lost a race with another delivery or the sweeper; report what won
		latest, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if res := s.settled(ctx, latest); res != nil {
			return res, nil
		}
		return nil, fmt.Errorf("order %s payment status %s did not transition", orderID, latest.PaymentStatus)
	}
	order.PaymentStatus = enums.PaymentStatusPaid

	if _, err := s.orders.CommitStock(ctx, order); err != nil {
		s.logg.Error(ctx, "stock commit after payment failed", err)
	}
	if order.UserID != nil {
		if _, err := s.carts.ClearForUser(ctx, *order.UserID); err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, order.UserID.String()), "cart clear after payment failed", err)
		}
	}
	s.notifier.Send(ctx, enums.NotificationKindOrderConfirmation, order)

	s.metrics.IncConfirmation(string(OutcomeConfirmed))
	s.logg.Info(ctx, "payment confirmed")
	return &Result{Outcome: OutcomeConfirmed, Order: order}, nil
}

func (s *Service) settled(ctx context.Context, order *models.Order) *Result {
	if orders.CanTransitionPayment(order.PaymentStatus, enums.PaymentStatusPaid) {
		return nil
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		s.metrics.IncConfirmation(string(OutcomeAlreadyPaid))
		s.logg.Info(ctx, "payment already confirmed")
		return &Result{Outcome: OutcomeAlreadyPaid, Order: order}
	}
	s.metrics.IncConfirmation(string(OutcomeConflict))
	s.logg.Warn(s.logg.WithField(ctx, "payment_status", string(order.PaymentStatus)), "payment confirmed for a closed order; manual refund review required")
	return &Result{Outcome: OutcomeConflict, Order: order}
}
