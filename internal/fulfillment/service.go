package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/resale-backend/internal/notifications"
	"github.com/angelmondragon/resale-backend/internal/orders"
	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/google/uuid"
)

type orderService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, trackingNumber *string) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, input orders.CancelInput) (bool, error)
	ReleaseStock(ctx context.Context, order *models.Order) (bool, error)
}

// Actor is the authenticated caller driving a transition.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsStaff reports whether the actor may act on any order.
func (a Actor) IsStaff() bool {
	return a.Role == enums.RoleAdmin || a.Role == enums.RoleCompany
}

// ProcessInput moves an order to processing. IsPickup overrides the order's
// delivery method when choosing the customer message.
type ProcessInput struct {
	OrderID        uuid.UUID
	Actor          Actor
	TrackingNumber *string
	IsPickup       *bool
}

// CancelInput cancels an order that has not started processing.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

type Service interface {
	MarkProcessing(ctx context.Context, input ProcessInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
}

type ServiceParams struct {
	Orders   orderService
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	orders   orderService
	notifier notifications.Notifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{orders: params.Orders, notifier: params.Notifier, logg: params.Logger}, nil
}

// MarkProcessing attaches tracking details and notifies the customer. Stock
// is untouched; it was committed when the order was paid or placed.
func (s *service) MarkProcessing(ctx context.Context, input ProcessInput) (*models.Order, error) {
	order, err := s.loadAuthorized(ctx, input.OrderID, input.Actor, enums.FulfillmentStatusProcessing)
	if err != nil {
		return nil, err
	}
	ctx = s.actorContext(ctx, order, input.Actor)

	var tracking *string
	if input.TrackingNumber != nil && !order.IsPickup() {
		if trimmed := strings.TrimSpace(*input.TrackingNumber); trimmed != "" {
			tracking = &trimmed
		}
	}

	ok, err := s.orders.MarkProcessing(ctx, order.ID, tracking)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, stateConflict(order)
	}
	order.FulfillmentStatus = enums.FulfillmentStatusProcessing
	if tracking != nil {
		order.TrackingNumber = tracking
	}

	pickup := order.IsPickup()
	if input.IsPickup != nil {
		pickup = *input.IsPickup
	}
	kind := enums.NotificationKindOrderShipped
	if pickup {
		kind = enums.NotificationKindOrderReadyForPickup
	}
	s.notifier.Send(ctx, kind, order)

	s.logg.Info(ctx, "order moved to processing")
	return order, nil
}

// Cancel closes a pending order, restocks committed inventory and notifies the
// customer. A paid order keeps its paid status for refund handling.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	order, err := s.loadAuthorized(ctx, input.OrderID, input.Actor, enums.FulfillmentStatusCancelled)
	if err != nil {
		return nil, err
	}
	ctx = s.actorContext(ctx, order, input.Actor)

	reason := enums.CancellationReasonSellerCancelled
	if input.Actor.IsStaff() {
		reason = enums.CancellationReasonAdminCancelled
	}
	ok, err := s.orders.Cancel(ctx, order.ID, orders.CancelInput{Reason: reason})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, stateConflict(order)
	}

	if _, err := s.orders.ReleaseStock(ctx, order); err != nil {
		s.logg.Error(ctx, "restock after cancellation failed", err)
	}

	if latest, err := s.orders.Get(ctx, order.ID); err == nil {
		order = latest
	} else {
		order.FulfillmentStatus = enums.FulfillmentStatusCancelled
		order.CancellationReason = &reason
	}
	s.notifier.Send(ctx, enums.NotificationKindOrderCancelled, order)

	s.logg.Info(ctx, "order cancelled")
	return order, nil
}

func (s *service) loadAuthorized(ctx context.Context, orderID uuid.UUID, actor Actor, target enums.FulfillmentStatus) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !order.HasSeller(actor.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an admin or a seller on this order may update it")
	}
	if !orders.CanTransitionFulfillment(order.FulfillmentStatus, target) {
		return nil, stateConflict(order)
	}
	if target == enums.FulfillmentStatusProcessing && order.PaymentMethod == enums.PaymentMethodCard && order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "card order must be paid before processing").
			WithDetails(map[string]any{"payment_status": string(order.PaymentStatus)})
	}
	return order, nil
}

func (s *service) actorContext(ctx context.Context, order *models.Order, actor Actor) context.Context {
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithUserID(ctx, actor.UserID.String())
	return s.logg.WithActorRole(ctx, string(actor.Role))
}

func stateConflict(order *models.Order) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending fulfillment").
		WithDetails(map[string]any{
			"fulfillment_status": string(order.FulfillmentStatus),
			"payment_status":     string(order.PaymentStatus),
		})
}
