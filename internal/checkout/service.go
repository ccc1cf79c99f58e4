package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/resale-backend/internal/notifications"
	"github.com/angelmondragon/resale-backend/internal/orders"
	pkgcheckout "github.com/angelmondragon/resale-backend/pkg/checkout"
	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/resale-backend/pkg/stripe"
	"github.com/angelmondragon/resale-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

type orderService interface {
	Create(ctx context.Context, draft orders.Draft) (*models.Order, error)
	AttachPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) error
	CommitStock(ctx context.Context, order *models.Order) (bool, error)
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, in pkgstripe.CheckoutSessionInput) (*stripe.CheckoutSession, error)
}

type outletLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Outlet, error)
}

type cartClearer interface {
	ClearForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Customer identifies who is checking out. An authenticated user wins over a
// submitted guest contact.
type Customer struct {
	UserID *uuid.UUID
	Guest  *types.GuestContact
}

// CardCheckoutInput starts a hosted card payment.
type CardCheckoutInput struct {
	Customer        Customer
	Items           []pkgcheckout.LineInput
	DeliveryMethod  enums.DeliveryMethod
	OutletID        *uuid.UUID
	ShippingAddress *types.Address
}

// CardCheckoutResult is returned to the storefront for the redirect.
type CardCheckoutResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	RedirectURL string    `json:"redirect_url"`
}

// PickupInput places an in-person cash order.
type PickupInput struct {
	Customer    Customer
	Items       []pkgcheckout.LineInput
	OutletID    *uuid.UUID
	ClientTotal *decimal.Decimal
}

// Service runs the two checkout entry points.
type Service interface {
	StartCardCheckout(ctx context.Context, input CardCheckoutInput) (*CardCheckoutResult, error)
	PlacePickupOrder(ctx context.Context, input PickupInput) (*models.Order, error)
}

// ServiceParams wires the checkout orchestrator.
type ServiceParams struct {
	Orders   orderService
	Sessions sessionCreator
	Outlets  outletLookup
	Carts    cartClearer
	Notifier notifications.Notifier
	Logger   *logger.Logger
	BaseURL  string
	Currency string
}

type service struct {
	orders   orderService
	sessions sessionCreator
	outlets  outletLookup
	carts    cartClearer
	notifier notifications.Notifier
	logg     *logger.Logger
	baseURL  string
	currency string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("payment session creator required")
	}
	if params.Outlets == nil {
		return nil, fmt.Errorf("outlet lookup required")
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
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &service{
		orders:   params.Orders,
		sessions: params.Sessions,
		outlets:  params.Outlets,
		carts:    params.Carts,
		notifier: params.Notifier,
		logg:     params.Logger,
		baseURL:  params.BaseURL,
		currency: currency,
	}, nil
}

// StartCardCheckout creates a pending order and a processor session for it.
// Stock and notifications wait for the confirmed payment.
func (s *service) StartCardCheckout(ctx context.Context, input CardCheckoutInput) (*CardCheckoutResult, error) {
	if err := pkgcheckout.ValidateLines(input.Items); err != nil {
		return nil, err
	}
	base, err := pkgcheckout.RedirectBaseURL(s.baseURL)
	if err != nil {
		s.logg.Error(ctx, "card checkout misconfigured", err)
		return nil, err
	}

	delivery := input.DeliveryMethod
	if delivery == "" {
		delivery = enums.DeliveryMethodShipping
	}
	userID, guest := resolveCustomer(input.Customer)
	order, err := s.orders.Create(ctx, orders.Draft{
		UserID:          userID,
		GuestContact:    guest,
		Items:           draftItems(input.Items),
		Currency:        s.currency,
		PaymentMethod:   enums.PaymentMethodCard,
		DeliveryMethod:  delivery,
		OutletID:        input.OutletID,
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	sessionInput := pkgstripe.CheckoutSessionInput{
		OrderID:    order.ID,
		Currency:   order.Currency,
		SuccessURL: redirectURL(base, "orders", order.ID.String(), "success") + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  redirectURL(base, "cart") + "?order_id=" + order.ID.String(),
	}
	if guest != nil {
		sessionInput.CustomerEmail = guest.Email
	}
	for _, item := range order.Items {
		sessionInput.Lines = append(sessionInput.Lines, pkgstripe.CheckoutLine{
			Name:      item.ProductName,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	session, err := s.sessions.CreateCheckoutSession(ctx, sessionInput)
	if err != nil {
		s.logg.Error(ctx, "create checkout session failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable, please try again")
	}
	if err := s.orders.AttachPaymentSession(ctx, order.ID, session.ID); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "payment_session_id", session.ID), "card checkout started")
	return &CardCheckoutResult{OrderID: order.ID, RedirectURL: session.URL}, nil
}

// PlacePickupOrder commits a cash pickup order immediately: stock is reserved,
// the cart is cleared and the confirmation is sent inline. Only order creation
// can fail the call.
func (s *service) PlacePickupOrder(ctx context.Context, input PickupInput) (*models.Order, error) {
	if input.OutletID == nil || *input.OutletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup orders require an outlet")
	}
	if err := pkgcheckout.ValidateLines(input.Items); err != nil {
		return nil, err
	}
	outlet, err := s.outlets.FindByID(ctx, *input.OutletID)
	if err != nil {
		return nil, pkgerrors.Storage(err, "load outlet")
	}
	if outlet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outlet not found").
			WithDetails(map[string]any{"outlet_id": input.OutletID.String()})
	}

	userID, guest := resolveCustomer(input.Customer)
	order, err := s.orders.Create(ctx, orders.Draft{
		UserID:         userID,
		GuestContact:   guest,
		Items:          draftItems(input.Items),
		Currency:       s.currency,
		PaymentMethod:  enums.PaymentMethodCash,
		DeliveryMethod: enums.DeliveryMethodPickup,
		OutletID:       input.OutletID,
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if input.ClientTotal != nil && !input.ClientTotal.Equal(order.Total) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"client_total": input.ClientTotal.StringFixed(2),
			"order_total":  order.Total.StringFixed(2),
		}), "pickup client total differs from line item sum")
	}

	if _, err := s.orders.CommitStock(ctx, order); err != nil {
		s.logg.Error(ctx, "pickup stock commit failed", err)
	}
	if order.UserID != nil {
		if _, err := s.carts.ClearForUser(ctx, *order.UserID); err != nil {
			s.logg.Error(ctx, "pickup cart clear failed", err)
		}
	}
	s.notifier.Send(ctx, enums.NotificationKindOrderConfirmation, order)

	s.logg.Info(ctx, "pickup order placed")
	return order, nil
}

func resolveCustomer(c Customer) (*uuid.UUID, *types.GuestContact) {
	if c.UserID != nil && *c.UserID != uuid.Nil {
		return c.UserID, nil
	}
	return nil, c.Guest
}

func draftItems(lines []pkgcheckout.LineInput) []orders.DraftItem {
	items := make([]orders.DraftItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, orders.DraftItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return items
}

func redirectURL(base *url.URL, elems ...string) string {
	return base.JoinPath(elems...).String()
}
