package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/resale-backend/internal/inventory"
	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/metrics"
	"github.com/angelmondragon/resale-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Service owns order creation, lookups and guarded status transitions.
// Transition methods return false when the guard did not match, which callers
// treat as an idempotent no-op.
type Service interface {
	Create(ctx context.Context, draft Draft) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Track(ctx context.Context, query TrackQuery) (*TrackingView, error)
	List(ctx context.Context, query ListQuery) (*OrderList, error)
	AbandonmentCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	AttachPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) error
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, trackingNumber *string) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, input CancelInput) (bool, error)
	CommitStock(ctx context.Context, order *models.Order) (bool, error)
	ReleaseStock(ctx context.Context, order *models.Order) (bool, error)
}

// CancelInput describes a cancellation request.
type CancelInput struct {
	Reason                enums.CancellationReason
	RequirePaymentPending bool
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo     Repository
	Products productLoader
	Tx       txRunner
	Ledger   inventory.Ledger
	Logger   *logger.Logger
	Metrics  *metrics.OrderMetrics
	Now      func() time.Time
}

type service struct {
	repo     Repository
	products productLoader
	tx       txRunner
	ledger   inventory.Ledger
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
	now      func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		tx:       params.Tx,
		ledger:   params.Ledger,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, draft Draft) (*models.Order, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(draft.Items))
	for _, item := range draft.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Storage(err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := s.now()
	order := &models.Order{
		ID:                uuid.New(),
		UserID:            draft.UserID,
		GuestContact:      draft.GuestContact,
		Total:             draft.Total(),
		Currency:          strings.ToLower(strings.TrimSpace(draft.Currency)),
		PaymentMethod:     draft.PaymentMethod,
		DeliveryMethod:    draft.DeliveryMethod,
		OutletID:          draft.OutletID,
		ShippingAddress:   draft.ShippingAddress,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if order.Currency == "" {
		order.Currency = "usd"
	}
	if order.GuestContact != nil {
		contact := order.GuestContact.Normalize()
		order.GuestContact = &contact
		if order.ShippingAddress == nil && order.DeliveryMethod == enums.DeliveryMethodShipping {
			order.ShippingAddress = contact.Address
		}
	}

	order.Items = make([]models.OrderLineItem, 0, len(draft.Items))
	for i, item := range draft.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
		order.Items = append(order.Items, models.OrderLineItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Position:    i,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			SellerID:    product.SellerID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			CreatedAt:   now,
		})
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, order)
	}); err != nil {
		return nil, pkgerrors.Storage(err, "persist order")
	}
	s.metrics.IncTransition("created")
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"payment_method":  string(order.PaymentMethod),
		"delivery_method": string(order.DeliveryMethod),
		"items":           len(order.Items),
	}), "order created")
	return order, nil
}

func validateDraft(draft Draft) error {
	if (draft.UserID == nil) == (draft.GuestContact == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires either a user or a guest contact")
	}
	if draft.UserID != nil && *draft.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is invalid")
	}
	if draft.GuestContact != nil && strings.TrimSpace(draft.GuestContact.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest email required")
	}
	if len(draft.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for i, item := range draft.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required").WithDetails(map[string]any{"index": i})
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").WithDetails(map[string]any{"index": i})
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative").WithDetails(map[string]any{"index": i})
		}
	}
	if !draft.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !draft.DeliveryMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}
	if draft.DeliveryMethod == enums.DeliveryMethodPickup && (draft.OutletID == nil || *draft.OutletID == uuid.Nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup orders require an outlet")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return order, nil
}

func (s *service) Track(ctx context.Context, query TrackQuery) (*TrackingView, error) {
	tracking := strings.TrimSpace(query.TrackingNumber)
	var (
		order *models.Order
		err   error
	)
	switch {
	case query.OrderID != nil && *query.OrderID != uuid.Nil:
		order, err = s.repo.FindByID(ctx, *query.OrderID)
	case tracking != "":
		order, err = s.repo.FindByTrackingNumber(ctx, tracking)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id or tracking number required")
	}
	if err != nil {
		return nil, mapLookupError(err)
	}
	view := NewTrackingView(order)
	return &view, nil
}

func (s *service) List(ctx context.Context, query ListQuery) (*OrderList, error) {
	orders, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Storage(err, "list orders")
	}
	list := &OrderList{Orders: make([]OrderView, 0, len(orders))}
	for i := range orders {
		list.Orders = append(list.Orders, NewOrderView(&orders[i]))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func (s *service) AbandonmentCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	orders, err := s.repo.FindAbandonmentCandidates(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Storage(err, "load abandonment candidates")
	}
	return orders, nil
}

func (s *service) AttachPaymentSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment session id required")
	}
	ok, err := s.repo.AttachPaymentSession(ctx, id, sessionID, s.now())
	if err != nil {
		return pkgerrors.Storage(err, "attach payment session")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer awaiting payment")
	}
	return nil
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.repo.MarkPaid(ctx, id, s.now())
	if err != nil {
		return false, pkgerrors.Storage(err, "mark order paid")
	}
	if ok {
		s.metrics.IncTransition("paid")
	}
	return ok, nil
}

func (s *service) MarkProcessing(ctx context.Context, id uuid.UUID, trackingNumber *string) (bool, error) {
	ok, err := s.repo.MarkProcessing(ctx, id, trackingNumber, s.now())
	if err != nil {
		return false, pkgerrors.Storage(err, "mark order processing")
	}
	if ok {
		s.metrics.IncTransition("processing")
	}
	return ok, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, input CancelInput) (bool, error) {
	if !input.Reason.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid cancellation reason")
	}
	ok, err := s.repo.MarkCancelled(ctx, id, CancelUpdate{
		Reason:                input.Reason,
		Now:                   s.now(),
		RequirePaymentPending: input.RequirePaymentPending,
	})
	if err != nil {
		return false, pkgerrors.Storage(err, "cancel order")
	}
	if ok {
		s.metrics.IncTransition("cancelled")
	}
	return ok, nil
}

// CommitStock reserves the order's lines once. The claim is recorded before the
// ledger runs so concurrent callers cannot double-decrement. Ledger errors are
// returned for logging; the claim is not rolled back.
func (s *service) CommitStock(ctx context.Context, order *models.Order) (bool, error) {
	claimed, err := s.repo.MarkStockCommitted(ctx, order.ID, s.now())
	if err != nil {
		return false, pkgerrors.Storage(err, "claim stock commit")
	}
	if !claimed {
		return false, nil
	}
	s.metrics.IncTransition("stock_committed")
	if _, err := s.ledger.Reserve(ctx, inventory.LinesFromOrder(order)); err != nil {
		return true, pkgerrors.Storage(err, "reserve stock")
	}
	return true, nil
}

// ReleaseStock restocks the order's lines once, and only when stock was committed.
func (s *service) ReleaseStock(ctx context.Context, order *models.Order) (bool, error) {
	claimed, err := s.repo.MarkStockReleased(ctx, order.ID, s.now())
	if err != nil {
		return false, pkgerrors.Storage(err, "claim stock release")
	}
	if !claimed {
		return false, nil
	}
	s.metrics.IncTransition("stock_released")
	if _, err := s.ledger.Release(ctx, inventory.LinesFromOrder(order), inventory.ReleaseOptions{FallbackToDefault: true}); err != nil {
		return true, pkgerrors.Storage(err, "release stock")
	}
	return true, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Storage(err, "load order")
}
