package orders

import (
	"time"

	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/angelmondragon/resale-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Draft is the validated input for creating an order.
type Draft struct {
	UserID          *uuid.UUID
	GuestContact    *types.GuestContact
	Items           []DraftItem
	Currency        string
	PaymentMethod   enums.PaymentMethod
	DeliveryMethod  enums.DeliveryMethod
	OutletID        *uuid.UUID
	ShippingAddress *types.Address
}

// DraftItem carries the client price snapshot for one line.
type DraftItem struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total sums unit price times quantity over items.
func (d Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// LineItemView is the public shape of an order line.
type LineItemView struct {
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	SellerID    uuid.UUID       `json:"seller_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// OrderView is returned to owners, sellers and admins.
type OrderView struct {
	ID                 uuid.UUID                 `json:"id"`
	UserID             *uuid.UUID                `json:"user_id,omitempty"`
	GuestContact       *types.GuestContact       `json:"guest_contact,omitempty"`
	Items              []LineItemView            `json:"items"`
	Total              decimal.Decimal           `json:"total"`
	Currency           string                    `json:"currency"`
	PaymentMethod      enums.PaymentMethod       `json:"payment_method"`
	DeliveryMethod     enums.DeliveryMethod      `json:"delivery_method"`
	OutletID           *uuid.UUID                `json:"outlet_id,omitempty"`
	ShippingAddress    *types.Address            `json:"shipping_address,omitempty"`
	PaymentStatus      enums.PaymentStatus       `json:"payment_status"`
	FulfillmentStatus  enums.FulfillmentStatus   `json:"fulfillment_status"`
	TrackingNumber     *string                   `json:"tracking_number,omitempty"`
	CancelledAt        *time.Time                `json:"cancelled_at,omitempty"`
	CancellationReason *enums.CancellationReason `json:"cancellation_reason,omitempty"`
	PaidAt             *time.Time                `json:"paid_at,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// TrackingView is the anonymous lookup shape. It never carries contact or
// payment session data.
type TrackingView struct {
	ID                 uuid.UUID                 `json:"id"`
	PaymentStatus      enums.PaymentStatus       `json:"payment_status"`
	FulfillmentStatus  enums.FulfillmentStatus   `json:"fulfillment_status"`
	DeliveryMethod     enums.DeliveryMethod      `json:"delivery_method"`
	TrackingNumber     *string                   `json:"tracking_number,omitempty"`
	OutletID           *uuid.UUID                `json:"outlet_id,omitempty"`
	Items              []TrackingItemView        `json:"items"`
	Total              decimal.Decimal           `json:"total"`
	Currency           string                    `json:"currency"`
	CancelledAt        *time.Time                `json:"cancelled_at,omitempty"`
	CancellationReason *enums.CancellationReason `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// TrackingItemView omits seller identifiers.
type TrackingItemView struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// TrackQuery selects an order by id or tracking number.
type TrackQuery struct {
	OrderID        *uuid.UUID
	TrackingNumber string
}

// NewOrderView maps the model onto its API shape.
func NewOrderView(order *models.Order) OrderView {
	items := make([]LineItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemView{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			SellerID:    item.SellerID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return OrderView{
		ID:                 order.ID,
		UserID:             order.UserID,
		GuestContact:       order.GuestContact,
		Items:              items,
		Total:              order.Total,
		Currency:           order.Currency,
		PaymentMethod:      order.PaymentMethod,
		DeliveryMethod:     order.DeliveryMethod,
		OutletID:           order.OutletID,
		ShippingAddress:    order.ShippingAddress,
		PaymentStatus:      order.PaymentStatus,
		FulfillmentStatus:  order.FulfillmentStatus,
		TrackingNumber:     order.TrackingNumber,
		CancelledAt:        order.CancelledAt,
		CancellationReason: order.CancellationReason,
		PaidAt:             order.PaidAt,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}

// NewTrackingView maps the model onto the sanitized tracking shape.
func NewTrackingView(order *models.Order) TrackingView {
	items := make([]TrackingItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, TrackingItemView{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return TrackingView{
		ID:                 order.ID,
		PaymentStatus:      order.PaymentStatus,
		FulfillmentStatus:  order.FulfillmentStatus,
		DeliveryMethod:     order.DeliveryMethod,
		TrackingNumber:     order.TrackingNumber,
		OutletID:           order.OutletID,
		Items:              items,
		Total:              order.Total,
		Currency:           order.Currency,
		CancelledAt:        order.CancelledAt,
		CancellationReason: order.CancellationReason,
		CreatedAt:          order.CreatedAt,
	}
}
