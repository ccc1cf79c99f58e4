package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/angelmondragon/resale-backend/pkg/types"
)

// Order is the purchase aggregate. Exactly one of UserID and GuestContact is set.
type Order struct {
	ID                 uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	UserID             *uuid.UUID                `gorm:"column:user_id;type:uuid;index"`
	GuestContact       *types.GuestContact       `gorm:"column:guest_contact;type:jsonb;serializer:json"`
	Total              decimal.Decimal           `gorm:"column:total;type:numeric(12,2);not null"`
	Currency           string                    `gorm:"column:currency;not null;default:'usd'"`
	PaymentMethod      enums.PaymentMethod       `gorm:"column:payment_method;type:payment_method;not null"`
	DeliveryMethod     enums.DeliveryMethod      `gorm:"column:delivery_method;type:delivery_method;not null"`
	OutletID           *uuid.UUID                `gorm:"column:outlet_id;type:uuid"`
	ShippingAddress    *types.Address            `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentStatus      enums.PaymentStatus       `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	FulfillmentStatus  enums.FulfillmentStatus   `gorm:"column:fulfillment_status;type:fulfillment_status;not null;default:'pending'"`
	CancelledAt        *time.Time                `gorm:"column:cancelled_at"`
	CancellationReason *enums.CancellationReason `gorm:"column:cancellation_reason;type:cancellation_reason"`
	PaymentSessionID   *string                   `gorm:"column:payment_session_id;index"`
	TrackingNumber     *string                   `gorm:"column:tracking_number;index"`
	PaidAt             *time.Time                `gorm:"column:paid_at"`
	ProcessingAt       *time.Time                `gorm:"column:processing_at"`
	StockCommittedAt   *time.Time                `gorm:"column:stock_committed_at"`
	StockReleasedAt    *time.Time                `gorm:"column:stock_released_at"`
	Items              []OrderLineItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPickup reports whether the order is collected at an outlet.
func (o Order) IsPickup() bool {
	return o.DeliveryMethod == enums.DeliveryMethodPickup
}

// HasSeller reports whether any line item belongs to sellerID.
func (o Order) HasSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}
