package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/angelmondragon/resale-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists orders. Status writes are single guarded statements and
// report whether the row actually transitioned.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	List(ctx context.Context, query ListQuery) ([]models.Order, *pagination.Cursor, error)
	FindAbandonmentCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	AttachPaymentSession(ctx context.Context, id uuid.UUID, sessionID string, now time.Time) (bool, error)
	MarkPaid(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, trackingNumber *string, now time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, input CancelUpdate) (bool, error)
	MarkStockCommitted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkStockReleased(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

// ListQuery filters order listings. Zero values are ignored.
type ListQuery struct {
	UserID            *uuid.UUID
	SellerID          *uuid.UUID
	PaymentStatus     *enums.PaymentStatus
	FulfillmentStatus *enums.FulfillmentStatus
	PaymentMethod     *enums.PaymentMethod
	Limit             int
	Cursor            *pagination.Cursor
}

// CancelUpdate describes a guarded cancellation write.
type CancelUpdate struct {
	Reason enums.CancellationReason
	Now    time.Time
	// RequirePaymentPending restricts the write to orders that are still unpaid.
	RequirePaymentPending bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its line items together.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	var order models.Order
	err := r.withItems(ctx).Where("tracking_number = ?", trackingNumber).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(query.Limit)
	q := r.withItems(ctx).Model(&models.Order{})
	if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.SellerID != nil {
		q = q.Where("id IN (?)", r.db.Model(&models.OrderLineItem{}).Select("order_id").Where("seller_id = ?", *query.SellerID))
	}
	if query.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *query.PaymentStatus)
	}
	if query.FulfillmentStatus != nil {
		q = q.Where("fulfillment_status = ?", *query.FulfillmentStatus)
	}
	if query.PaymentMethod != nil {
		q = q.Where("payment_method = ?", *query.PaymentMethod)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&orders).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(orders, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

// FindAbandonmentCandidates returns unpaid card orders created before cutoff, oldest first.
func (r *repository) FindAbandonmentCandidates(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	q := r.withItems(ctx).
		Where("payment_method = ?", enums.PaymentMethodCard).
		Where("payment_status = ?", enums.PaymentStatusPending).
		Where("fulfillment_status = ?", enums.FulfillmentStatusPending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) AttachPaymentSession(ctx context.Context, id uuid.UUID, sessionID string, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending)
		},
		map[string]any{"payment_session_id": sessionID, "updated_at": now},
	)
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending)
		},
		map[string]any{"payment_status": enums.PaymentStatusPaid, "paid_at": now, "updated_at": now},
	)
}

func (r *repository) MarkProcessing(ctx context.Context, id uuid.UUID, trackingNumber *string, now time.Time) (bool, error) {
	updates := map[string]any{
		"fulfillment_status": enums.FulfillmentStatusProcessing,
		"processing_at":      now,
		"updated_at":         now,
	}
	if trackingNumber != nil {
		updates["tracking_number"] = *trackingNumber
	}
	return r.guardedUpdate(ctx,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("id = ? AND fulfillment_status = ?", id, enums.FulfillmentStatusPending).
				Where("(payment_method <> ? OR payment_status = ?)", enums.PaymentMethodCard, enums.PaymentStatusPaid)
		},
		updates,
	)
}

// MarkCancelled moves fulfillment to cancelled. Payment pending becomes cancelled,
// paid stays paid and anything else is recorded as failed.
func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, input CancelUpdate) (bool, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Where("id = ? AND fulfillment_status = ?", id, enums.FulfillmentStatusPending)
		if input.RequirePaymentPending {
			q = q.Where("payment_status = ?", enums.PaymentStatusPending)
		}
		return q
	}
	return r.guardedUpdate(ctx, scope, map[string]any{
		"fulfillment_status": enums.FulfillmentStatusCancelled,
		"payment_status": gorm.Expr(
			"CASE WHEN payment_status = ? THEN ? WHEN payment_status = ? THEN ? ELSE ? END",
			enums.PaymentStatusPending, enums.PaymentStatusCancelled,
			enums.PaymentStatusPaid, enums.PaymentStatusPaid,
			enums.PaymentStatusFailed,
		),
		"cancelled_at":        input.Now,
		"cancellation_reason": input.Reason,
		"updated_at":          input.Now,
	})
}

func (r *repository) MarkStockCommitted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("id = ? AND stock_committed_at IS NULL", id)
		},
		map[string]any{"stock_committed_at": now, "updated_at": now},
	)
}

func (r *repository) MarkStockReleased(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.guardedUpdate(ctx,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("id = ? AND stock_committed_at IS NOT NULL AND stock_released_at IS NULL", id)
		},
		map[string]any{"stock_released_at": now, "updated_at": now},
	)
}

func (r *repository) guardedUpdate(ctx context.Context, scope func(*gorm.DB) *gorm.DB, updates map[string]any) (bool, error) {
	res := scope(r.db.WithContext(ctx).Model(&models.Order{})).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}
