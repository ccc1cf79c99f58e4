package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/angelmondragon/resale-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryMarkPaidIsGuarded(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, nil)
	now := time.Now().UTC()

	ok, err := repo.MarkPaid(context.Background(), order.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkPaid(context.Background(), order.ID, now)
	require.NoError(t, err)
	assert.False(t, ok, "second paid transition must be a no-op")

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	require.NotNil(t, stored.PaidAt)
}

func TestRepositoryMarkCancelledKeepsPaidAndStampsReason(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	pending := seedOrder(t, db, nil)
	paid := seedOrder(t, db, func(o *models.Order) { o.PaymentStatus = enums.PaymentStatusPaid })
	now := time.Now().UTC()

	for _, id := range []uuid.UUID{pending.ID, paid.ID} {
		ok, err := repo.MarkCancelled(context.Background(), id, CancelUpdate{Reason: enums.CancellationReasonSellerCancelled, Now: now})
		require.NoError(t, err)
		assert.True(t, ok)
	}

	gotPending, err := repo.FindByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCancelled, gotPending.PaymentStatus)
	assert.Equal(t, enums.FulfillmentStatusCancelled, gotPending.FulfillmentStatus)
	require.NotNil(t, gotPending.CancellationReason)
	assert.Equal(t, enums.CancellationReasonSellerCancelled, *gotPending.CancellationReason)
	assert.NotNil(t, gotPending.CancelledAt)

	gotPaid, err := repo.FindByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, gotPaid.PaymentStatus)
	assert.Equal(t, enums.FulfillmentStatusCancelled, gotPaid.FulfillmentStatus)
}

func TestRepositoryMarkCancelledRequirePaymentPending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	paid := seedOrder(t, db, func(o *models.Order) { o.PaymentStatus = enums.PaymentStatusPaid })

	ok, err := repo.MarkCancelled(context.Background(), paid.ID, CancelUpdate{
		Reason:                enums.CancellationReasonAbandoned,
		Now:                   time.Now().UTC(),
		RequirePaymentPending: true,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusPending, stored.FulfillmentStatus)
}

func TestRepositoryMarkProcessingOnlyFromPending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, func(o *models.Order) { o.PaymentStatus = enums.PaymentStatusPaid })
	tracking := "1Z999"

	ok, err := repo.MarkProcessing(context.Background(), order.ID, &tracking, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkCancelled(context.Background(), order.ID, CancelUpdate{Reason: enums.CancellationReasonAdminCancelled, Now: time.Now().UTC()})
	require.NoError(t, err)
	assert.False(t, ok, "processing orders are not cancellable")

	found, err := repo.FindByTrackingNumber(context.Background(), tracking)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, enums.FulfillmentStatusProcessing, found.FulfillmentStatus)
}

func TestRepositoryMarkProcessingRequiresPaidCard(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	card := seedOrder(t, db, nil)
	cash := seedOrder(t, db, func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodCash
		o.DeliveryMethod = enums.DeliveryMethodPickup
	})

	ok, err := repo.MarkProcessing(ctx, card.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok, "unpaid card order stays pending")

	ok, err = repo.MarkProcessing(ctx, cash.ID, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok, "cash pickup pays at the counter")
}

func TestRepositoryStockClaims(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, nil)
	now := time.Now().UTC()
	ctx := context.Background()

	released, err := repo.MarkStockReleased(ctx, order.ID, now)
	require.NoError(t, err)
	assert.False(t, released, "cannot release stock that was never committed")

	committed, err := repo.MarkStockCommitted(ctx, order.ID, now)
	require.NoError(t, err)
	assert.True(t, committed)
	committed, err = repo.MarkStockCommitted(ctx, order.ID, now)
	require.NoError(t, err)
	assert.False(t, committed)

	released, err = repo.MarkStockReleased(ctx, order.ID, now)
	require.NoError(t, err)
	assert.True(t, released)
	released, err = repo.MarkStockReleased(ctx, order.ID, now)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestRepositoryFindAbandonmentCandidates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	stale := seedOrder(t, db, func(o *models.Order) { o.CreatedAt = now.Add(-10 * time.Minute) })
	seedOrder(t, db, func(o *models.Order) { o.CreatedAt = now.Add(-time.Minute) })
	seedOrder(t, db, func(o *models.Order) {
		o.CreatedAt = now.Add(-10 * time.Minute)
		o.PaymentMethod = enums.PaymentMethodCash
		o.DeliveryMethod = enums.DeliveryMethodPickup
		outlet := uuid.New()
		o.OutletID = &outlet
	})
	seedOrder(t, db, func(o *models.Order) {
		o.CreatedAt = now.Add(-10 * time.Minute)
		o.PaymentStatus = enums.PaymentStatusPaid
	})

	candidates, err := repo.FindAbandonmentCandidates(context.Background(), now.Add(-5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, stale.ID, candidates[0].ID)
	assert.Len(t, candidates[0].Items, 1)
}

func TestRepositoryListBySellerPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	sellerID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	var seeded []models.Order
	for i := 0; i < 3; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		seeded = append(seeded, seedOrder(t, db, func(o *models.Order) {
			o.CreatedAt = created
			o.Items[0].SellerID = sellerID
		}))
	}
	seedOrder(t, db, nil)

	first, next, err := repo.List(context.Background(), ListQuery{SellerID: &sellerID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, next)
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	second, next, err := repo.List(context.Background(), ListQuery{SellerID: &sellerID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Nil(t, next)
	assert.Equal(t, seeded[0].ID, second[0].ID, "oldest order must land on the second page")
}

func TestRepositoryListFiltersByStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	paid := seedOrder(t, db, func(o *models.Order) { o.PaymentStatus = enums.PaymentStatusPaid })
	seedOrder(t, db, nil)

	status := enums.PaymentStatusPaid
	orders, next, err := repo.List(context.Background(), ListQuery{PaymentStatus: &status, Limit: pagination.MaxLimit})
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, orders, 1)
	assert.Equal(t, paid.ID, orders[0].ID)
}
