package orders

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/resale-backend/internal/inventory"
	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:orders_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.ProductVariant{}, &models.Order{}, &models.OrderLineItem{}))
	return db
}

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type productsFromDB struct {
	db *gorm.DB
}

func (p productsFromDB) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := p.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

type recordingLedger struct {
	reserved [][]inventory.Line
	released [][]inventory.Line
	err      error
}

func (r *recordingLedger) Reserve(_ context.Context, lines []inventory.Line) ([]inventory.Adjustment, error) {
	r.reserved = append(r.reserved, lines)
	return nil, r.err
}

func (r *recordingLedger) Release(_ context.Context, lines []inventory.Line, _ inventory.ReleaseOptions) ([]inventory.Adjustment, error) {
	r.released = append(r.released, lines)
	return nil, r.err
}

func newTestService(t *testing.T, db *gorm.DB, ledger inventory.Ledger, now time.Time) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Products: productsFromDB{db: db},
		Tx:       gormTx{db: db},
		Ledger:   ledger,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, name string) models.Product {
	t.Helper()
	product := models.Product{ID: uuid.New(), SellerID: sellerID, Name: name, Price: decimal.NewFromInt(20), IsActive: true}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) models.Order {
	t.Helper()
	userID := uuid.New()
	order := models.Order{
		ID:                uuid.New(),
		UserID:            &userID,
		Total:             decimal.NewFromInt(30),
		Currency:          "usd",
		PaymentMethod:     enums.PaymentMethodCard,
		DeliveryMethod:    enums.DeliveryMethodShipping,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusPending,
		CreatedAt:         time.Now().UTC().Add(-time.Hour),
	}
	order.Items = []models.OrderLineItem{{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductID:   uuid.New(),
		SellerID:    uuid.New(),
		ProductName: "Wool coat",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(30),
	}}
	if mutate != nil {
		mutate(&order)
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}
