package notifications

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGateway struct {
	messages []Message
	err      error
	block    bool
}

func (g *recordingGateway) Notify(ctx context.Context, msg Message) error {
	if g.block {
		<-ctx.Done()
		return ctx.Err()
	}
	g.messages = append(g.messages, msg)
	return g.err
}

type stubUsers struct {
	users map[uuid.UUID]models.User
	err   error
}

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s stubUsers) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type stubOutlets map[uuid.UUID]models.Outlet

func (s stubOutlets) FindByID(_ context.Context, id uuid.UUID) (*models.Outlet, error) {
	if o, ok := s[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func newTestDispatcher(t *testing.T, gw Gateway, users stubUsers, outlets stubOutlets, timeout time.Duration) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	d, err := NewDispatcher(DispatcherParams{
		Gateway: gw,
		Users:   users,
		Outlets: outlets,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: buf}),
		Timeout: timeout,
	})
	require.NoError(t, err)
	return d, buf
}

func sampleOrder(sellerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		Total:          decimal.RequireFromString("40.00"),
		Currency:       "usd",
		PaymentMethod:  enums.PaymentMethodCard,
		DeliveryMethod: enums.DeliveryMethodShipping,
		Items: []models.OrderLineItem{{
			ProductName: "Denim jacket",
			SellerID:    sellerID,
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("20.00"),
		}},
	}
}

func TestDispatcherResolvesRegisteredUser(t *testing.T) {
	gw := &recordingGateway{}
	userID, sellerID := uuid.New(), uuid.New()
	users := stubUsers{users: map[uuid.UUID]models.User{
		userID:   {ID: userID, Name: "Ada", Email: "ada@example.com"},
		sellerID: {ID: sellerID, Name: "Vintage Vault"},
	}}
	d, _ := newTestDispatcher(t, gw, users, stubOutlets{}, time.Second)

	order := sampleOrder(sellerID)
	order.UserID = &userID
	ok := d.Send(context.Background(), enums.NotificationKindOrderConfirmation, order)

	require.True(t, ok)
	require.Len(t, gw.messages, 1)
	msg := gw.messages[0]
	assert.Equal(t, "ada@example.com", msg.To.Email)
	assert.Equal(t, order.ID, msg.OrderID)
	assert.Contains(t, msg.Text, "Denim jacket")
	assert.Contains(t, msg.Text, "Vintage Vault")
	assert.Contains(t, msg.HTML, "Vintage Vault")
}

func TestDispatcherUsesGuestContactAndOutlet(t *testing.T) {
	gw := &recordingGateway{}
	outletID := uuid.New()
	hours := "9-5"
	outlets := stubOutlets{outletID: {
		ID:           outletID,
		Name:         "Eastside Store",
		Address:      types.Address{Line1: "5 Oak", City: "Austin", State: "TX", PostalCode: "78702"},
		OpeningHours: &hours,
	}}
	d, _ := newTestDispatcher(t, gw, stubUsers{}, outlets, time.Second)

	order := sampleOrder(uuid.New())
	order.DeliveryMethod = enums.DeliveryMethodPickup
	order.OutletID = &outletID
	order.GuestContact = &types.GuestContact{Name: "Guest", Email: "Guest@Example.com"}

	require.True(t, d.Send(context.Background(), enums.NotificationKindOrderReadyForPickup, order))
	msg := gw.messages[0]
	assert.Equal(t, "guest@example.com", msg.To.Email)
	assert.Contains(t, msg.Text, "Eastside Store")
	assert.Contains(t, msg.Text, "9-5")
}

func TestDispatcherSkipsWithoutEmail(t *testing.T) {
	gw := &recordingGateway{}
	d, buf := newTestDispatcher(t, gw, stubUsers{}, stubOutlets{}, time.Second)
	order := sampleOrder(uuid.New())
	missingUser := uuid.New()
	order.UserID = &missingUser

	assert.False(t, d.Send(context.Background(), enums.NotificationKindOrderCancelled, order))
	assert.Empty(t, gw.messages)
	assert.Contains(t, buf.String(), "no contact email")
}

func TestDispatcherSwallowsGatewayFailure(t *testing.T) {
	gw := &recordingGateway{err: errors.New("smtp down")}
	d, buf := newTestDispatcher(t, gw, stubUsers{}, stubOutlets{}, time.Second)
	order := sampleOrder(uuid.New())
	order.GuestContact = &types.GuestContact{Name: "G", Email: "g@example.com"}

	assert.False(t, d.Send(context.Background(), enums.NotificationKindOrderShipped, order))
	out := buf.String()
	assert.Contains(t, out, "notification dispatch failed")
	assert.Contains(t, out, order.ID.String())
	assert.Contains(t, out, "g@example.com")
	assert.Contains(t, out, `"error_code":"UNKNOWN"`)
}

func TestDispatcherAppliesTimeout(t *testing.T) {
	gw := &recordingGateway{block: true}
	d, buf := newTestDispatcher(t, gw, stubUsers{}, stubOutlets{}, 20*time.Millisecond)
	order := sampleOrder(uuid.New())
	order.GuestContact = &types.GuestContact{Name: "G", Email: "g@example.com"}

	start := time.Now()
	assert.False(t, d.Send(context.Background(), enums.NotificationKindOrderShipped, order))
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, strings.Contains(buf.String(), `"error_code":"TIMEOUT"`))
}

func TestNewDispatcherRequiresDeps(t *testing.T) {
	_, err := NewDispatcher(DispatcherParams{})
	require.Error(t, err)
}
