package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/resale-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/resale-backend/internal/checkout"
	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
)

type stubCheckoutService struct {
	cardInput   *checkoutsvc.CardCheckoutInput
	pickupInput *checkoutsvc.PickupInput
	result      *checkoutsvc.CardCheckoutResult
	order       *models.Order
	err         error
}

func (s *stubCheckoutService) StartCardCheckout(_ context.Context, input checkoutsvc.CardCheckoutInput) (*checkoutsvc.CardCheckoutResult, error) {
	s.cardInput = &input
	return s.result, s.err
}

func (s *stubCheckoutService) PlacePickupOrder(_ context.Context, input checkoutsvc.PickupInput) (*models.Order, error) {
	s.pickupInput = &input
	return s.order, s.err
}

func TestCheckoutCardReturnsRedirect(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.CardCheckoutResult{OrderID: orderID, RedirectURL: "https://checkout.stripe.com/c/pay/cs_test_1"}}

	body := `{"items":[{"product_id":"` + productID.String() + `","quantity":2,"unit_price":"19.99"}],"guest":{"name":"Jo","email":"jo@example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/card", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CheckoutCard(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var payload struct {
		Data struct {
			OrderID     string `json:"order_id"`
			RedirectURL string `json:"redirect_url"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, orderID.String(), payload.Data.OrderID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", payload.Data.RedirectURL)

	require.NotNil(t, svc.cardInput)
	assert.Nil(t, svc.cardInput.Customer.UserID)
	require.NotNil(t, svc.cardInput.Customer.Guest)
	assert.Equal(t, "jo@example.com", svc.cardInput.Customer.Guest.Email)
	require.Len(t, svc.cardInput.Items, 1)
	assert.Equal(t, 2, svc.cardInput.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("19.99").Equal(svc.cardInput.Items[0].UnitPrice))
}

func TestCheckoutCardPrefersAuthenticatedUser(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.CardCheckoutResult{OrderID: uuid.New(), RedirectURL: "https://example.com"}}

	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1,"unit_price":"5"}],"guest":{"name":"Jo","email":"jo@example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/card", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	CheckoutCard(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, svc.cardInput.Customer.UserID)
	assert.Equal(t, userID, *svc.cardInput.Customer.UserID)
	assert.Nil(t, svc.cardInput.Customer.Guest)
}

func TestCheckoutCardRejectsInvalidBody(t *testing.T) {
	tests := map[string]string{
		"no items":        `{"items":[]}`,
		"zero quantity":   `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":0}]}`,
		"unknown field":   `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"coupon":"X"}`,
		"bad delivery":    `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"delivery_method":"drone"}`,
		"bad guest email": `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"guest":{"name":"Jo","email":"nope"}}`,
		"malformed json":  `{"items":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			svc := &stubCheckoutService{}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/card", strings.NewReader(body))
			resp := httptest.NewRecorder()
			CheckoutCard(svc, nil).ServeHTTP(resp, req)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Nil(t, svc.cardInput)
		})
	}
}

func TestCheckoutCardMapsServiceErrors(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeDependency, "payment processor unavailable")}
	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1,"unit_price":"5"}],"guest":{"name":"Jo","email":"jo@example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/card", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CheckoutCard(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestCheckoutPickupCreatesOrder(t *testing.T) {
	outletID := uuid.New()
	order := &models.Order{
		ID:                uuid.New(),
		Total:             decimal.NewFromInt(30),
		Currency:          "usd",
		PaymentMethod:     enums.PaymentMethodCash,
		DeliveryMethod:    enums.DeliveryMethodPickup,
		OutletID:          &outletID,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusPending,
	}
	svc := &stubCheckoutService{order: order}

	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":3,"unit_price":"10"}],"guest":{"name":"Jo","email":"jo@example.com"},"outlet_id":"` + outletID.String() + `","total":"30"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/pickup", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CheckoutPickup(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	var payload struct {
		Data struct {
			ID             string `json:"id"`
			DeliveryMethod string `json:"delivery_method"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, order.ID.String(), payload.Data.ID)
	assert.Equal(t, "pickup", payload.Data.DeliveryMethod)
	require.NotNil(t, svc.pickupInput.ClientTotal)
	assert.True(t, decimal.NewFromInt(30).Equal(*svc.pickupInput.ClientTotal))
	assert.Equal(t, outletID, *svc.pickupInput.OutletID)
}

func TestCheckoutPickupRequiresOutlet(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"guest":{"name":"Jo","email":"jo@example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/pickup", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CheckoutPickup(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Nil(t, svc.pickupInput)
}
