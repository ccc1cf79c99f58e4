package stripe

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

func TestNormalizeEnv(t *testing.T) {
	env, err := normalizeEnv("")
	require.NoError(t, err)
	assert.Equal(t, testEnv, env)

	env, err = normalizeEnv(" LIVE ")
	require.NoError(t, err)
	assert.Equal(t, liveEnv, env)

	_, err = normalizeEnv("staging")
	require.Error(t, err)
}

func TestValidateAPIKey(t *testing.T) {
	require.NoError(t, validateAPIKey(testEnv, "sk_test_123"))
	require.NoError(t, validateAPIKey(liveEnv, "rk_live_123"))
	require.Error(t, validateAPIKey(testEnv, "sk_live_123"))
	require.Error(t, validateAPIKey(liveEnv, "sk_test_123"))
}

func TestBuildCheckoutSessionParamsTagsOrderTwice(t *testing.T) {
	orderID := uuid.New()
	params := BuildCheckoutSessionParams(CheckoutSessionInput{
		OrderID:       orderID,
		Currency:      "USD",
		CustomerEmail: "buyer@example.com",
		SuccessURL:    "https://shop.test/orders/success",
		CancelURL:     "https://shop.test/cart",
		Lines: []CheckoutLine{
			{Name: "Vintage tee", UnitPrice: decimal.RequireFromString("19.99"), Quantity: 2},
		},
	})

	assert.Equal(t, orderID.String(), *params.ClientReferenceID)
	assert.Equal(t, orderID.String(), params.Metadata[MetadataOrderIDKey])
	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "buyer@example.com", *params.CustomerEmail)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, int64(1999), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *params.LineItems[0].Quantity)
	assert.Equal(t, "usd", *params.LineItems[0].PriceData.Currency)
}

func TestToMinorUnitsRounds(t *testing.T) {
	assert.Equal(t, int64(1000), ToMinorUnits(decimal.RequireFromString("9.999")))
	assert.Equal(t, int64(5), ToMinorUnits(decimal.RequireFromString("0.05")))
}

func TestOrderIDFromSession(t *testing.T) {
	id := uuid.New()

	got, ok := OrderIDFromSession(&stripe.CheckoutSession{Metadata: map[string]string{MetadataOrderIDKey: id.String()}})
	require.True(t, ok)
	assert.Equal(t, id, got)

	got, ok = OrderIDFromSession(&stripe.CheckoutSession{ClientReferenceID: id.String()})
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = OrderIDFromSession(&stripe.CheckoutSession{Metadata: map[string]string{MetadataOrderIDKey: "nope"}})
	assert.False(t, ok)

	_, ok = OrderIDFromSession(nil)
	assert.False(t, ok)
}

func TestSessionPaid(t *testing.T) {
	assert.True(t, SessionPaid(&stripe.CheckoutSession{PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid}))
	assert.False(t, SessionPaid(&stripe.CheckoutSession{PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}))
	assert.False(t, SessionPaid(nil))
}
