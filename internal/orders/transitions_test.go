package orders

import (
	"testing"

	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionPayment(t *testing.T) {
	cases := []struct {
		from, to enums.PaymentStatus
		want     bool
	}{
		{enums.PaymentStatusPending, enums.PaymentStatusPaid, true},
		{enums.PaymentStatusPending, enums.PaymentStatusFailed, true},
		{enums.PaymentStatusPending, enums.PaymentStatusCancelled, true},
		{enums.PaymentStatusPending, enums.PaymentStatusPending, false},
		{enums.PaymentStatusPaid, enums.PaymentStatusPaid, false},
		{enums.PaymentStatusPaid, enums.PaymentStatusCancelled, false},
		{enums.PaymentStatusCancelled, enums.PaymentStatusPaid, false},
		{enums.PaymentStatusFailed, enums.PaymentStatusPaid, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransitionPayment(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionFulfillment(t *testing.T) {
	assert.True(t, CanTransitionFulfillment(enums.FulfillmentStatusPending, enums.FulfillmentStatusProcessing))
	assert.True(t, CanTransitionFulfillment(enums.FulfillmentStatusPending, enums.FulfillmentStatusCancelled))
	assert.False(t, CanTransitionFulfillment(enums.FulfillmentStatusProcessing, enums.FulfillmentStatusCancelled))
	assert.False(t, CanTransitionFulfillment(enums.FulfillmentStatusCancelled, enums.FulfillmentStatusProcessing))
	assert.False(t, CanTransitionFulfillment(enums.FulfillmentStatusPending, enums.FulfillmentStatusPending))
}
