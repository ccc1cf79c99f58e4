package orders

import "github.com/angelmondragon/resale-backend/pkg/enums"

// CanTransitionPayment reports whether payment may move from one status to another.
// Payment only leaves pending, and paid is terminal.
func CanTransitionPayment(from, to enums.PaymentStatus) bool {
	if from != enums.PaymentStatusPending {
		return false
	}
	switch to {
	case enums.PaymentStatusPaid, enums.PaymentStatusFailed, enums.PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionFulfillment reports whether fulfillment may move from one status to another.
// Processing orders are not cancellable.
func CanTransitionFulfillment(from, to enums.FulfillmentStatus) bool {
	if from != enums.FulfillmentStatusPending {
		return false
	}
	return to == enums.FulfillmentStatusProcessing || to == enums.FulfillmentStatusCancelled
}
