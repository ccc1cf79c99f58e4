package enums

// FulfillmentStatus tracks the seller-side handling of an order.
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusCancelled  FulfillmentStatus = "cancelled"
)

var fulfillmentStatuses = members[FulfillmentStatus]{
	FulfillmentStatusPending,
	FulfillmentStatusProcessing,
	FulfillmentStatusCancelled,
}

func (f FulfillmentStatus) IsValid() bool { return fulfillmentStatuses.has(f) }

func ParseFulfillmentStatus(raw string) (FulfillmentStatus, error) {
	return fulfillmentStatuses.parse("fulfillment status", raw)
}
