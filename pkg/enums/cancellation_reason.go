package enums

// CancellationReason records why an order left the active lifecycle.
type CancellationReason string

const (
	CancellationReasonAbandoned       CancellationReason = "abandoned"
	CancellationReasonSellerCancelled CancellationReason = "seller_cancelled"
	CancellationReasonAdminCancelled  CancellationReason = "admin_cancelled"
)

var cancellationReasons = members[CancellationReason]{
	CancellationReasonAbandoned,
	CancellationReasonSellerCancelled,
	CancellationReasonAdminCancelled,
}

func (c CancellationReason) IsValid() bool { return cancellationReasons.has(c) }
