package enums

// PaymentStatus tracks settlement with the processor.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var paymentStatuses = members[PaymentStatus]{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusCancelled,
}

func (p PaymentStatus) IsValid() bool { return paymentStatuses.has(p) }

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	return paymentStatuses.parse("payment status", raw)
}
