package enums

// PaymentMethod is how the buyer settles: a processor-hosted card session, or
// cash at the outlet on pickup.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

var paymentMethods = members[PaymentMethod]{PaymentMethodCard, PaymentMethodCash}

func (p PaymentMethod) IsValid() bool { return paymentMethods.has(p) }

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	return paymentMethods.parse("payment method", raw)
}
