package enums

type DeliveryMethod string

const (
	DeliveryMethodShipping DeliveryMethod = "shipping"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

var deliveryMethods = members[DeliveryMethod]{DeliveryMethodShipping, DeliveryMethodPickup}

func (d DeliveryMethod) IsValid() bool { return deliveryMethods.has(d) }
