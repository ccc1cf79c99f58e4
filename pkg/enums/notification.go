package enums

// NotificationKind identifies the customer-facing message sent for an order event.
type NotificationKind string

const (
	NotificationKindOrderConfirmation   NotificationKind = "order_confirmation"
	NotificationKindOrderShipped        NotificationKind = "order_shipped"
	NotificationKindOrderReadyForPickup NotificationKind = "order_ready_for_pickup"
	NotificationKindOrderDelivered      NotificationKind = "order_delivered"
	NotificationKindOrderCancelled      NotificationKind = "order_cancelled"
)

var notificationKinds = members[NotificationKind]{
	NotificationKindOrderConfirmation,
	NotificationKindOrderShipped,
	NotificationKindOrderReadyForPickup,
	NotificationKindOrderDelivered,
	NotificationKindOrderCancelled,
}

func (n NotificationKind) IsValid() bool { return notificationKinds.has(n) }
