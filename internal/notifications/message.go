package notifications

import (
	"context"

	"github.com/angelmondragon/resale-backend/pkg/enums"
	"github.com/google/uuid"
)

// Gateway delivers one rendered customer message. Implementations report
// transport failures; callers decide whether they matter.
type Gateway interface {
	Notify(ctx context.Context, msg Message) error
}

// Recipient is the resolved customer contact for an order.
type Recipient struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// Message is a rendered notification ready for a transport.
type Message struct {
	Kind    enums.NotificationKind `json:"kind"`
	OrderID uuid.UUID              `json:"order_id"`
	To      Recipient              `json:"to"`
	Subject string                 `json:"subject"`
	Text    string                 `json:"text"`
	HTML    string                 `json:"html"`
}
