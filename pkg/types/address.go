package types

import "strings"

// Address is the postal address stored as jsonb on orders and outlets.
type Address struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country"`
}

// OneLine renders the address for notification bodies.
func (a Address) OneLine() string {
	parts := []string{strings.TrimSpace(a.Line1)}
	if a.Line2 != nil && strings.TrimSpace(*a.Line2) != "" {
		parts = append(parts, strings.TrimSpace(*a.Line2))
	}
	parts = append(parts, strings.TrimSpace(a.City), strings.TrimSpace(a.State)+" "+strings.TrimSpace(a.PostalCode))
	country := strings.TrimSpace(a.Country)
	if country == "" {
		country = "US"
	}
	parts = append(parts, country)
	return strings.Join(parts, ", ")
}
