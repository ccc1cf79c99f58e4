package types

import "strings"

// GuestContact identifies a buyer who checked out without an account.
type GuestContact struct {
	Name    string   `json:"name" validate:"required"`
	Email   string   `json:"email" validate:"required,email"`
	Phone   *string  `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// Normalize trims the contact fields and lower-cases the email.
func (g GuestContact) Normalize() GuestContact {
	g.Name = strings.TrimSpace(g.Name)
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	if g.Phone != nil {
		phone := strings.TrimSpace(*g.Phone)
		if phone == "" {
			g.Phone = nil
		} else {
			g.Phone = &phone
		}
	}
	return g
}
