package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressOneLine(t *testing.T) {
	line2 := " Apt 4 "
	addr := Address{Line1: "12 Main St", Line2: &line2, City: "Austin", State: "TX", PostalCode: "78701"}
	assert.Equal(t, "12 Main St, Apt 4, Austin, TX 78701, US", addr.OneLine())

	addr.Line2 = nil
	addr.Country = "CA"
	assert.Equal(t, "12 Main St, Austin, TX 78701, CA", addr.OneLine())
}

func TestGuestContactNormalize(t *testing.T) {
	blank := "  "
	contact := GuestContact{Name: " Jo ", Email: " Jo@Example.COM ", Phone: &blank}.Normalize()
	assert.Equal(t, "Jo", contact.Name)
	assert.Equal(t, "jo@example.com", contact.Email)
	assert.Nil(t, contact.Phone)
}
