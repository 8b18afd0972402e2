// Package address models shipping addresses from the user's address book.
package address

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by a Book when no address matches the id.
var ErrNotFound = errors.New("address not found")

// Address is a saved shipping address.
type Address struct {
	ID            string
	UserID        string
	Label         string
	RecipientName string
	PhoneNumber   string
	AddressLine   string
	City          string
	Province      string
	PostalCode    string
	IsDefault     bool
}

// Book resolves address ids.
type Book interface {
	GetAddress(ctx context.Context, id string) (*Address, error)
}

// Snapshot renders a as the immutable text stored on an order:
//
//	recipient (phone)
//	address line
//	city, postal code
func Snapshot(a *Address) string {
	return fmt.Sprintf("%s (%s)\n%s\n%s, %s",
		a.RecipientName, a.PhoneNumber, a.AddressLine, a.City, a.PostalCode)
}
