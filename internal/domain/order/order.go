package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order. Only placement is handled
// here; later transitions belong to fulfillment.
type Status string

const (
	StatusPending Status = "PENDING"
)

// ErrNotFound is returned by a Reader when no order matches the id.
var ErrNotFound = errors.New("order not found")

// Order is a committed purchase together with its pricing breakdown.
type Order struct {
	ID     string
	UserID string
	Status Status
	Items  []Item

	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	TotalAmount decimal.Decimal

	DeliveryMethod string
	PaymentMethod  string
	VoucherID      string
	VoucherCode    string
	// ShippingAddress is the address text frozen at placement time.
	ShippingAddress string
	CreatedAt       time.Time
}

// Item is a line of an order. PriceAtPurchase is frozen when the order is
// placed and never recomputed from the live product.
type Item struct {
	ProductID       string
	Name            string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// LineTotal is PriceAtPurchase * Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums the line totals of o.
func (o *Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Repository persists orders.
type Repository interface {
	// CreateWithItems stores the order header and all its items atomically
	// and, when VoucherID is set, marks the user's voucher claim as used in
	// the same transaction. Either everything is stored or nothing is.
	CreateWithItems(ctx context.Context, o *Order) error
}

// Reader loads stored orders.
type Reader interface {
	// Get returns the order or ErrNotFound.
	Get(ctx context.Context, id string) (*Order, error)
}

// AddressNotFoundError indicates the chosen shipping address does not exist.
type AddressNotFoundError struct {
	AddressID string
}

func (e *AddressNotFoundError) Error() string {
	return fmt.Sprintf("address %s not found", e.AddressID)
}
