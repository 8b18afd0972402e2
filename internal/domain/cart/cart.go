package cart

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by a Repository when the user has no stored cart.
var ErrNotFound = errors.New("cart not found")

// Item is a single product entry in a cart. ProductID is unique per cart.
type Item struct {
	ProductID     string           `json:"product_id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Quantity      int              `json:"quantity"`
	ImageURL      string           `json:"image_url"`
}

// UnitPrice returns the price the customer pays per unit: the discount price
// when one is set, the list price otherwise.
func (i Item) UnitPrice() decimal.Decimal {
	if i.DiscountPrice != nil {
		return *i.DiscountPrice
	}
	return i.Price
}

// LineTotal returns UnitPrice * Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the ordered list of items held for one user.
type Cart struct {
	UserID string `json:"user_id"`
	Items  []Item `json:"items"`
}

// Add increments the quantity of an existing entry or appends a new one.
// No upper bound is enforced; stock validation happens elsewhere.
func (c *Cart) Add(item Item, quantity int) {
	if quantity <= 0 {
		return
	}
	if i := c.index(item.ProductID); i >= 0 {
		c.Items[i].Quantity += quantity
		return
	}
	item.Quantity = quantity
	c.Items = append(c.Items, item)
}

// Remove deletes the entry for productID. Missing entries are ignored.
func (c *Cart) Remove(productID string) {
	c.Items = slices.DeleteFunc(c.Items, func(it Item) bool {
		return it.ProductID == productID
	})
}

// SetQuantity replaces the quantity of an entry; quantity <= 0 removes it.
// It reports whether the product was in the cart.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.Remove(productID)
		return true
	}
	c.Items[i].Quantity = quantity
	return true
}

// RemoveAll deletes every entry whose product id is in ids and leaves the
// rest untouched.
func (c *Cart) RemoveAll(ids []string) {
	set := toSet(ids)
	c.Items = slices.DeleteFunc(c.Items, func(it Item) bool {
		_, ok := set[it.ProductID]
		return ok
	})
}

// Filter returns copies of the entries whose product id is in ids, in cart
// order.
func (c *Cart) Filter(ids []string) []Item {
	set := toSet(ids)
	out := make([]Item, 0, len(ids))
	for _, it := range c.Items {
		if _, ok := set[it.ProductID]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Get returns the entry for productID.
func (c *Cart) Get(productID string) (Item, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

// ItemCount returns the total quantity across all entries.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Subtotal returns the subtotal of every entry in the cart.
func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.Items)
}

func (c *Cart) index(productID string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool {
		return it.ProductID == productID
	})
}

// Subtotal returns Σ (discountPrice ?? price) * quantity. The result does not
// depend on item order.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Repository persists carts so they survive process restarts.
type Repository interface {
	// Load returns the stored cart or ErrNotFound.
	Load(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string) error
}
