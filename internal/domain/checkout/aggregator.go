package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/delivery"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/voucher"
)

// CartReader returns a user's current cart.
type CartReader interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
}

// Draft is a priced, not yet persisted order.
type Draft struct {
	Selection Selection
	// Items are the selected entries still present in the cart, in cart order.
	Items       []cart.Item
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	// Voucher is set only when the applied voucher is eligible for Subtotal.
	Voucher *voucher.Voucher
	// VoucherNote explains why an applied voucher currently grants nothing.
	VoucherNote string
}

// Validate returns the first missing input, checking items, address,
// delivery method and payment method in that order.
func (d *Draft) Validate() error {
	switch {
	case len(d.Items) == 0:
		return ErrNoItemsSelected
	case d.Selection.AddressID == "":
		return ErrAddressRequired
	case d.Selection.DeliveryMethod == "":
		return ErrDeliveryMethodRequired
	case d.Selection.PaymentMethod == "":
		return ErrPaymentMethodRequired
	}
	return nil
}

// CanSubmit reports whether the draft may be turned into an order.
func (d *Draft) CanSubmit() bool {
	return d.Validate() == nil
}

// ProductIDs returns the product ids of the draft's items.
func (d *Draft) ProductIDs() []string {
	ids := make([]string, len(d.Items))
	for i, it := range d.Items {
		ids[i] = it.ProductID
	}
	return ids
}

// Aggregator prices checkout sessions.
type Aggregator struct {
	carts    CartReader
	vouchers voucher.Validator
	delivery *delivery.Table
	now      func() time.Time
}

// NewAggregator creates an Aggregator.
func NewAggregator(carts CartReader, vouchers voucher.Validator, table *delivery.Table) *Aggregator {
	return &Aggregator{
		carts:    carts,
		vouchers: vouchers,
		delivery: table,
		now:      time.Now,
	}
}

// Delivery returns the delivery table used for pricing.
func (a *Aggregator) Delivery() *delivery.Table {
	return a.delivery
}

// Draft prices the session against the current cart. The voucher discount
// is recomputed for the current subtotal; an applied voucher that is no
// longer eligible grants zero and leaves a note.
func (a *Aggregator) Draft(ctx context.Context, s *Session) (*Draft, error) {
	sel := s.Selection()
	applied := s.AppliedVoucher()

	c, err := a.carts.Get(ctx, s.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	d := &Draft{
		Selection:   sel,
		Items:       c.Filter(sel.SelectedItemIDs),
		DeliveryFee: a.delivery.FeeFor(sel.DeliveryMethod),
		Discount:    decimal.Zero,
	}
	d.Subtotal = cart.Subtotal(d.Items)

	if applied != nil {
		if reason, msg := voucher.Check(applied, d.Subtotal, a.now()); reason != voucher.ReasonNone {
			d.VoucherNote = msg
		} else if discount, err := voucher.Compute(applied, d.Subtotal); err != nil {
			d.VoucherNote = "this voucher cannot be applied"
		} else {
			d.Discount = discount
			d.Voucher = applied
		}
	}

	d.Total = d.Subtotal.Add(d.DeliveryFee).Sub(d.Discount)
	if d.Total.IsNegative() {
		d.Total = decimal.Zero
	}
	return d, nil
}

// SetDeliveryMethod records the delivery method after checking it exists.
func (a *Aggregator) SetDeliveryMethod(s *Session, id string) error {
	if _, ok := a.delivery.Lookup(id); !ok {
		return ErrUnknownDeliveryMethod
	}
	s.setDeliveryMethod(id)
	return nil
}

// SetPaymentMethod records the payment method after checking it exists.
func (a *Aggregator) SetPaymentMethod(s *Session, m payment.Method) error {
	if !m.Valid() {
		return ErrUnknownPaymentMethod
	}
	s.setPaymentMethod(m)
	return nil
}

// ApplyVoucher validates code against the session's current subtotal and
// commits it only when valid, replacing any earlier voucher. A rejected
// code leaves the session untouched and is reported in the Result.
func (a *Aggregator) ApplyVoucher(ctx context.Context, s *Session, code string) (voucher.Result, error) {
	d, err := a.Draft(ctx, s)
	if err != nil {
		return voucher.Result{}, err
	}

	res, err := a.vouchers.Validate(ctx, code, d.Subtotal, s.UserID)
	if err != nil {
		return voucher.Result{}, errors.Wrap(err, "validate voucher")
	}
	if res.Valid {
		s.setVoucher(res.Voucher)
	}
	return res, nil
}
