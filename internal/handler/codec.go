package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/apperr"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/delivery"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/settlement"
	"github.com/xenking/storefront-checkout/internal/domain/voucher"
)

// money writes v as a JSON number. decodeMoney accepts a number or a string.
func money(e *jx.Encoder, name string, v decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { e.RawStr(v.String()) })
}

func str(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func decodeMoney(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("amount must be a number, got %s", d.Next())
	}
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		out = append(out, s)
		return err
	})
	return out, err
}

func encodeCartItem(e *jx.Encoder, it cart.Item) {
	e.ObjStart()
	str(e, "productId", it.ProductID)
	str(e, "name", it.Name)
	money(e, "price", it.Price)
	if it.DiscountPrice != nil {
		money(e, "discountPrice", *it.DiscountPrice)
	}
	e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
	if it.ImageURL != "" {
		str(e, "imageUrl", it.ImageURL)
	}
	money(e, "lineTotal", it.LineTotal())
	e.ObjEnd()
}

func encodeCartItems(e *jx.Encoder, items []cart.Item) {
	e.ArrStart()
	for _, it := range items {
		encodeCartItem(e, it)
	}
	e.ArrEnd()
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	str(e, "userId", c.UserID)
	e.Field("items", func(e *jx.Encoder) { encodeCartItems(e, c.Items) })
	e.Field("itemCount", func(e *jx.Encoder) { e.Int(c.ItemCount()) })
	money(e, "subtotal", c.Subtotal())
	e.ObjEnd()
}

func encodeVoucher(e *jx.Encoder, v *voucher.Voucher) {
	e.ObjStart()
	str(e, "code", v.Code)
	str(e, "name", v.Name)
	str(e, "discountType", string(v.DiscountType))
	money(e, "discountValue", v.DiscountValue)
	money(e, "minPurchase", v.MinPurchase)
	if v.MaxDiscount != nil {
		money(e, "maxDiscount", *v.MaxDiscount)
	}
	e.ObjEnd()
}

func encodeDraft(e *jx.Encoder, sessionID string, applied *voucher.Voucher, d *checkout.Draft) {
	sel := d.Selection
	e.ObjStart()
	str(e, "sessionId", sessionID)
	e.Field("selection", func(e *jx.Encoder) {
		e.ObjStart()
		str(e, "addressId", sel.AddressID)
		str(e, "deliveryMethod", sel.DeliveryMethod)
		str(e, "paymentMethod", string(sel.PaymentMethod))
		e.Field("selectedItemIds", func(e *jx.Encoder) {
			e.ArrStart()
			for _, id := range sel.SelectedItemIDs {
				e.Str(id)
			}
			e.ArrEnd()
		})
		e.ObjEnd()
	})
	e.Field("items", func(e *jx.Encoder) { encodeCartItems(e, d.Items) })
	money(e, "subtotal", d.Subtotal)
	money(e, "deliveryFee", d.DeliveryFee)
	money(e, "discount", d.Discount)
	money(e, "total", d.Total)
	if applied != nil {
		e.Field("voucher", func(e *jx.Encoder) { encodeVoucher(e, applied) })
	}
	if d.VoucherNote != "" {
		str(e, "voucherNote", d.VoucherNote)
	}
	err := d.Validate()
	e.Field("canSubmit", func(e *jx.Encoder) { e.Bool(err == nil) })
	if v := apperr.As(err); v != nil {
		str(e, "missing", v.Message())
	}
	e.ObjEnd()
}

func encodeVoucherResult(e *jx.Encoder, res voucher.Result) {
	e.ObjStart()
	e.Field("valid", func(e *jx.Encoder) { e.Bool(res.Valid) })
	if res.Reason != voucher.ReasonNone {
		str(e, "reason", string(res.Reason))
	}
	if res.Message != "" {
		str(e, "message", res.Message)
	}
	money(e, "discount", res.Discount)
	if res.Voucher != nil {
		e.Field("voucher", func(e *jx.Encoder) { encodeVoucher(e, res.Voucher) })
	}
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	str(e, "id", o.ID)
	str(e, "userId", o.UserID)
	str(e, "status", string(o.Status))
	e.Field("items", func(e *jx.Encoder) {
		e.ArrStart()
		for _, it := range o.Items {
			e.ObjStart()
			str(e, "productId", it.ProductID)
			str(e, "name", it.Name)
			e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
			money(e, "priceAtPurchase", it.PriceAtPurchase)
			money(e, "lineTotal", it.LineTotal())
			e.ObjEnd()
		}
		e.ArrEnd()
	})
	money(e, "subtotal", o.Subtotal)
	money(e, "deliveryFee", o.DeliveryFee)
	money(e, "discount", o.Discount)
	money(e, "totalAmount", o.TotalAmount)
	str(e, "deliveryMethod", o.DeliveryMethod)
	str(e, "paymentMethod", o.PaymentMethod)
	if o.VoucherCode != "" {
		str(e, "voucherCode", o.VoucherCode)
	}
	str(e, "shippingAddress", o.ShippingAddress)
	str(e, "createdAt", o.CreatedAt.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeSettlement(e *jx.Encoder, res *settlement.Result) {
	e.ObjStart()
	str(e, "orderId", res.OrderID)
	str(e, "method", string(res.Method))
	money(e, "amount", res.Amount)
	str(e, "state", string(res.State))
	e.Field("success", func(e *jx.Encoder) { e.Bool(res.Success) })
	str(e, "message", res.Message)
	if res.TransactionID != "" {
		str(e, "transactionId", res.TransactionID)
	}
	if len(res.BankAccounts) > 0 {
		e.Field("bankAccounts", func(e *jx.Encoder) {
			e.ArrStart()
			for _, b := range res.BankAccounts {
				e.ObjStart()
				str(e, "bankName", b.BankName)
				str(e, "accountHolder", b.AccountHolder)
				money(e, "amount", b.Amount)
				e.ObjEnd()
			}
			e.ArrEnd()
		})
	}
	if res.QRISPayload != "" {
		str(e, "qrisPayload", res.QRISPayload)
	}
	str(e, "at", res.At.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeDeliveryMethods(e *jx.Encoder, methods []delivery.Method) {
	e.ArrStart()
	for _, m := range methods {
		e.ObjStart()
		str(e, "id", m.ID)
		str(e, "label", m.Label)
		str(e, "etaLabel", m.ETALabel)
		money(e, "fee", m.Fee)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodePaymentMethods(e *jx.Encoder, methods []payment.MethodInfo) {
	e.ArrStart()
	for _, m := range methods {
		e.ObjStart()
		str(e, "id", string(m.ID))
		str(e, "name", m.Name)
		str(e, "description", m.Description)
		money(e, "fee", m.Fee)
		str(e, "processingTime", m.ProcessingTime)
		e.ObjEnd()
	}
	e.ArrEnd()
}
