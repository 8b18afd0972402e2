package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
)

func (h *Handler) writeCart(w http.ResponseWriter, c *cart.Cart) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}

// GetCart returns the shopper's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), userID(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, c)
}

// AddCartItem adds a product snapshot to the cart, merging quantities when
// the product is already there.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		item cart.Item
		qty  int
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			item.ProductID, err = d.Str()
		case "name":
			item.Name, err = d.Str()
		case "price":
			item.Price, err = decodeMoney(d)
		case "discountPrice":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var p decimal.Decimal
			p, err = decodeMoney(d)
			item.DiscountPrice = &p
		case "quantity":
			qty, err = d.Int()
		case "imageUrl":
			item.ImageURL, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	c, err := h.carts.AddItem(r.Context(), userID(r.Context()), item, qty)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, c)
}

// SetCartItemQuantity replaces an item's quantity. Zero or less removes it.
func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	var qty int
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		qty, err = d.Int()
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	c, err := h.carts.SetQuantity(r.Context(), userID(r.Context()), chi.URLParam(r, "productID"), qty)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, c)
}

// RemoveCartItem deletes one product from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), userID(r.Context()), chi.URLParam(r, "productID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, c)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), userID(r.Context())); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
