package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/apperr"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

var errOrderNotFound = apperr.New(apperr.KindNotFound, "order not found")

// PlaceOrder turns the shopper's checkout into a PENDING order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.For(userID(r.Context()))

	o, err := h.orders.PlaceOrder(r.Context(), s)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder returns one of the shopper's orders. Orders of other users are
// reported as not found.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderReader.Get(r.Context(), chi.URLParam(r, "orderID"))
	switch {
	case errors.Is(err, order.ErrNotFound):
		fail(w, r, errOrderNotFound)
		return
	case err != nil:
		fail(w, r, errors.Wrap(err, "get order"))
		return
	case o.UserID != userID(r.Context()):
		fail(w, r, errOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// SettleOrder runs one settlement attempt against one of the shopper's
// orders. The attempt result is written on failure too, with the status of
// its error kind.
func (h *Handler) SettleOrder(w http.ResponseWriter, r *http.Request) {
	var (
		amount decimal.Decimal
		method string
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "amount":
			amount, err = decodeMoney(d)
		case "method":
			method, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	orderID := chi.URLParam(r, "orderID")
	o, err := h.orderReader.Get(r.Context(), orderID)
	switch {
	case errors.Is(err, order.ErrNotFound):
		fail(w, r, errOrderNotFound)
		return
	case err != nil:
		fail(w, r, errors.Wrap(err, "get order"))
		return
	case o.UserID != userID(r.Context()):
		fail(w, r, errOrderNotFound)
		return
	}

	res, err := h.settlements.Settle(r.Context(), orderID, amount, payment.Method(method))
	status := http.StatusOK
	if err != nil {
		kind := apperr.KindOf(err)
		status = apperr.MetadataFor(kind).HTTPStatus
		if status >= http.StatusInternalServerError {
			fail(w, r, err)
			return
		}
	}
	writeJSON(w, status, func(e *jx.Encoder) { encodeSettlement(e, res) })
}
