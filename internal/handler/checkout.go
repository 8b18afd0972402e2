package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// ListDeliveryMethods returns the delivery table in display order.
func (h *Handler) ListDeliveryMethods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeDeliveryMethods(e, h.drafts.Delivery().Methods())
	})
}

// ListPaymentMethods returns the payment method catalogue.
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodePaymentMethods(e, payment.Methods())
	})
}

func (h *Handler) writeDraft(w http.ResponseWriter, r *http.Request, s *checkout.Session) {
	draft, err := h.drafts.Draft(r.Context(), s)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeDraft(e, s.ID, s.AppliedVoucher(), draft)
	})
}

// GetCheckout prices the shopper's current selection.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	h.writeDraft(w, r, h.sessions.For(userID(r.Context())))
}

// UpdateCheckout changes the fields present in the body and leaves the rest
// of the selection as it was.
func (h *Handler) UpdateCheckout(w http.ResponseWriter, r *http.Request) {
	var (
		items                          []string
		address, deliveryID, paymentID *string
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "selectedItemIds":
			items, err = decodeStrings(d)
		case "addressId":
			address, err = optStr(d)
		case "deliveryMethod":
			deliveryID, err = optStr(d)
		case "paymentMethod":
			paymentID, err = optStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	s := h.sessions.For(userID(r.Context()))
	if deliveryID != nil {
		if err := h.drafts.SetDeliveryMethod(s, *deliveryID); err != nil {
			fail(w, r, err)
			return
		}
	}
	if paymentID != nil {
		if err := h.drafts.SetPaymentMethod(s, payment.Method(*paymentID)); err != nil {
			fail(w, r, err)
			return
		}
	}
	if items != nil {
		s.SelectItems(items)
	}
	if address != nil {
		s.SetAddress(*address)
	}
	h.writeDraft(w, r, s)
}

// ResetCheckout discards the selection and the applied voucher.
func (h *Handler) ResetCheckout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Drop(userID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// ApplyVoucher validates a code against the selected items and applies it
// when eligible. A rejected code is a 200 with valid=false and the previous
// voucher stays applied.
func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	var code string
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		var err error
		code, err = d.Str()
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	s := h.sessions.For(userID(r.Context()))
	res, err := h.drafts.ApplyVoucher(r.Context(), s, code)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeVoucherResult(e, res) })
}

// RemoveVoucher detaches the applied voucher and returns the repriced draft.
func (h *Handler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.For(userID(r.Context()))
	s.RemoveVoucher()
	h.writeDraft(w, r, s)
}

// optStr decodes a string field. Null counts as absent.
func optStr(d *jx.Decoder) (*string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	return &s, err
}
