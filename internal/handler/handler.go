// Package handler exposes the checkout flow over HTTP.
//
// The shopper is identified by the X-User-ID header; the API gateway in
// front of the server authenticates the user and sets it.
package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/apperr"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/settlement"
	"github.com/xenking/storefront-checkout/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// Handler serves the cart, checkout, order and settlement endpoints.
type Handler struct {
	carts       *cart.Store
	sessions    *checkout.Sessions
	drafts      *checkout.Aggregator
	orders      *order.Service
	orderReader order.Reader
	settlements *settlement.Simulator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	carts *cart.Store,
	sessions *checkout.Sessions,
	drafts *checkout.Aggregator,
	orders *order.Service,
	orderReader order.Reader,
	settlements *settlement.Simulator,
) *Handler {
	return &Handler{
		carts:       carts,
		sessions:    sessions,
		drafts:      drafts,
		orders:      orders,
		orderReader: orderReader,
		settlements: settlements,
	}
}

// Register mounts the API under /api. Order placement and settlement go
// through limit when it is not nil.
func (h *Handler) Register(r chi.Router, limit httpmiddleware.Middleware) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/delivery-methods", h.ListDeliveryMethods)
		r.Get("/payment-methods", h.ListPaymentMethods)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Patch("/cart/items/{productID}", h.SetCartItemQuantity)
			r.Delete("/cart/items/{productID}", h.RemoveCartItem)

			r.Get("/checkout", h.GetCheckout)
			r.Put("/checkout", h.UpdateCheckout)
			r.Delete("/checkout", h.ResetCheckout)
			r.Post("/checkout/voucher", h.ApplyVoucher)
			r.Delete("/checkout/voucher", h.RemoveVoucher)

			r.Get("/orders/{orderID}", h.GetOrder)

			r.Group(func(r chi.Router) {
				if limit != nil {
					r.Use(limit)
				}
				r.Post("/orders", h.PlaceOrder)
				r.Post("/orders/{orderID}/settlements", h.SettleOrder)
			})
		})
	})
}

type userKey struct{}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(httpmiddleware.UserIDHeader))
		if id == "" {
			httpmiddleware.WriteError(w, http.StatusUnauthorized, "missing "+httpmiddleware.UserIDHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, id)
		ctx = zctx.With(ctx, zap.String("user_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// errBadRequest marks a request body that could not be decoded.
var errBadRequest = errors.New("invalid request body")

// decodeBody reads the request body and feeds it to fn as an object.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	if err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// fail maps err to an HTTP status and writes the error body
// {"code","kind","message","retryable"}.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	lg := zctx.From(r.Context())

	switch {
	case errors.Is(err, errBadRequest):
		httpmiddleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, cart.ErrInvalidItem):
		err = apperr.Wrap(err, apperr.KindValidation, err.Error())
	}

	kind := apperr.KindOf(err)
	md := apperr.MetadataFor(kind)
	msg := md.PublicMessage
	if e := apperr.As(err); e != nil && md.HTTPStatus < http.StatusInternalServerError {
		msg = e.Message()
	}

	if md.HTTPStatus >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.String("kind", string(kind)), zap.Error(err))
	}

	writeJSON(w, md.HTTPStatus, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("code", func(e *jx.Encoder) { e.Int(md.HTTPStatus) })
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(kind)) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("retryable", func(e *jx.Encoder) { e.Bool(md.Retryable) })
		e.ObjEnd()
	})
}
