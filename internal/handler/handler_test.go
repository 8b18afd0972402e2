package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/delivery"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/settlement"
	"github.com/xenking/storefront-checkout/internal/domain/voucher"
	"github.com/xenking/storefront-checkout/pkg/httpmiddleware"
)

// --- In-memory collaborators ---

type memoryOrders struct {
	mu   sync.Mutex
	byID map[string]*order.Order
}

func (m *memoryOrders) CreateWithItems(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[o.ID] = o
	return nil
}

func (m *memoryOrders) Get(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

type failingReader struct{}

func (failingReader) Get(context.Context, string) (*order.Order, error) {
	return nil, errors.New("db down")
}

type addressBook map[string]*address.Address

func (b addressBook) GetAddress(_ context.Context, id string) (*address.Address, error) {
	a, ok := b[id]
	if !ok {
		return nil, address.ErrNotFound
	}
	return a, nil
}

type ledger map[string]*voucher.Voucher

func (l ledger) GetVoucherByCode(_ context.Context, code string) (*voucher.Voucher, error) {
	v, ok := l[code]
	if !ok {
		return nil, voucher.ErrNotFound
	}
	return v, nil
}

// --- Helpers ---

func newServer(t *testing.T, limit httpmiddleware.Middleware) http.Handler {
	t.Helper()

	maxDiscount := decimal.NewFromInt(15000)
	vouchers := voucher.NewLedgerValidator(ledger{
		"SAVE10": {
			ID: "v1", Code: "SAVE10", Name: "Save 10%",
			DiscountType: voucher.DiscountPercentage, DiscountValue: decimal.NewFromInt(10),
			MinPurchase: decimal.NewFromInt(50000), MaxDiscount: &maxDiscount,
			StartDate: time.Now().Add(-time.Hour), IsActive: true,
		},
	})
	book := addressBook{"addr-1": {
		ID: "addr-1", UserID: "u1", RecipientName: "Siti", PhoneNumber: "0812",
		AddressLine: "Jl. Merdeka 1", City: "Bandung", PostalCode: "40111",
	}}
	orders := &memoryOrders{byID: map[string]*order.Order{}}

	carts := cart.NewStore(cart.NewMemoryRepository())
	drafts := checkout.NewAggregator(carts, vouchers, delivery.Default())
	svc, err := order.NewService(drafts, book, vouchers, orders, carts)
	require.NoError(t, err)
	sim, err := settlement.NewSimulator(orders, settlement.Config{})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(carts, checkout.NewSessions(), drafts, svc, orders, sim).Register(r, limit)
	return r
}

type response struct {
	Code int
	Body map[string]any
	List []any
	raw  *httptest.ResponseRecorder
}

func call(t *testing.T, h http.Handler, method, path, user, body string) response {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(httpmiddleware.UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	res := response{Code: w.Code, raw: w}
	if w.Body.Len() > 0 {
		if strings.HasPrefix(w.Body.String(), "[") {
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.List), w.Body.String())
		} else {
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.Body), w.Body.String())
		}
	}
	return res
}

func seedCart(t *testing.T, h http.Handler) {
	t.Helper()
	require.Equal(t, http.StatusOK, call(t, h, http.MethodPost, "/api/cart/items", "u1",
		`{"productId":"A","name":"Sarung A","price":100000,"quantity":2}`).Code)
	require.Equal(t, http.StatusOK, call(t, h, http.MethodPost, "/api/cart/items", "u1",
		`{"productId":"B","name":"Sarung B","price":"50000","quantity":1}`).Code)
}

const readySelection = `{"selectedItemIds":["A"],"addressId":"addr-1","deliveryMethod":"regular","paymentMethod":"bank_transfer"}`

// --- Tests ---

func TestCheckoutFlow(t *testing.T) {
	h := newServer(t, nil)
	seedCart(t, h)

	res := call(t, h, http.MethodPut, "/api/checkout", "u1", readySelection)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 205000.0, res.Body["total"])
	assert.Equal(t, 5000.0, res.Body["deliveryFee"])
	assert.Equal(t, true, res.Body["canSubmit"])

	res = call(t, h, http.MethodPost, "/api/checkout/voucher", "u1", `{"code":" save10 "}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, true, res.Body["valid"])
	assert.Equal(t, 15000.0, res.Body["discount"])

	res = call(t, h, http.MethodGet, "/api/checkout", "u1", "")
	assert.Equal(t, 190000.0, res.Body["total"])
	assert.Equal(t, "SAVE10", res.Body["voucher"].(map[string]any)["code"])

	res = call(t, h, http.MethodPost, "/api/orders", "u1", "")
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	orderID := res.Body["id"].(string)
	assert.Equal(t, "/api/orders/"+orderID, res.raw.Header().Get("Location"))
	assert.Equal(t, "PENDING", res.Body["status"])
	assert.Equal(t, 190000.0, res.Body["totalAmount"])
	assert.Equal(t, "SAVE10", res.Body["voucherCode"])
	assert.Equal(t, "Siti (0812)\nJl. Merdeka 1\nBandung, 40111", res.Body["shippingAddress"])

	res = call(t, h, http.MethodGet, "/api/cart", "u1", "")
	items := res.Body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].(map[string]any)["productId"])

	res = call(t, h, http.MethodGet, "/api/checkout", "u1", "")
	assert.Equal(t, false, res.Body["canSubmit"], "selection cleared after placement")
	assert.Nil(t, res.Body["voucher"])

	res = call(t, h, http.MethodPost, "/api/orders/"+orderID+"/settlements", "u1",
		`{"amount":190000,"method":"bank_transfer"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, true, res.Body["success"])
	assert.Equal(t, "SUCCEEDED", res.Body["state"])
	assert.Equal(t, "BT-"+orderID[:8], res.Body["transactionId"])
	assert.Len(t, res.Body["bankAccounts"], 4)

	res = call(t, h, http.MethodGet, "/api/orders/"+orderID, "u1", "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "PENDING", res.Body["status"], "settlement never changes the order")
}

func TestPlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name      string
		selection string
		wantCode  int
		wantKind  string
		wantMsg   string
	}{
		{
			name:      "nothing selected",
			selection: `{"addressId":"addr-1"}`,
			wantCode:  http.StatusUnprocessableEntity,
			wantKind:  "VALIDATION_ERROR",
			wantMsg:   "select at least one item",
		},
		{
			name:      "unknown address",
			selection: `{"selectedItemIds":["A"],"addressId":"nope","deliveryMethod":"fast","paymentMethod":"cod"}`,
			wantCode:  http.StatusNotFound,
			wantKind:  "NOT_FOUND",
			wantMsg:   "shipping address not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, nil)
			seedCart(t, h)
			require.Equal(t, http.StatusOK, call(t, h, http.MethodPut, "/api/checkout", "u1", tt.selection).Code)

			res := call(t, h, http.MethodPost, "/api/orders", "u1", "")
			assert.Equal(t, tt.wantCode, res.Code)
			assert.Equal(t, tt.wantKind, res.Body["kind"])
			assert.Contains(t, res.Body["message"], tt.wantMsg)
			assert.Equal(t, float64(tt.wantCode), res.Body["code"])
		})
	}
}

func TestUpdateCheckout_RejectsUnknownMethods(t *testing.T) {
	h := newServer(t, nil)

	res := call(t, h, http.MethodPut, "/api/checkout", "u1", `{"deliveryMethod":"teleport"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = call(t, h, http.MethodPut, "/api/checkout", "u1", `{"paymentMethod":"barter"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = call(t, h, http.MethodPut, "/api/checkout", "u1", `{"deliveryMethod":`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestApplyVoucher_Rejected(t *testing.T) {
	h := newServer(t, nil)
	seedCart(t, h)
	call(t, h, http.MethodPut, "/api/checkout", "u1", `{"selectedItemIds":["B"]}`)

	res := call(t, h, http.MethodPost, "/api/checkout/voucher", "u1", `{"code":"BOGUS"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, false, res.Body["valid"])
	assert.Equal(t, "not_found", res.Body["reason"])

	res = call(t, h, http.MethodGet, "/api/checkout", "u1", "")
	assert.Nil(t, res.Body["voucher"])
	assert.Equal(t, 50000.0, res.Body["total"])
}

func TestRemoveVoucher(t *testing.T) {
	h := newServer(t, nil)
	seedCart(t, h)
	call(t, h, http.MethodPut, "/api/checkout", "u1", readySelection)
	call(t, h, http.MethodPost, "/api/checkout/voucher", "u1", `{"code":"SAVE10"}`)

	res := call(t, h, http.MethodDelete, "/api/checkout/voucher", "u1", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 205000.0, res.Body["total"])
	assert.Equal(t, "regular", res.Body["selection"].(map[string]any)["deliveryMethod"])
}

func TestCartEndpoints(t *testing.T) {
	h := newServer(t, nil)
	seedCart(t, h)

	res := call(t, h, http.MethodPatch, "/api/cart/items/A", "u1", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 6.0, res.Body["itemCount"])
	assert.Equal(t, 550000.0, res.Body["subtotal"])

	res = call(t, h, http.MethodDelete, "/api/cart/items/B", "u1", "")
	assert.Equal(t, 5.0, res.Body["itemCount"])

	res = call(t, h, http.MethodPost, "/api/cart/items", "u1", `{"productId":"","price":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	assert.Equal(t, http.StatusNoContent, call(t, h, http.MethodDelete, "/api/cart", "u1", "").Code)
	res = call(t, h, http.MethodGet, "/api/cart", "u1", "")
	assert.Empty(t, res.Body["items"])
}

func TestMethodLists(t *testing.T) {
	h := newServer(t, nil)

	res := call(t, h, http.MethodGet, "/api/delivery-methods", "", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, res.List, 3)
	assert.Equal(t, "instant", res.List[0].(map[string]any)["id"])
	assert.Equal(t, 20000.0, res.List[0].(map[string]any)["fee"])

	res = call(t, h, http.MethodGet, "/api/payment-methods", "", "")
	require.Len(t, res.List, 6)
}

func TestRequiresUser(t *testing.T) {
	h := newServer(t, nil)

	res := call(t, h, http.MethodGet, "/api/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestOrders_OtherUsersHidden(t *testing.T) {
	h := newServer(t, nil)
	seedCart(t, h)
	call(t, h, http.MethodPut, "/api/checkout", "u1", readySelection)
	res := call(t, h, http.MethodPost, "/api/orders", "u1", "")
	require.Equal(t, http.StatusCreated, res.Code)
	id := res.Body["id"].(string)

	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodGet, "/api/orders/"+id, "u2", "").Code)
	assert.Equal(t, http.StatusNotFound, call(t, h, http.MethodPost, "/api/orders/"+id+"/settlements", "u2",
		`{"amount":205000,"method":"cod"}`).Code)
}

func TestSettleOrder_Failures(t *testing.T) {
	h := newServer(t, nil)
	seedCart(t, h)
	call(t, h, http.MethodPut, "/api/checkout", "u1", readySelection)
	res := call(t, h, http.MethodPost, "/api/orders", "u1", "")
	require.Equal(t, http.StatusCreated, res.Code)
	id := res.Body["id"].(string)

	res = call(t, h, http.MethodPost, "/api/orders/"+id+"/settlements", "u1", `{"amount":1,"method":"cod"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, false, res.Body["success"])
	assert.Equal(t, "FAILED", res.Body["state"])

	res = call(t, h, http.MethodPost, "/api/orders/missing/settlements", "u1", `{"amount":1,"method":"cod"}`)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "order not found", res.Body["message"])

	res = call(t, h, http.MethodPost, "/api/orders/"+id+"/settlements", "u1", `{"amount":205000,"method":"cod"}`)
	assert.Equal(t, http.StatusOK, res.Code, "retry after a failed attempt")
}

func TestSettleOrder_LookupFailure(t *testing.T) {
	orders := &memoryOrders{byID: map[string]*order.Order{
		"o1": {ID: "o1", UserID: "u2", Status: order.StatusPending, TotalAmount: decimal.NewFromInt(205000)},
	}}
	sim, err := settlement.NewSimulator(orders, settlement.Config{})
	require.NoError(t, err)

	r := chi.NewRouter()
	(&Handler{orderReader: failingReader{}, settlements: sim}).Register(r, nil)

	res := call(t, r, http.MethodPost, "/api/orders/o1/settlements", "u1", `{"amount":205000,"method":"cod"}`)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, "internal error", res.Body["message"])
	assert.Nil(t, res.Body["transactionId"], "no settlement without an ownership check")
}

func TestPlaceOrder_RateLimited(t *testing.T) {
	h := newServer(t, httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{Max: 1, Window: time.Minute}))

	assert.Equal(t, http.StatusUnprocessableEntity, call(t, h, http.MethodPost, "/api/orders", "u1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, call(t, h, http.MethodPost, "/api/orders", "u1", "").Code)
	assert.Equal(t, http.StatusOK, call(t, h, http.MethodGet, "/api/checkout", "u1", "").Code, "reads are not limited")
}
