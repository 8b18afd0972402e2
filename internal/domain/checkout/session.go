// Package checkout composes a priced order draft from the cart and the
// user's checkout choices.
package checkout

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/voucher"
)

// Selection is the user's transient checkout state.
type Selection struct {
	AddressID       string
	DeliveryMethod  string
	PaymentMethod   payment.Method
	SelectedItemIDs []string
}

// Session carries one user's checkout state between requests. It is safe
// for concurrent use.
type Session struct {
	ID     string
	UserID string

	mu      sync.Mutex
	sel     Selection
	voucher *voucher.Voucher
}

// NewSession starts an empty checkout session for userID.
func NewSession(userID string) *Session {
	return &Session{ID: uuid.NewString(), UserID: userID}
}

// Selection returns a copy of the current selection.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.sel
	sel.SelectedItemIDs = slices.Clone(s.sel.SelectedItemIDs)
	return sel
}

// AppliedVoucher returns the voucher committed to the session, if any.
func (s *Session) AppliedVoucher() *voucher.Voucher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voucher
}

// SelectItems replaces the set of selected product ids. Duplicates and
// empty ids are dropped.
func (s *Session) SelectItems(ids []string) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	s.mu.Lock()
	s.sel.SelectedItemIDs = out
	s.mu.Unlock()
}

// SetAddress records the chosen address id. Existence is checked when the
// order is placed.
func (s *Session) SetAddress(id string) {
	s.mu.Lock()
	s.sel.AddressID = id
	s.mu.Unlock()
}

func (s *Session) setDeliveryMethod(id string) {
	s.mu.Lock()
	s.sel.DeliveryMethod = id
	s.mu.Unlock()
}

func (s *Session) setPaymentMethod(m payment.Method) {
	s.mu.Lock()
	s.sel.PaymentMethod = m
	s.mu.Unlock()
}

func (s *Session) setVoucher(v *voucher.Voucher) {
	s.mu.Lock()
	s.voucher = v
	s.mu.Unlock()
}

// RemoveVoucher detaches the applied voucher. Other choices are kept.
func (s *Session) RemoveVoucher() {
	s.setVoucher(nil)
}

// Reset clears the session after an order was placed from it.
func (s *Session) Reset() {
	s.mu.Lock()
	s.sel = Selection{}
	s.voucher = nil
	s.mu.Unlock()
}

// Sessions keeps one live Session per user.
type Sessions struct {
	mu     sync.Mutex
	byUser map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[string]*Session)}
}

// For returns the user's session, starting one if needed.
func (r *Sessions) For(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byUser[userID]
	if !ok {
		s = NewSession(userID)
		r.byUser[userID] = s
	}
	return s
}

// Drop forgets the user's session.
func (r *Sessions) Drop(userID string) {
	r.mu.Lock()
	delete(r.byUser, userID)
	r.mu.Unlock()
}
