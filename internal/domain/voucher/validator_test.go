package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLedger struct {
	voucher    *Voucher
	err        error
	lookedUpAs string
}

func (m *mockLedger) GetVoucherByCode(_ context.Context, code string) (*Voucher, error) {
	m.lookedUpAs = code
	if m.err != nil {
		return nil, m.err
	}
	if m.voucher == nil {
		return nil, ErrNotFound
	}
	return m.voucher, nil
}

type mockClaimLedger struct {
	mockLedger
	claim    *Claim
	claimErr error
}

func (m *mockClaimLedger) FindClaim(_ context.Context, _, _ string) (*Claim, error) {
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	if m.claim == nil {
		return nil, ErrClaimNotFound
	}
	return m.claim, nil
}

func TestLedgerValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	save10 := func(mut func(*Voucher)) *Voucher {
		v := &Voucher{
			ID:            "v-1",
			Code:          "SAVE10",
			DiscountType:  DiscountPercentage,
			DiscountValue: d("10"),
			MinPurchase:   d("50000"),
			MaxDiscount:   dp("15000"),
			StartDate:     past,
			IsActive:      true,
		}
		if mut != nil {
			mut(v)
		}
		return v
	}

	tests := []struct {
		name         string
		ledger       Ledger
		code         string
		subtotal     decimal.Decimal
		userID       string
		wantValid    bool
		wantDiscount decimal.Decimal
		wantReason   Reason
	}{
		{
			name:         "percentage capped by max discount",
			ledger:       &mockLedger{voucher: save10(nil)},
			code:         "SAVE10",
			subtotal:     d("200000"),
			wantValid:    true,
			wantDiscount: d("15000"),
		},
		{
			name:       "empty code",
			ledger:     &mockLedger{voucher: save10(nil)},
			code:       "   ",
			subtotal:   d("200000"),
			wantReason: ReasonEmptyCode,
		},
		{
			name:       "unknown code",
			ledger:     &mockLedger{},
			code:       "BOGUS",
			subtotal:   d("200000"),
			wantReason: ReasonNotFound,
		},
		{
			name:       "inactive voucher",
			ledger:     &mockLedger{voucher: save10(func(v *Voucher) { v.IsActive = false })},
			code:       "SAVE10",
			subtotal:   d("200000"),
			wantReason: ReasonInactive,
		},
		{
			name: "inactive wins over expired",
			ledger: &mockLedger{voucher: save10(func(v *Voucher) {
				v.IsActive = false
				v.EndDate = &past
			})},
			code:       "SAVE10",
			subtotal:   d("200000"),
			wantReason: ReasonInactive,
		},
		{
			name:       "not started yet",
			ledger:     &mockLedger{voucher: save10(func(v *Voucher) { v.StartDate = future })},
			code:       "SAVE10",
			subtotal:   d("200000"),
			wantReason: ReasonNotStarted,
		},
		{
			name:       "expired",
			ledger:     &mockLedger{voucher: save10(func(v *Voucher) { v.EndDate = &past })},
			code:       "SAVE10",
			subtotal:   d("200000"),
			wantReason: ReasonExpired,
		},
		{
			name: "expired wins over minimum purchase",
			ledger: &mockLedger{voucher: save10(func(v *Voucher) {
				v.EndDate = &past
			})},
			code:       "SAVE10",
			subtotal:   d("10"),
			wantReason: ReasonExpired,
		},
		{
			name:         "open-ended window",
			ledger:       &mockLedger{voucher: save10(func(v *Voucher) { v.EndDate = &future })},
			code:         "SAVE10",
			subtotal:     d("100000"),
			wantValid:    true,
			wantDiscount: d("10000"),
		},
		{
			name:       "below minimum purchase",
			ledger:     &mockLedger{voucher: save10(nil)},
			code:       "SAVE10",
			subtotal:   d("49999"),
			wantReason: ReasonMinPurchase,
		},
		{
			name:         "subtotal equal to minimum purchase passes",
			ledger:       &mockLedger{voucher: save10(nil)},
			code:         "SAVE10",
			subtotal:     d("50000"),
			wantValid:    true,
			wantDiscount: d("5000"),
		},
		{
			name:       "claim required but missing",
			ledger:     &mockClaimLedger{mockLedger: mockLedger{voucher: save10(nil)}},
			code:       "SAVE10",
			subtotal:   d("200000"),
			userID:     "u1",
			wantReason: ReasonNotClaimed,
		},
		{
			name: "claim already used",
			ledger: &mockClaimLedger{
				mockLedger: mockLedger{voucher: save10(nil)},
				claim:      &Claim{VoucherID: "v-1", UserID: "u1", IsUsed: true},
			},
			code:       "SAVE10",
			subtotal:   d("200000"),
			userID:     "u1",
			wantReason: ReasonAlreadyUsed,
		},
		{
			name: "unused claim passes",
			ledger: &mockClaimLedger{
				mockLedger: mockLedger{voucher: save10(nil)},
				claim:      &Claim{VoucherID: "v-1", UserID: "u1"},
			},
			code:         "SAVE10",
			subtotal:     d("200000"),
			userID:       "u1",
			wantValid:    true,
			wantDiscount: d("15000"),
		},
		{
			name:         "claims skipped without user",
			ledger:       &mockClaimLedger{mockLedger: mockLedger{voucher: save10(nil)}},
			code:         "SAVE10",
			subtotal:     d("200000"),
			wantValid:    true,
			wantDiscount: d("15000"),
		},
		{
			name: "fixed discount clamped to subtotal",
			ledger: &mockLedger{voucher: save10(func(v *Voucher) {
				v.DiscountType = DiscountFixed
				v.DiscountValue = d("80000")
				v.MinPurchase = decimal.Zero
			})},
			code:         "SAVE10",
			subtotal:     d("60000"),
			wantValid:    true,
			wantDiscount: d("60000"),
		},
		{
			name: "unsupported type is rejected, not an error",
			ledger: &mockLedger{voucher: save10(func(v *Voucher) {
				v.DiscountType = "bogus"
			})},
			code:       "SAVE10",
			subtotal:   d("200000"),
			wantReason: ReasonUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewLedgerValidator(tt.ledger)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.code, tt.subtotal, tt.userID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantValid, got.Valid)
			assert.NotEmpty(t, got.Message)
			if !tt.wantValid {
				assert.Equal(t, tt.wantReason, got.Reason)
				assert.Nil(t, got.Voucher)
				assert.True(t, got.Discount.IsZero())
				return
			}
			assert.Equal(t, ReasonNone, got.Reason)
			require.NotNil(t, got.Voucher)
			assert.True(t, tt.wantDiscount.Equal(got.Discount),
				"expected discount %s, got %s", tt.wantDiscount, got.Discount)
		})
	}
}

func TestLedgerValidator_NormalizesCode(t *testing.T) {
	ledger := &mockLedger{}
	v := NewLedgerValidator(ledger)

	_, err := v.Validate(context.Background(), "  save10 ", d("1000"), "")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", ledger.lookedUpAs)
}

func TestLedgerValidator_LedgerFailure(t *testing.T) {
	v := NewLedgerValidator(&mockLedger{err: errors.New("connection refused")})

	_, err := v.Validate(context.Background(), "SAVE10", d("1000"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup voucher")
}

func TestLedgerValidator_ClaimLookupFailure(t *testing.T) {
	ledger := &mockClaimLedger{
		mockLedger: mockLedger{voucher: &Voucher{
			ID: "v-1", Code: "X", DiscountType: DiscountFixed, DiscountValue: d("1"), IsActive: true,
		}},
		claimErr: errors.New("timeout"),
	}
	v := NewLedgerValidator(ledger)

	_, err := v.Validate(context.Background(), "X", d("1000"), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup voucher claim")
}
