package voucher

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported voucher discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal, optionally capped
	// by MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned by a Ledger when no voucher matches a code.
	ErrNotFound = errors.New("voucher not found")
	// ErrClaimNotFound is returned by a ClaimLedger when the user has not
	// claimed the voucher.
	ErrClaimNotFound = errors.New("voucher claim not found")
)

// Voucher is an immutable business record owned by the voucher ledger.
type Voucher struct {
	ID            string
	Code          string
	Name          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinPurchase   decimal.Decimal
	// MaxDiscount caps percentage discounts. Nil means uncapped.
	MaxDiscount *decimal.Decimal
	StartDate   time.Time
	// EndDate is nil for vouchers that never expire.
	EndDate  *time.Time
	IsActive bool
}

// Claim records that a user collected a voucher and whether it was spent.
type Claim struct {
	VoucherID string
	UserID    string
	IsUsed    bool
	UsedAt    *time.Time
}

// Ledger provides read access to vouchers by code.
type Ledger interface {
	// GetVoucherByCode returns the voucher for an upper-case code or
	// ErrNotFound.
	GetVoucherByCode(ctx context.Context, code string) (*Voucher, error)
}

// ClaimLedger is implemented by ledgers that track per-user voucher claims.
type ClaimLedger interface {
	// FindClaim returns the user's claim or ErrClaimNotFound.
	FindClaim(ctx context.Context, voucherID, userID string) (*Claim, error)
}

// NormalizeCode trims and upper-cases a user-entered voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
