package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Reason explains why a voucher was rejected. The zero value means accepted.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonEmptyCode   Reason = "empty_code"
	ReasonNotFound    Reason = "not_found"
	ReasonInactive    Reason = "inactive"
	ReasonNotStarted  Reason = "not_started"
	ReasonExpired     Reason = "expired"
	ReasonMinPurchase Reason = "min_purchase"
	ReasonNotClaimed  Reason = "not_claimed"
	ReasonAlreadyUsed Reason = "already_used"
	ReasonUnsupported Reason = "unsupported"
)

// Result is the outcome of validating a voucher code. A rejected voucher is a
// normal outcome, not an error.
type Result struct {
	Valid    bool
	Voucher  *Voucher
	Discount decimal.Decimal
	Reason   Reason
	Message  string
}

func reject(reason Reason, msg string) Result {
	return Result{Reason: reason, Message: msg, Discount: decimal.Zero}
}

// Validator decides voucher eligibility for a subtotal and user.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, userID string) (Result, error)
}

// Check runs the eligibility rules that do not need the ledger, in order:
// active, date window, minimum purchase. It returns the first failure.
func Check(v *Voucher, subtotal decimal.Decimal, now time.Time) (Reason, string) {
	if !v.IsActive {
		return ReasonInactive, "this voucher is inactive"
	}
	if now.Before(v.StartDate) {
		return ReasonNotStarted, "this voucher is not valid yet"
	}
	if v.EndDate != nil && now.After(*v.EndDate) {
		return ReasonExpired, "this voucher has expired"
	}
	if subtotal.LessThan(v.MinPurchase) {
		return ReasonMinPurchase, fmt.Sprintf("minimum purchase of %s required", v.MinPurchase.StringFixed(Precision))
	}
	return ReasonNone, ""
}

var _ Validator = (*LedgerValidator)(nil)

// LedgerValidator implements Validator by looking vouchers up in a Ledger.
// When the ledger also implements ClaimLedger and a user id is given, the
// user must hold an unused claim on the voucher.
type LedgerValidator struct {
	ledger Ledger
	now    func() time.Time
}

// NewLedgerValidator creates a LedgerValidator backed by ledger.
func NewLedgerValidator(ledger Ledger) *LedgerValidator {
	return &LedgerValidator{ledger: ledger, now: time.Now}
}

// Validate normalizes code, looks it up and checks, in order: existence,
// active flag, date window, minimum purchase and the user's claim. The first
// failing check decides the message. Only ledger failures return an error.
func (v *LedgerValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal, userID string) (Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return reject(ReasonEmptyCode, "please enter a voucher code"), nil
	}

	vc, err := v.ledger.GetVoucherByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return reject(ReasonNotFound, "voucher not found"), nil
		}
		return Result{}, errors.Wrap(err, "lookup voucher")
	}

	if reason, msg := Check(vc, subtotal, v.now()); reason != ReasonNone {
		return reject(reason, msg), nil
	}

	if claims, ok := v.ledger.(ClaimLedger); ok && userID != "" {
		claim, err := claims.FindClaim(ctx, vc.ID, userID)
		switch {
		case errors.Is(err, ErrClaimNotFound):
			return reject(ReasonNotClaimed, "you need to claim this voucher first"), nil
		case err != nil:
			return Result{}, errors.Wrap(err, "lookup voucher claim")
		case claim.IsUsed:
			return reject(ReasonAlreadyUsed, "this voucher has already been used"), nil
		}
	}

	discount, err := Compute(vc, subtotal)
	if err != nil {
		return reject(ReasonUnsupported, "this voucher cannot be applied"), nil
	}

	return Result{
		Valid:    true,
		Voucher:  vc,
		Discount: discount,
		Message:  fmt.Sprintf("voucher applied, you save %s", discount.StringFixed(Precision)),
	}, nil
}
