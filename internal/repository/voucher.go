package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/voucher"
)

const (
	getVoucherByCodeSQL = `SELECT id, code, name, discount_type, discount_value, min_purchase,
		max_discount, start_date, end_date, is_active
		FROM vouchers WHERE UPPER(code) = UPPER($1)`

	findClaimSQL = `SELECT voucher_id, user_id, is_used, used_at
		FROM user_vouchers WHERE voucher_id = $1 AND user_id = $2`

	upsertVoucherSQL = `INSERT INTO vouchers (code, name, discount_type, discount_value, min_purchase,
		max_discount, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ((UPPER(code))) DO UPDATE SET
			name = EXCLUDED.name,
			discount_type = EXCLUDED.discount_type,
			discount_value = EXCLUDED.discount_value,
			min_purchase = EXCLUDED.min_purchase,
			max_discount = EXCLUDED.max_discount,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active
		RETURNING id`

	claimVoucherSQL = `INSERT INTO user_vouchers (voucher_id, user_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
)

var (
	_ voucher.Ledger      = (*VoucherRepository)(nil)
	_ voucher.ClaimLedger = (*VoucherRepository)(nil)
)

// VoucherRepository implements the voucher ledger backed by PostgreSQL.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// GetVoucherByCode looks up a voucher by code (case-insensitive), active or
// not. Eligibility is decided by the validator.
func (r *VoucherRepository) GetVoucherByCode(ctx context.Context, code string) (*voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, getVoucherByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVoucher)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrNotFound
		}
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}
	return &v, nil
}

// FindClaim returns the user's claim on a voucher or voucher.ErrClaimNotFound.
func (r *VoucherRepository) FindClaim(ctx context.Context, voucherID, userID string) (*voucher.Claim, error) {
	rows, err := r.pool.Query(ctx, findClaimSQL, voucherID, userID)
	if err != nil {
		return nil, fmt.Errorf("finding claim on %q: %w", voucherID, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (voucher.Claim, error) {
		var c voucher.Claim
		err := row.Scan(&c.VoucherID, &c.UserID, &c.IsUsed, &c.UsedAt)
		return c, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrClaimNotFound
		}
		return nil, fmt.Errorf("finding claim on %q: %w", voucherID, err)
	}
	return &c, nil
}

// Upsert inserts or replaces a voucher keyed by its code and returns the
// stored id.
func (r *VoucherRepository) Upsert(ctx context.Context, v *voucher.Voucher) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, upsertVoucherSQL,
		voucher.NormalizeCode(v.Code), v.Name, string(v.DiscountType), v.DiscountValue, v.MinPurchase,
		v.MaxDiscount, v.StartDate, v.EndDate, v.IsActive,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting voucher %q: %w", v.Code, err)
	}
	return id, nil
}

// Claim records that userID collected the voucher. Claiming twice is a no-op.
func (r *VoucherRepository) Claim(ctx context.Context, voucherID, userID string) error {
	if _, err := r.pool.Exec(ctx, claimVoucherSQL, voucherID, userID); err != nil {
		return fmt.Errorf("claiming voucher %q for %q: %w", voucherID, userID, err)
	}
	return nil
}

func scanVoucher(row pgx.CollectableRow) (voucher.Voucher, error) {
	var (
		v     voucher.Voucher
		dtype string
	)
	err := row.Scan(
		&v.ID, &v.Code, &v.Name, &dtype, &v.DiscountValue, &v.MinPurchase,
		&v.MaxDiscount, &v.StartDate, &v.EndDate, &v.IsActive,
	)
	v.DiscountType = voucher.DiscountType(dtype)
	return v, err
}
