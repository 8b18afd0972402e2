package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/address"
)

const (
	getAddressSQL = `SELECT id, user_id, label, recipient_name, phone_number, address_line,
		city, province, postal_code, is_default
		FROM addresses WHERE id = $1`

	saveAddressSQL = `INSERT INTO addresses (id, user_id, label, recipient_name, phone_number, address_line,
		city, province, postal_code, is_default)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id, label = EXCLUDED.label,
			recipient_name = EXCLUDED.recipient_name, phone_number = EXCLUDED.phone_number,
			address_line = EXCLUDED.address_line, city = EXCLUDED.city,
			province = EXCLUDED.province, postal_code = EXCLUDED.postal_code,
			is_default = EXCLUDED.is_default
		RETURNING id`
)

var _ address.Book = (*AddressRepository)(nil)

// AddressRepository implements address.Book backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// GetAddress returns a single address or address.ErrNotFound.
func (r *AddressRepository) GetAddress(ctx context.Context, id string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (address.Address, error) {
		var a address.Address
		err := row.Scan(
			&a.ID, &a.UserID, &a.Label, &a.RecipientName, &a.PhoneNumber, &a.AddressLine,
			&a.City, &a.Province, &a.PostalCode, &a.IsDefault,
		)
		return a, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	return &a, nil
}

// Save stores a, replacing any address with the same id. A blank id is
// generated and set on a.
func (r *AddressRepository) Save(ctx context.Context, a *address.Address) error {
	err := r.pool.QueryRow(ctx, saveAddressSQL,
		a.ID, a.UserID, a.Label, a.RecipientName, a.PhoneNumber, a.AddressLine,
		a.City, a.Province, a.PostalCode, a.IsDefault,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("saving address for %q: %w", a.UserID, err)
	}
	return nil
}
