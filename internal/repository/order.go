package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, status, subtotal, delivery_fee, discount, total_amount,
		delivery_method, payment_method, voucher_id, voucher_code, shipping_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13)`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, name, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5)`

	redeemClaimSQL = `UPDATE user_vouchers SET is_used = TRUE, used_at = $3
		WHERE voucher_id = $1 AND user_id = $2 AND is_used = FALSE`

	getOrderSQL = `SELECT id, user_id, status, subtotal, delivery_fee, discount, total_amount,
		delivery_method, payment_method, COALESCE(voucher_id, ''), COALESCE(voucher_code, ''),
		shipping_address, created_at
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT product_id, name, quantity, price_at_purchase
		FROM order_items WHERE order_id = $1 ORDER BY product_id`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.Reader     = (*OrderRepository)(nil)
)

// ErrClaimAlreadyUsed is returned by CreateWithItems when the order's
// voucher claim was spent by a concurrent order.
var ErrClaimAlreadyUsed = errors.New("voucher claim already used")

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithItems writes the order header, its items and the voucher
// redemption in one transaction.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *order.Order) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.UserID, string(o.Status), o.Subtotal, o.DeliveryFee, o.Discount, o.TotalAmount,
			o.DeliveryMethod, o.PaymentMethod, o.VoucherID, o.VoucherCode, o.ShippingAddress, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(createOrderItemSQL, o.ID, it.ProductID, it.Name, it.Quantity, it.PriceAtPurchase)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("creating items for order %q: %w", o.ID, err)
		}

		if o.VoucherID == "" {
			return nil
		}
		tag, err := tx.Exec(ctx, redeemClaimSQL, o.VoucherID, o.UserID, o.CreatedAt)
		if err != nil {
			return fmt.Errorf("redeeming voucher %q: %w", o.VoucherCode, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("redeeming voucher %q: %w", o.VoucherCode, ErrClaimAlreadyUsed)
		}
		return nil
	})
}

// Get returns the order with its items, or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	rows, err = r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &status, &o.Subtotal, &o.DeliveryFee, &o.Discount, &o.TotalAmount,
		&o.DeliveryMethod, &o.PaymentMethod, &o.VoucherID, &o.VoucherCode,
		&o.ShippingAddress, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.PriceAtPurchase)
	return it, err
}
