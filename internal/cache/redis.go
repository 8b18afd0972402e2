// Package cache stores carts in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
)

// NewClient parses a redis:// URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository on Redis. Each cart is one JSON
// value under cart:<userID>. Every save refreshes the TTL, so carts expire
// only after a period without changes.
type CartRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCartRepository returns a CartRepository. A zero ttl keeps carts forever.
func NewCartRepository(client redis.Cmdable, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

func (r *CartRepository) Load(ctx context.Context, userID string) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart %q: %w", userID, err)
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart %q: %w", userID, err)
	}
	c.UserID = userID
	return &c, nil
}

func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	if len(c.Items) == 0 {
		return r.Delete(ctx, c.UserID)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart %q: %w", c.UserID, err)
	}
	if err := r.client.Set(ctx, cartKey(c.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set cart %q: %w", c.UserID, err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cart %q: %w", userID, err)
	}
	return nil
}

func cartKey(userID string) string {
	return "cart:" + userID
}
