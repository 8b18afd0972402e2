package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrInvalidItem is returned when an item cannot be added to a cart.
var ErrInvalidItem = errors.New("invalid cart item")

// Store is the authoritative cart service. Every mutation loads the cart,
// applies the change and saves it back through the Repository.
type Store struct {
	repo Repository
}

// NewStore creates a Store backed by repo.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Get returns the user's cart. A user without a stored cart gets an empty one.
func (s *Store) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.repo.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Cart{UserID: userID}, nil
		}
		return nil, errors.Wrap(err, "load cart")
	}
	return c, nil
}

// AddItem adds quantity units of item to the user's cart. A zero quantity
// means one unit.
func (s *Store) AddItem(ctx context.Context, userID string, item Item, quantity int) (*Cart, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, errors.Wrap(ErrInvalidItem, "quantity must be positive")
	}
	if item.ProductID == "" {
		return nil, errors.Wrap(ErrInvalidItem, "product id required")
	}
	if item.Price.IsNegative() || (item.DiscountPrice != nil && item.DiscountPrice.IsNegative()) {
		return nil, errors.Wrap(ErrInvalidItem, "price must not be negative")
	}
	return s.mutate(ctx, userID, func(c *Cart) { c.Add(item, quantity) })
}

// RemoveItem deletes productID from the user's cart.
func (s *Store) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) { c.Remove(productID) })
}

// SetQuantity replaces the quantity of productID; quantity <= 0 removes it.
func (s *Store) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) { c.SetQuantity(productID, quantity) })
}

// RemoveItems deletes exactly the given product ids. Entries not listed are
// kept for a future purchase.
func (s *Store) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := s.mutate(ctx, userID, func(c *Cart) { c.RemoveAll(productIDs) })
	return err
}

// Clear empties the user's cart.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return errors.Wrap(err, "delete cart")
	}
	return nil
}

func (s *Store) mutate(ctx context.Context, userID string, fn func(*Cart)) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	fn(c)
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps carts in process memory. Carts do not survive a
// restart; use it for local development and tests.
type MemoryRepository struct {
	mu    sync.Mutex
	carts map[string][]Item
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string][]Item)}
}

func (r *MemoryRepository) Load(_ context.Context, userID string) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, ok := r.carts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &Cart{UserID: userID, Items: append([]Item(nil), items...)}, nil
}

func (r *MemoryRepository) Save(_ context.Context, c *Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[c.UserID] = append([]Item(nil), c.Items...)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}
