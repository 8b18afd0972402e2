package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  decimal.Decimal
	}{
		{
			name: "empty",
			want: decimal.Zero,
		},
		{
			name: "list price times quantity",
			items: []Item{
				{ProductID: "A", Price: d("100000"), Quantity: 2},
				{ProductID: "B", Price: d("50000"), Quantity: 1},
			},
			want: d("250000"),
		},
		{
			name: "discount price wins over list price",
			items: []Item{
				{ProductID: "A", Price: d("100000"), DiscountPrice: dp("80000"), Quantity: 3},
			},
			want: d("240000"),
		},
		{
			name: "zero discount price is still used",
			items: []Item{
				{ProductID: "A", Price: d("100000"), DiscountPrice: dp("0"), Quantity: 3},
			},
			want: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtotal(tt.items)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestSubtotal_OrderIndependent(t *testing.T) {
	items := []Item{
		{ProductID: "A", Price: d("100000"), Quantity: 2},
		{ProductID: "B", Price: d("50000"), DiscountPrice: dp("45000"), Quantity: 1},
		{ProductID: "C", Price: d("12500.50"), Quantity: 4},
	}
	reversed := []Item{items[2], items[1], items[0]}
	rotated := []Item{items[1], items[2], items[0]}

	want := Subtotal(items)
	assert.True(t, want.Equal(Subtotal(reversed)))
	assert.True(t, want.Equal(Subtotal(rotated)))
}

func TestCart_Add(t *testing.T) {
	var c Cart
	c.Add(Item{ProductID: "A", Price: d("10")}, 1)
	c.Add(Item{ProductID: "B", Price: d("20")}, 2)
	c.Add(Item{ProductID: "A", Price: d("10")}, 3)

	require.Len(t, c.Items, 2)
	a, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, 4, a.Quantity)
	assert.Equal(t, 6, c.ItemCount())
}

func TestCart_SetQuantity(t *testing.T) {
	c := Cart{Items: []Item{
		{ProductID: "A", Price: d("10"), Quantity: 1},
		{ProductID: "B", Price: d("20"), Quantity: 1},
	}}

	assert.True(t, c.SetQuantity("A", 5))
	a, _ := c.Get("A")
	assert.Equal(t, 5, a.Quantity)

	assert.True(t, c.SetQuantity("B", 0))
	_, ok := c.Get("B")
	assert.False(t, ok)

	assert.False(t, c.SetQuantity("missing", 3))
	assert.Len(t, c.Items, 1)
}

func TestCart_RemoveAllKeepsUnselected(t *testing.T) {
	c := Cart{Items: []Item{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 1},
		{ProductID: "C", Quantity: 7},
	}}

	c.RemoveAll([]string{"A", "C", "not-in-cart"})

	require.Len(t, c.Items, 1)
	assert.Equal(t, "B", c.Items[0].ProductID)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestCart_FilterKeepsCartOrder(t *testing.T) {
	c := Cart{Items: []Item{
		{ProductID: "A"}, {ProductID: "B"}, {ProductID: "C"},
	}}

	got := c.Filter([]string{"C", "A", "Z"})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].ProductID)
	assert.Equal(t, "C", got[1].ProductID)
}

func TestStore_Mutations(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	s := NewStore(repo)

	c, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = s.AddItem(ctx, "u1", Item{ProductID: "A", Price: d("100000")}, 0)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "u1", Item{ProductID: "B", Price: d("50000")}, 1)
	require.NoError(t, err)
	c, err = s.SetQuantity(ctx, "u1", "A", 2)
	require.NoError(t, err)
	assert.True(t, d("250000").Equal(c.Subtotal()))

	require.NoError(t, s.RemoveItems(ctx, "u1", []string{"A"}))
	c, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "B", c.Items[0].ProductID)

	c, err = s.RemoveItem(ctx, "u1", "B")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	require.NoError(t, s.Clear(ctx, "u1"))
	_, err = repo.Load(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AddItemRejectsInvalid(t *testing.T) {
	s := NewStore(NewMemoryRepository())

	_, err := s.AddItem(context.Background(), "u1", Item{Price: d("1")}, 1)
	require.ErrorIs(t, err, ErrInvalidItem)

	_, err = s.AddItem(context.Background(), "u1", Item{ProductID: "A", Price: d("-1")}, 1)
	require.ErrorIs(t, err, ErrInvalidItem)

	_, err = s.AddItem(context.Background(), "u1", Item{ProductID: "A", Price: d("1")}, -2)
	require.ErrorIs(t, err, ErrInvalidItem)
}

type failingRepo struct {
	*MemoryRepository
	loadErr error
	saveErr error
}

func (f *failingRepo) Load(ctx context.Context, userID string) (*Cart, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryRepository.Load(ctx, userID)
}

func (f *failingRepo) Save(ctx context.Context, c *Cart) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryRepository.Save(ctx, c)
}

func TestStore_RepositoryErrors(t *testing.T) {
	ctx := context.Background()

	s := NewStore(&failingRepo{MemoryRepository: NewMemoryRepository(), loadErr: errors.New("redis down")})
	_, err := s.Get(ctx, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load cart")

	s = NewStore(&failingRepo{MemoryRepository: NewMemoryRepository(), saveErr: errors.New("redis down")})
	_, err = s.AddItem(ctx, "u1", Item{ProductID: "A", Price: d("1")}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save cart")
}
