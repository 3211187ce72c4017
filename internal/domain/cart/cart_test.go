package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karibushop/storefront/internal/domain/product"
	"github.com/karibushop/storefront/internal/domain/user"
)

type mockUsers struct {
	user.Repository
	savedCarts map[string][]user.CartItem
}

func (m *mockUsers) UpdateCart(_ context.Context, userID string, items []user.CartItem) error {
	if m.savedCarts == nil {
		m.savedCarts = make(map[string][]user.CartItem)
	}
	m.savedCarts[userID] = items
	return nil
}

type mockProducts struct {
	product.Repository
	products []product.Product
}

func (m *mockProducts) GetByIDs(context.Context, []string) ([]product.Product, error) {
	return m.products, nil
}

func testUser(items ...user.CartItem) *user.User {
	return &user.User{ID: "user-1", CartItems: items}
}

func TestList_JoinsCatalog(t *testing.T) {
	products := &mockProducts{products: []product.Product{
		{ID: "p1", Name: "Mug", Price: decimal.RequireFromString("10.00")},
	}}
	svc := NewService(&mockUsers{}, products)

	// p2 was deleted from the catalog and is skipped.
	u := testUser(
		user.CartItem{ProductID: "p1", Quantity: 2},
		user.CartItem{ProductID: "p2", Quantity: 1},
	)
	lines, err := svc.List(context.Background(), u)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, "Mug", lines[0].Product.Name)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestList_EmptyCart(t *testing.T) {
	svc := NewService(&mockUsers{}, &mockProducts{})

	lines, err := svc.List(context.Background(), testUser())
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAdd_NewItem(t *testing.T) {
	users := &mockUsers{}
	svc := NewService(users, &mockProducts{})

	items, err := svc.Add(context.Background(), testUser(), "p1")
	require.NoError(t, err)

	assert.Equal(t, []user.CartItem{{ProductID: "p1", Quantity: 1}}, items)
	assert.Equal(t, items, users.savedCarts["user-1"])
}

func TestAdd_IncrementsExisting(t *testing.T) {
	svc := NewService(&mockUsers{}, &mockProducts{})
	u := testUser(user.CartItem{ProductID: "p1", Quantity: 2})

	items, err := svc.Add(context.Background(), u, "p1")
	require.NoError(t, err)

	assert.Equal(t, []user.CartItem{{ProductID: "p1", Quantity: 3}}, items)
}

func TestRemove_SingleProduct(t *testing.T) {
	svc := NewService(&mockUsers{}, &mockProducts{})
	u := testUser(
		user.CartItem{ProductID: "p1", Quantity: 2},
		user.CartItem{ProductID: "p2", Quantity: 1},
	)

	items, err := svc.Remove(context.Background(), u, "p1")
	require.NoError(t, err)

	assert.Equal(t, []user.CartItem{{ProductID: "p2", Quantity: 1}}, items)
}

func TestRemove_EmptyIDClearsCart(t *testing.T) {
	users := &mockUsers{}
	svc := NewService(users, &mockProducts{})
	u := testUser(
		user.CartItem{ProductID: "p1", Quantity: 2},
		user.CartItem{ProductID: "p2", Quantity: 1},
	)

	items, err := svc.Remove(context.Background(), u, "")
	require.NoError(t, err)

	assert.Empty(t, items)
	assert.Empty(t, users.savedCarts["user-1"])
}

func TestSetQuantity(t *testing.T) {
	svc := NewService(&mockUsers{}, &mockProducts{})

	t.Run("updates quantity", func(t *testing.T) {
		u := testUser(user.CartItem{ProductID: "p1", Quantity: 1})
		items, err := svc.SetQuantity(context.Background(), u, "p1", 5)
		require.NoError(t, err)
		assert.Equal(t, []user.CartItem{{ProductID: "p1", Quantity: 5}}, items)
	})

	t.Run("zero removes the line", func(t *testing.T) {
		u := testUser(user.CartItem{ProductID: "p1", Quantity: 1})
		items, err := svc.SetQuantity(context.Background(), u, "p1", 0)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("absent product", func(t *testing.T) {
		u := testUser(user.CartItem{ProductID: "p1", Quantity: 1})
		_, err := svc.SetQuantity(context.Background(), u, "p9", 2)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}
