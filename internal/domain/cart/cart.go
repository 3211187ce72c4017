// Package cart operates on the cart items stored on the user document,
// joining them against the product catalog when listing.
package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/karibushop/storefront/internal/domain/product"
	"github.com/karibushop/storefront/internal/domain/user"
)

// ErrItemNotFound is returned when updating a product absent from the cart.
var ErrItemNotFound = errors.New("product not found in cart")

// Line is a cart entry joined with its catalog product.
type Line struct {
	Product  product.Product
	Quantity int
}

// Service implements cart operations over the user and product repositories.
type Service struct {
	users    user.Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(users user.Repository, products product.Repository) *Service {
	return &Service{users: users, products: products}
}

// List returns the user's cart lines with current catalog data attached.
// Cart entries whose product no longer exists are skipped.
func (s *Service) List(ctx context.Context, u *user.User) ([]Line, error) {
	if len(u.CartItems) == 0 {
		return []Line{}, nil
	}

	ids := make([]string, len(u.CartItems))
	for i, item := range u.CartItems {
		ids[i] = item.ProductID
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get cart products")
	}

	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]Line, 0, len(u.CartItems))
	for _, item := range u.CartItems {
		p, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, Line{Product: p, Quantity: item.Quantity})
	}
	return lines, nil
}

// Add puts one unit of the product in the cart, incrementing the quantity
// when the product is already present.
func (s *Service) Add(ctx context.Context, u *user.User, productID string) ([]user.CartItem, error) {
	found := false
	for i, item := range u.CartItems {
		if item.ProductID == productID {
			u.CartItems[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		u.CartItems = append(u.CartItems, user.CartItem{ProductID: productID, Quantity: 1})
	}

	if err := s.users.UpdateCart(ctx, u.ID, u.CartItems); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return u.CartItems, nil
}

// Remove deletes the product from the cart; with an empty productID the
// whole cart is cleared.
func (s *Service) Remove(ctx context.Context, u *user.User, productID string) ([]user.CartItem, error) {
	if productID == "" {
		u.CartItems = []user.CartItem{}
	} else {
		kept := u.CartItems[:0]
		for _, item := range u.CartItems {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		u.CartItems = kept
	}

	if err := s.users.UpdateCart(ctx, u.ID, u.CartItems); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return u.CartItems, nil
}

// SetQuantity updates the quantity of a cart line; zero removes the line.
// Returns ErrItemNotFound when the product is not in the cart.
func (s *Service) SetQuantity(ctx context.Context, u *user.User, productID string, quantity int) ([]user.CartItem, error) {
	idx := -1
	for i, item := range u.CartItems {
		if item.ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrItemNotFound
	}

	if quantity == 0 {
		u.CartItems = append(u.CartItems[:idx], u.CartItems[idx+1:]...)
	} else {
		u.CartItems[idx].Quantity = quantity
	}

	if err := s.users.UpdateCart(ctx, u.ID, u.CartItems); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return u.CartItems, nil
}
