package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/karibushop/storefront/internal/domain/cart"
	"github.com/karibushop/storefront/internal/domain/user"
)

type cartItemJSON struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

func toCartItemsJSON(items []user.CartItem) []cartItemJSON {
	out := make([]cartItemJSON, len(items))
	for i, it := range items {
		out[i] = cartItemJSON{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

type cartLineJSON struct {
	productJSON
	Quantity int `json:"quantity"`
}

// GetCart returns the user's cart lines with catalog data attached.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	lines, err := h.carts.List(r.Context(), u)
	if err != nil {
		respondServerError(w, r, err)
		return
	}

	out := make([]cartLineJSON, len(lines))
	for i, line := range lines {
		out[i] = cartLineJSON{productJSON: toProductJSON(line.Product), Quantity: line.Quantity}
	}
	respondJSON(w, http.StatusOK, out)
}

// AddToCart puts one unit of a product in the cart.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var req struct {
		ProductID string `json:"productId"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ProductID == "" {
		respondMessage(w, http.StatusBadRequest, "Product id is required")
		return
	}

	items, err := h.carts.Add(r.Context(), u, req.ProductID)
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCartItemsJSON(items))
}

// RemoveFromCart deletes one product from the cart, or clears it when no
// product id is supplied.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var req struct {
		ProductID string `json:"productId"`
	}
	// An empty body means "clear the cart".
	_ = decodeJSON(r, &req)

	items, err := h.carts.Remove(r.Context(), u, req.ProductID)
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cartItems": toCartItemsJSON(items)})
}

// UpdateCartQuantity sets the quantity of a cart line; zero removes it.
func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())
	productID := chi.URLParam(r, "id")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Quantity < 0 {
		respondMessage(w, http.StatusBadRequest, "Invalid quantity")
		return
	}

	items, err := h.carts.SetQuantity(r.Context(), u, productID, req.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			respondMessage(w, http.StatusNotFound, "Product not found in cart")
			return
		}
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cartItems": toCartItemsJSON(items)})
}
