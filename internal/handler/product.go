package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karibushop/storefront/internal/domain/product"
)

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": toProductListJSON(products)})
}

// FeaturedProducts returns the featured list, served from cache when warm.
func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListFeatured(r.Context())
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "No featured products found")
			return
		}
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"featuredProducts": toProductListJSON(products)})
}

// ProductsByCategory returns products in the path category.
func (h *Handler) ProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	products, err := h.products.ListByCategory(r.Context(), category)
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": toProductListJSON(products)})
}

// RecommendedProducts returns a random catalog sample.
func (h *Handler) RecommendedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.Recommend(r.Context())
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": toProductListJSON(products)})
}

// CreateProduct adds a catalog item, uploading its image to the CDN.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Image       string  `json:"image"`
		Category    string  `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Price < 0 {
		respondMessage(w, http.StatusBadRequest, "Invalid product data")
		return
	}

	p := &product.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price),
		Category:    req.Category,
	}
	created, err := h.products.Create(r.Context(), p, req.Image)
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProductJSON(*created))
}

// DeleteProduct removes a catalog item and its CDN image.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Product not found")
			return
		}
		respondServerError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Product deleted successfully")
}

// ToggleFeaturedProduct flips a product's featured flag.
func (h *Handler) ToggleFeaturedProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	updated, err := h.products.ToggleFeatured(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Product not found")
			return
		}
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductJSON(*updated))
}
