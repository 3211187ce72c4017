// Package handler exposes the storefront REST API.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/karibushop/storefront/internal/auth"
	"github.com/karibushop/storefront/internal/domain/analytics"
	"github.com/karibushop/storefront/internal/domain/cart"
	"github.com/karibushop/storefront/internal/domain/checkout"
	"github.com/karibushop/storefront/internal/domain/coupon"
	"github.com/karibushop/storefront/internal/domain/product"
	"github.com/karibushop/storefront/internal/domain/user"
)

// Handler carries the domain services behind the HTTP surface.
type Handler struct {
	users     user.Repository
	tokens    *auth.Tokens
	products  *product.Service
	carts     *cart.Service
	coupons   coupon.Validator
	ledger    coupon.Repository
	checkouts *checkout.Service
	stats     *analytics.Service

	secureCookies bool
}

// Config holds non-dependency handler settings.
type Config struct {
	// SecureCookies marks session cookies Secure; disabled for local
	// development over plain HTTP.
	SecureCookies bool
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	users user.Repository,
	tokens *auth.Tokens,
	products *product.Service,
	carts *cart.Service,
	coupons coupon.Validator,
	ledger coupon.Repository,
	checkouts *checkout.Service,
	stats *analytics.Service,
) *Handler {
	return &Handler{
		users:         users,
		tokens:        tokens,
		products:      products,
		carts:         carts,
		coupons:       coupons,
		ledger:        ledger,
		checkouts:     checkouts,
		stats:         stats,
		secureCookies: cfg.SecureCookies,
	}
}

// Routes mounts the API route tree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/refresh-token", h.RefreshToken)
		r.With(h.RequireAuth).Get("/profile", h.Profile)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/featured", h.FeaturedProducts)
		r.Get("/category/{category}", h.ProductsByCategory)
		r.Get("/recommendations", h.RecommendedProducts)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth, h.RequireAdmin)
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Patch("/{id}", h.ToggleFeaturedProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/", h.GetCart)
		r.Post("/", h.AddToCart)
		r.Delete("/", h.RemoveFromCart)
		r.Put("/{id}", h.UpdateCartQuantity)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/", h.GetCoupon)
		r.Post("/validate", h.ValidateCoupon)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Post("/create-checkout-session", h.CreateCheckoutSession)
		r.Post("/checkout-success", h.CheckoutSuccess)
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Use(h.RequireAuth, h.RequireAdmin)
		r.Get("/", h.AnalyticsSummary)
		r.Get("/daily-sales", h.DailySales)
	})

	return r
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondMessage writes the {"message": ...} body used across the API.
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondServerError logs the failure and replies with a generic body; the
// detail stays server-side.
func respondServerError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondMessage(w, http.StatusInternalServerError, "Server error")
}

// decodeJSON parses the request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// productJSON is the wire shape for catalog items.
type productJSON struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category,omitempty"`
	IsFeatured  bool      `json:"isFeatured"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProductJSON(p product.Product) productJSON {
	return productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Image:       p.Image,
		Category:    p.Category,
		IsFeatured:  p.IsFeatured,
		CreatedAt:   p.CreatedAt,
	}
}

func toProductListJSON(products []product.Product) []productJSON {
	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = toProductJSON(p)
	}
	return out
}
