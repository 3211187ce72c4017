package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/karibushop/storefront/internal/domain/coupon"
)

// GetCoupon returns the user's current active coupon, or null when none.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	c, err := h.ledger.FindActiveForUser(r.Context(), u.ID)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			respondJSON(w, http.StatusOK, nil)
			return
		}
		respondServerError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"code":               c.Code,
		"discountPercentage": c.DiscountPercentage,
		"expirationDate":     c.ExpiresAt,
	})
}

// ValidateCoupon checks that a coupon code is usable by the caller.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		respondMessage(w, http.StatusBadRequest, "Coupon code is required")
		return
	}

	c, err := h.coupons.Validate(r.Context(), req.Code, u.ID)
	if err != nil {
		switch {
		case errors.Is(err, coupon.ErrNotFound):
			respondMessage(w, http.StatusNotFound, "Coupon not found")
		case errors.Is(err, coupon.ErrExpired):
			respondMessage(w, http.StatusNotFound, "Coupon expired")
		default:
			respondServerError(w, r, err)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":            "Coupon is valid",
		"code":               c.Code,
		"discountPercentage": c.DiscountPercentage,
	})
}
