package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karibushop/storefront/internal/domain/checkout"
)

// CreateCheckoutSession turns the submitted cart into a hosted payment
// session and returns its id plus the post-discount total.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var req struct {
		Products []struct {
			ID       string  `json:"_id"`
			Name     string  `json:"name"`
			Image    string  `json:"image"`
			Price    float64 `json:"price"`
			Quantity int     `json:"quantity"`
		} `json:"products"`
		CouponCode string `json:"couponCode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid products data")
		return
	}

	lines := make([]checkout.CartLine, len(req.Products))
	for i, p := range req.Products {
		lines[i] = checkout.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     decimal.NewFromFloat(p.Price),
			Quantity:  p.Quantity,
		}
	}

	result, err := h.checkouts.CreateSession(r.Context(), u.ID, lines, req.CouponCode)
	if err != nil {
		var invalidItem *checkout.InvalidLineItemError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart), errors.As(err, &invalidItem):
			respondMessage(w, http.StatusBadRequest, "Invalid products data")
		default:
			respondServerError(w, r, err)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":          result.SessionID,
		"totalAmount": result.TotalAmount.InexactFloat64(),
	})
}

// CheckoutSuccess verifies a client-reported payment with the provider and
// materializes the order. A session the provider has not settled yields an
// explicit 402 rather than an empty response.
func (h *Handler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeJSON(r, &req); err != nil || req.SessionID == "" {
		respondMessage(w, http.StatusBadRequest, "Session id is required")
		return
	}

	result, err := h.checkouts.Confirm(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, checkout.ErrPaymentIncomplete) {
			respondMessage(w, http.StatusPaymentRequired, "Payment not completed")
			return
		}
		respondServerError(w, r, err)
		return
	}

	message := "Payment successful, Order created, coupon deactivated if used"
	if result.AlreadyProcessed {
		message = "Order already processed for this session"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"orderId": result.OrderID,
	})
}
