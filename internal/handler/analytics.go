package handler

import (
	"net/http"
	"time"
)

// AnalyticsSummary returns storefront-wide totals.
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.Summary(r.Context())
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users":        summary.Users,
		"products":     summary.Products,
		"totalSales":   summary.TotalSales,
		"totalRevenue": summary.TotalRevenue.InexactFloat64(),
	})
}

// DailySales returns one point per day in the requested window, defaulting
// to the last 7 days.
func (h *Handler) DailySales(w http.ResponseWriter, r *http.Request) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -7)

	if v := r.URL.Query().Get("startDate"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid startDate")
			return
		}
		start = parsed
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "Invalid endDate")
			return
		}
		end = parsed
	}

	points, err := h.stats.DailySales(r.Context(), start, end)
	if err != nil {
		respondServerError(w, r, err)
		return
	}

	out := make([]map[string]any, len(points))
	for i, p := range points {
		out[i] = map[string]any{
			"date":    p.Date,
			"sales":   p.Sales,
			"revenue": p.Revenue.InexactFloat64(),
		}
	}
	respondJSON(w, http.StatusOK, out)
}
