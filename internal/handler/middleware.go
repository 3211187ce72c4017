package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/karibushop/storefront/internal/auth"
	"github.com/karibushop/storefront/internal/domain/user"
)

type userContextKey struct{}

// userFromContext returns the authenticated user attached by RequireAuth.
func userFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*user.User)
	return u, ok
}

// RequireAuth authenticates the request from the accessToken cookie, loads
// the user, and attaches it to the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessTokenCookie)
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "Unauthorized - No access token")
			return
		}

		userID, err := h.tokens.VerifyAccess(cookie.Value)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				respondMessage(w, http.StatusUnauthorized, "Unauthorized - Access token expired")
				return
			}
			respondMessage(w, http.StatusUnauthorized, "Unauthorized - Invalid access token")
			return
		}

		u, err := h.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				respondMessage(w, http.StatusUnauthorized, "Unauthorized - User not found")
				return
			}
			respondServerError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin users. Must run after RequireAuth.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := userFromContext(r.Context())
		if !ok || u.Role != user.RoleAdmin {
			respondMessage(w, http.StatusForbidden, "Forbidden - Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
