package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/karibushop/storefront/internal/auth"
	"github.com/karibushop/storefront/internal/domain/user"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

type userJSON struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserJSON(u *user.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

// Signup registers a new customer account and starts a session.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	hash, err := user.HashPassword(req.Password)
	if err != nil {
		respondServerError(w, r, err)
		return
	}

	u := &user.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleCustomer,
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			respondMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		respondServerError(w, r, err)
		return
	}

	if err := h.startSession(w, r, u.ID); err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toUserJSON(u))
}

// Login authenticates an existing account and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		respondServerError(w, r, err)
		return
	}
	if !u.CheckPassword(req.Password) {
		respondMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := h.startSession(w, r, u.ID); err != nil {
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserJSON(u))
}

// Logout revokes the refresh token and clears session cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		if _, userID, err := h.tokens.Refresh(r.Context(), cookie.Value); err == nil {
			_ = h.tokens.Revoke(r.Context(), userID)
		}
	}

	h.clearCookie(w, accessTokenCookie)
	h.clearCookie(w, refreshTokenCookie)
	respondMessage(w, http.StatusOK, "Logged out successfully")
}

// RefreshToken exchanges a valid refresh token for a fresh access token.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, "No refresh token provided")
		return
	}

	access, _, err := h.tokens.Refresh(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired),
			errors.Is(err, auth.ErrInvalidToken),
			errors.Is(err, auth.ErrTokenRevoked):
			respondMessage(w, http.StatusUnauthorized, "Invalid refresh token")
		default:
			respondServerError(w, r, err)
		}
		return
	}

	h.setCookie(w, accessTokenCookie, access, auth.AccessTokenTTL)
	respondMessage(w, http.StatusOK, "Token refreshed successfully")
}

// Profile returns the authenticated user.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, toUserJSON(u))
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID string) error {
	access, refresh, err := h.tokens.IssuePair(r.Context(), userID)
	if err != nil {
		return err
	}
	h.setCookie(w, accessTokenCookie, access, auth.AccessTokenTTL)
	h.setCookie(w, refreshTokenCookie, refresh, auth.RefreshTokenTTL)
	return nil
}
