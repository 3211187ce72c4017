package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karibushop/storefront/internal/auth"
	"github.com/karibushop/storefront/internal/domain/user"
)

type memUsers struct {
	byID    map[string]*user.User
	byEmail map[string]*user.User
	nextID  int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*user.User), byEmail: make(map[string]*user.User)}
}

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	m.nextID++
	u.ID = "user-" + string(rune('0'+m.nextID))
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) Count(context.Context) (int64, error) {
	return int64(len(m.byID)), nil
}

func (m *memUsers) UpdateCart(_ context.Context, userID string, items []user.CartItem) error {
	m.byID[userID].CartItems = items
	return nil
}

type memTokenStore struct {
	tokens map[string]string
}

func (s *memTokenStore) SaveRefreshToken(_ context.Context, userID, token string, _ time.Duration) error {
	s.tokens[userID] = token
	return nil
}

func (s *memTokenStore) GetRefreshToken(_ context.Context, userID string) (string, error) {
	return s.tokens[userID], nil
}

func (s *memTokenStore) DeleteRefreshToken(_ context.Context, userID string) error {
	delete(s.tokens, userID)
	return nil
}

func authTestHandler() (*Handler, *memUsers) {
	users := newMemUsers()
	tokens := auth.NewTokens([]byte("access"), []byte("refresh"), &memTokenStore{tokens: make(map[string]string)})
	h := New(Config{}, users, tokens, nil, nil, noCoupons{}, stubLedger{}, nil, nil)
	return h, users
}

func cookieByName(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	h, users := authTestHandler()

	body := `{"name":"Asha","email":"asha@example.com","password":"hunter22"}`
	w := httptest.NewRecorder()
	h.Signup(w, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Asha", resp["name"])
	assert.Equal(t, "customer", resp["role"])
	assert.NotContains(t, resp, "password")

	// Session cookies are set and HttpOnly.
	access := cookieByName(t, w, accessTokenCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	require.NotNil(t, cookieByName(t, w, refreshTokenCookie))

	// The stored password is hashed, never the plaintext.
	stored := users.byEmail["asha@example.com"]
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
	assert.True(t, stored.CheckPassword("hunter22"))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	h, _ := authTestHandler()

	body := `{"name":"Asha","email":"asha@example.com","password":"hunter22"}`
	w := httptest.NewRecorder()
	h.Signup(w, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	w2 := httptest.NewRecorder()
	h.Signup(w2, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, w2.Code)
	assert.Contains(t, w2.Body.String(), "User already exists")
}

func TestSignup_MissingFields(t *testing.T) {
	h, _ := authTestHandler()

	w := httptest.NewRecorder()
	h.Signup(w, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"name":"Asha"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func signup(t *testing.T, h *Handler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"name":"Asha","email":"` + email + `","password":"` + password + `"}`
	w := httptest.NewRecorder()
	h.Signup(w, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)
	return w
}

func TestLogin(t *testing.T) {
	h, _ := authTestHandler()
	signup(t, h, "asha@example.com", "hunter22")

	body := `{"email":"asha@example.com","password":"hunter22"}`
	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, cookieByName(t, w, accessTokenCookie))
}

func TestLogin_WrongPassword(t *testing.T) {
	h, _ := authTestHandler()
	signup(t, h, "asha@example.com", "hunter22")

	for _, body := range []string{
		`{"email":"asha@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"hunter22"}`,
	} {
		w := httptest.NewRecorder()
		h.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid email or password")
	}
}

func TestRequireAuth(t *testing.T) {
	h, _ := authTestHandler()
	signed := signup(t, h, "asha@example.com", "hunter22")
	access := cookieByName(t, signed, accessTokenCookie)

	protected := h.RequireAuth(http.HandlerFunc(h.Profile))

	t.Run("no cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/profile", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "No access token")
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
		req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "garbage"})
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid access token")
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
		req.AddCookie(access)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "asha@example.com", resp["email"])
	})
}

func TestRequireAdmin(t *testing.T) {
	h, _ := authTestHandler()
	next := h.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("customer", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/analytics", nil), &user.User{Role: user.RoleCustomer})
		w := httptest.NewRecorder()
		next.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/analytics", nil), &user.User{Role: user.RoleAdmin})
		w := httptest.NewRecorder()
		next.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRefreshToken(t *testing.T) {
	h, _ := authTestHandler()
	signed := signup(t, h, "asha@example.com", "hunter22")
	refresh := cookieByName(t, signed, refreshTokenCookie)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
	req.AddCookie(refresh)
	w := httptest.NewRecorder()
	h.RefreshToken(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, cookieByName(t, w, accessTokenCookie))
}

func TestRefreshToken_Invalid(t *testing.T) {
	h, _ := authTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: "garbage"})
	w := httptest.NewRecorder()
	h.RefreshToken(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid refresh token")
}

func TestLogout(t *testing.T) {
	h, _ := authTestHandler()
	signed := signup(t, h, "asha@example.com", "hunter22")
	refresh := cookieByName(t, signed, refreshTokenCookie)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(refresh)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// Both cookies are cleared.
	access := cookieByName(t, w, accessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, -1, access.MaxAge)

	// The revoked refresh token no longer works.
	req2 := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
	req2.AddCookie(refresh)
	w2 := httptest.NewRecorder()
	h.RefreshToken(w2, req2)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
}
