package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	coupon      *Coupon
	findErr     error
	deactivated [][2]string
	created     []*Coupon
}

func (m *mockRepo) FindActive(context.Context, string, string) (*Coupon, error) {
	return m.coupon, m.findErr
}

func (m *mockRepo) FindActiveForUser(context.Context, string) (*Coupon, error) {
	return m.coupon, m.findErr
}

func (m *mockRepo) Deactivate(_ context.Context, code, userID string) error {
	m.deactivated = append(m.deactivated, [2]string{code, userID})
	return nil
}

func (m *mockRepo) Create(_ context.Context, c *Coupon) error {
	m.created = append(m.created, c)
	return nil
}

func fixedTime() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func TestValidate_Usable(t *testing.T) {
	repo := &mockRepo{coupon: &Coupon{
		Code:               "SAVE20",
		DiscountPercentage: 20,
		ExpiresAt:          fixedTime().Add(24 * time.Hour),
		UserID:             "user-1",
		Active:             true,
	}}
	v := &RepoValidator{repo: repo, now: fixedTime}

	c, err := v.Validate(context.Background(), "SAVE20", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", c.Code)
	assert.Equal(t, 20, c.DiscountPercentage)
	assert.Empty(t, repo.deactivated)
}

func TestValidate_NotFound(t *testing.T) {
	v := &RepoValidator{repo: &mockRepo{findErr: ErrNotFound}, now: fixedTime}

	_, err := v.Validate(context.Background(), "NOPE", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidate_ExpiredIsDeactivated(t *testing.T) {
	repo := &mockRepo{coupon: &Coupon{
		Code:      "OLD10",
		ExpiresAt: fixedTime().Add(-time.Hour),
		UserID:    "user-1",
		Active:    true,
	}}
	v := &RepoValidator{repo: repo, now: fixedTime}

	_, err := v.Validate(context.Background(), "OLD10", "user-1")
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, [][2]string{{"OLD10", "user-1"}}, repo.deactivated)
}

func TestIssueGift_Persists(t *testing.T) {
	repo := &mockRepo{}
	iss := &RepoIssuer{repo: repo, now: fixedTime, rnd: func(int) int { return 0 }}

	c, err := iss.IssueGift(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "GIFT000000", c.Code)
	assert.Equal(t, GiftDiscountPercentage, c.DiscountPercentage)
	assert.Equal(t, fixedTime().Add(GiftValidity), c.ExpiresAt)
	assert.Equal(t, "user-1", c.UserID)
	assert.True(t, c.Active)
	require.Len(t, repo.created, 1)
	assert.Equal(t, c, repo.created[0])
}

func TestGenerateCode_UsesCharset(t *testing.T) {
	n := 0
	iss := &RepoIssuer{rnd: func(max int) int {
		n++
		return n % max
	}}

	code := iss.generateCode()
	assert.Len(t, code, len(giftCodePrefix)+giftCodeLength)
	assert.Equal(t, "GIFT", code[:4])
	for _, r := range code[4:] {
		assert.Contains(t, giftCodeCharset, string(r))
	}
}
