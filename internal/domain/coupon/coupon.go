package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no active coupon matches the code and user.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a matching coupon is past its expiration.
	ErrExpired = errors.New("coupon expired")
)

// Coupon is a discount code bound to a single user. Redeemed coupons are
// deactivated, never deleted.
type Coupon struct {
	ID                 string
	Code               string
	DiscountPercentage int
	ExpiresAt          time.Time
	UserID             string
	Active             bool
}

// Repository provides lookup and mutation of the coupon ledger.
type Repository interface {
	// FindActive returns the active coupon matching code and user, or ErrNotFound.
	FindActive(ctx context.Context, code, userID string) (*Coupon, error)
	// FindActiveForUser returns the user's active coupon, or ErrNotFound.
	FindActiveForUser(ctx context.Context, userID string) (*Coupon, error)
	// Deactivate clears the active flag on the coupon matching code and user.
	Deactivate(ctx context.Context, code, userID string) error
	Create(ctx context.Context, c *Coupon) error
}
