package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator resolves a coupon code to a usable coupon for a given user.
type Validator interface {
	Validate(ctx context.Context, code, userID string) (*Coupon, error)
}

// RepoValidator implements Validator against a Repository. A coupon is usable
// when it matches code and user, is active, and has not expired. An expired
// coupon found during validation is deactivated in place.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the active coupon for (code, user) and checks expiration.
func (v *RepoValidator) Validate(ctx context.Context, code, userID string) (*Coupon, error) {
	c, err := v.repo.FindActive(ctx, code, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if v.now().After(c.ExpiresAt) {
		if err := v.repo.Deactivate(ctx, c.Code, c.UserID); err != nil {
			return nil, errors.Wrap(err, "deactivate expired coupon")
		}
		return nil, ErrExpired
	}

	return c, nil
}
