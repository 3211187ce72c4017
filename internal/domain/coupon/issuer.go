package coupon

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

const (
	giftCodePrefix  = "GIFT"
	giftCodeLength  = 6
	giftCodeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// GiftDiscountPercentage is the fixed discount on loyalty coupons.
	GiftDiscountPercentage = 10
	// GiftValidity is how long a loyalty coupon stays redeemable.
	GiftValidity = 30 * 24 * time.Hour
)

// Issuer creates loyalty coupons for qualifying purchases.
type Issuer interface {
	IssueGift(ctx context.Context, userID string) (*Coupon, error)
}

// RepoIssuer implements Issuer against a Repository. Codes come from a
// non-cryptographic source: they gate a 10% discount, not account access,
// and are not meant to be unpredictable against a motivated attacker.
type RepoIssuer struct {
	repo Repository
	now  func() time.Time
	rnd  func(n int) int
}

// NewRepoIssuer creates a RepoIssuer backed by the given Repository.
func NewRepoIssuer(repo Repository) *RepoIssuer {
	return &RepoIssuer{repo: repo, now: time.Now, rnd: rand.IntN}
}

// IssueGift creates and persists a fresh gift coupon for the user.
func (i *RepoIssuer) IssueGift(ctx context.Context, userID string) (*Coupon, error) {
	c := &Coupon{
		Code:               i.generateCode(),
		DiscountPercentage: GiftDiscountPercentage,
		ExpiresAt:          i.now().Add(GiftValidity),
		UserID:             userID,
		Active:             true,
	}
	if err := i.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create gift coupon")
	}
	return c, nil
}

func (i *RepoIssuer) generateCode() string {
	var b strings.Builder
	b.Grow(len(giftCodePrefix) + giftCodeLength)
	b.WriteString(giftCodePrefix)
	for range giftCodeLength {
		b.WriteByte(giftCodeCharset[i.rnd(len(giftCodeCharset))])
	}
	return b.String()
}
