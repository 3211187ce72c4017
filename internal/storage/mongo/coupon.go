package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/karibushop/storefront/internal/domain/coupon"
)

const couponsCollection = "coupons"

// CouponRepository implements coupon.Repository backed by MongoDB.
type CouponRepository struct {
	coll *mongo.Collection
}

var _ coupon.Repository = (*CouponRepository)(nil)

// NewCouponRepository returns a CouponRepository using the given database.
func NewCouponRepository(db *mongo.Database) *CouponRepository {
	return &CouponRepository{coll: db.Collection(couponsCollection)}
}

type couponDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Code               string             `bson:"code"`
	DiscountPercentage int                `bson:"discountPercentage"`
	ExpiresAt          time.Time          `bson:"expirationDate"`
	UserID             string             `bson:"userId"`
	Active             bool               `bson:"isActive"`
}

func (d couponDoc) toDomain() *coupon.Coupon {
	return &coupon.Coupon{
		ID:                 d.ID.Hex(),
		Code:               d.Code,
		DiscountPercentage: d.DiscountPercentage,
		ExpiresAt:          d.ExpiresAt,
		UserID:             d.UserID,
		Active:             d.Active,
	}
}

// FindActive returns the active coupon matching code and user.
func (r *CouponRepository) FindActive(ctx context.Context, code, userID string) (*coupon.Coupon, error) {
	return r.findOne(ctx, bson.M{"code": code, "userId": userID, "isActive": true})
}

// FindActiveForUser returns the user's active coupon.
func (r *CouponRepository) FindActiveForUser(ctx context.Context, userID string) (*coupon.Coupon, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "isActive": true})
}

// Deactivate clears the active flag on the coupon matching code and user.
// Deactivating an absent coupon is not an error: confirmation retries hit
// this path after a prior partial completion.
func (r *CouponRepository) Deactivate(ctx context.Context, code, userID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"code": code, "userId": userID},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	if err != nil {
		return errors.Wrapf(err, "deactivate coupon %q", code)
	}
	return nil
}

// Create persists a new coupon and fills in its generated id.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	res, err := r.coll.InsertOne(ctx, couponDoc{
		Code:               c.Code,
		DiscountPercentage: c.DiscountPercentage,
		ExpiresAt:          c.ExpiresAt,
		UserID:             c.UserID,
		Active:             c.Active,
	})
	if err != nil {
		return errors.Wrap(err, "insert coupon")
	}
	c.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (r *CouponRepository) findOne(ctx context.Context, filter bson.M) (*coupon.Coupon, error) {
	var doc couponDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrap(err, "find coupon")
	}
	return doc.toDomain(), nil
}
