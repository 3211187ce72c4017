package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/karibushop/storefront/internal/domain/user"
)

const usersCollection = "users"

// UserRepository implements user.Repository backed by MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository returns a UserRepository using the given database.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Role         string             `bson:"role"`
	CartItems    []cartItemDoc      `bson:"cartItems"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

type cartItemDoc struct {
	ProductID string `bson:"product"`
	Quantity  int    `bson:"quantity"`
}

func (d userDoc) toDomain() *user.User {
	items := make([]user.CartItem, len(d.CartItems))
	for i, it := range d.CartItems {
		items[i] = user.CartItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return &user.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         user.Role(d.Role),
		CartItems:    items,
		CreatedAt:    d.CreatedAt,
	}
}

// Create persists a new user, mapping a duplicate email to user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	items := make([]cartItemDoc, len(u.CartItems))
	for i, it := range u.CartItems {
		items[i] = cartItemDoc{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	res, err := r.coll.InsertOne(ctx, userDoc{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CartItems:    items,
		CreatedAt:    u.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailTaken
		}
		return errors.Wrap(err, "insert user")
	}
	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

// GetByID returns a user by id, or user.ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByEmail returns a user by email, or user.ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "count users")
	}
	return n, nil
}

// UpdateCart replaces the user's cart items.
func (r *UserRepository) UpdateCart(ctx context.Context, userID string, items []user.CartItem) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return user.ErrNotFound
	}

	docs := make([]cartItemDoc, len(items))
	for i, it := range items {
		docs[i] = cartItemDoc{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"cartItems": docs}})
	if err != nil {
		return errors.Wrap(err, "update cart")
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	return doc.toDomain(), nil
}
