package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/karibushop/storefront/internal/domain/product"
)

const productsCollection = "products"

// ProductRepository implements product.Repository backed by MongoDB.
type ProductRepository struct {
	coll *mongo.Collection
}

var _ product.Repository = (*ProductRepository)(nil)

// NewProductRepository returns a ProductRepository using the given database.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(productsCollection)}
}

type productDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Image       string               `bson:"image"`
	Category    string               `bson:"category"`
	IsFeatured  bool                 `bson:"isFeatured"`
	CreatedAt   time.Time            `bson:"createdAt"`
}

func (d productDoc) toDomain() (product.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return product.Product{}, err
	}
	return product.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Image:       d.Image,
		Category:    d.Category,
		IsFeatured:  d.IsFeatured,
		CreatedAt:   d.CreatedAt,
	}, nil
}

// List returns the full catalog.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	return r.find(ctx, bson.M{})
}

// GetByID returns a single product, or product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, product.ErrNotFound
	}

	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}

	p, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given ids. Unparsable ids
// are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

// ListFeatured returns all featured products.
func (r *ProductRepository) ListFeatured(ctx context.Context) ([]product.Product, error) {
	return r.find(ctx, bson.M{"isFeatured": true})
}

// ListByCategory returns products in the given category.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	return r.find(ctx, bson.M{"category": category})
}

// Sample returns up to n random products.
func (r *ProductRepository) Sample(ctx context.Context, n int) ([]product.Product, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$sample", Value: bson.M{"size": n}}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "sample products")
	}
	return decodeProducts(ctx, cursor)
}

// Create persists a new product and fills in its generated id.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	res, err := r.coll.InsertOne(ctx, productDoc{
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Image:       p.Image,
		Category:    p.Category,
		IsFeatured:  p.IsFeatured,
		CreatedAt:   p.CreatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "insert product")
	}
	p.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

// Delete removes a product, or returns product.ErrNotFound.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return product.ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

// SetFeatured updates the featured flag and returns the updated product.
func (r *ProductRepository) SetFeatured(ctx context.Context, id string, featured bool) (*product.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, product.ErrNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"isFeatured": featured}})
	if err != nil {
		return nil, errors.Wrapf(err, "set featured on product %s", id)
	}
	if res.MatchedCount == 0 {
		return nil, product.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Count returns the catalog size.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return n, nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M) ([]product.Product, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	return decodeProducts(ctx, cursor)
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]product.Product, error) {
	defer cursor.Close(ctx)

	var products []product.Product
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode product")
		}
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}
	return products, nil
}
