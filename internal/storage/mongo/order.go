package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/karibushop/storefront/internal/domain/order"
)

const ordersCollection = "orders"

// OrderRepository implements order.Repository backed by MongoDB.
type OrderRepository struct {
	coll *mongo.Collection
}

var _ order.Repository = (*OrderRepository)(nil)

// NewOrderRepository returns an OrderRepository using the given database.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(ordersCollection)}
}

type orderDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	UserID          string               `bson:"user"`
	Items           []orderItemDoc       `bson:"products"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	StripeSessionID string               `bson:"stripeSessionId"`
	CreatedAt       time.Time            `bson:"createdAt"`
}

type orderItemDoc struct {
	ProductID string               `bson:"product"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

func (d orderDoc) toDomain() (*order.Order, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return nil, err
	}

	items := make([]order.LineItem, len(d.Items))
	for i, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		items[i] = order.LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     price,
		}
	}

	return &order.Order{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		Items:           items,
		TotalAmount:     total,
		StripeSessionID: d.StripeSessionID,
		CreatedAt:       d.CreatedAt,
	}, nil
}

// Create persists a new order and fills in its generated id. A write that
// collides on the provider session id returns order.ErrDuplicateSession,
// backed by the unique index from EnsureIndexes.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return err
	}

	items := make([]orderItemDoc, len(o.Items))
	for i, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return err
		}
		items[i] = orderItemDoc{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     price,
		}
	}

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	res, err := r.coll.InsertOne(ctx, orderDoc{
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     total,
		StripeSessionID: o.StripeSessionID,
		CreatedAt:       o.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrDuplicateSession
		}
		return errors.Wrap(err, "insert order")
	}
	o.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

// FindBySessionID returns the order created for a provider session.
func (r *OrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.M{"stripeSessionId": sessionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "find order by session")
	}
	return doc.toDomain()
}

// CountAndRevenue aggregates the order count and summed revenue across all
// orders.
func (r *OrderRepository) CountAndRevenue(ctx context.Context) (int64, decimal.Decimal, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalSales":   bson.M{"$sum": 1},
			"totalRevenue": bson.M{"$sum": "$totalAmount"},
		}}},
	})
	if err != nil {
		return 0, decimal.Zero, errors.Wrap(err, "aggregate orders")
	}
	defer cursor.Close(ctx)

	var row struct {
		TotalSales   int64                `bson:"totalSales"`
		TotalRevenue primitive.Decimal128 `bson:"totalRevenue"`
	}
	if !cursor.Next(ctx) {
		return 0, decimal.Zero, cursor.Err()
	}
	if err := cursor.Decode(&row); err != nil {
		return 0, decimal.Zero, errors.Wrap(err, "decode order aggregate")
	}

	revenue, err := fromDecimal128(row.TotalRevenue)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return row.TotalSales, revenue, nil
}

// SalesByDay aggregates order count and revenue per calendar day within
// [start, end].
func (r *OrderRepository) SalesByDay(ctx context.Context, start, end time.Time) ([]order.DailySales, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"createdAt": bson.M{"$gte": start, "$lte": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"sales":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$totalAmount"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "aggregate daily sales")
	}
	defer cursor.Close(ctx)

	var out []order.DailySales
	for cursor.Next(ctx) {
		var row struct {
			Date    string               `bson:"_id"`
			Sales   int64                `bson:"sales"`
			Revenue primitive.Decimal128 `bson:"revenue"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, errors.Wrap(err, "decode daily sales")
		}
		revenue, err := fromDecimal128(row.Revenue)
		if err != nil {
			return nil, err
		}
		out = append(out, order.DailySales{Date: row.Date, Sales: row.Sales, Revenue: revenue})
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate daily sales")
	}
	return out, nil
}
