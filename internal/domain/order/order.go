package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no order matches the lookup.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateSession is returned by Create when an order for the same
	// provider session already exists.
	ErrDuplicateSession = errors.New("order already exists for session")
)

// Order represents a completed purchase. It is created exactly once, at
// payment confirmation, and never mutated afterwards. TotalAmount is the
// provider-settled total in major currency units; the order does not
// re-derive discounts.
type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	TotalAmount     decimal.Decimal
	StripeSessionID string
	CreatedAt       time.Time
}

// LineItem is one purchased product at the unit price in effect at
// session-creation time.
type LineItem struct {
	ProductID string          `json:"product_id" bson:"product"`
	Quantity  int             `json:"quantity" bson:"quantity"`
	Price     decimal.Decimal `json:"price" bson:"price"`
}

// DailySales is one day's order count and revenue.
type DailySales struct {
	Date    string
	Sales   int64
	Revenue decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// FindBySessionID returns the order created for a provider session,
	// or ErrNotFound. Confirmation uses it as an idempotency lookup.
	FindBySessionID(ctx context.Context, sessionID string) (*Order, error)
	// CountAndRevenue aggregates the total order count and summed revenue.
	CountAndRevenue(ctx context.Context) (count int64, revenue decimal.Decimal, err error)
	// SalesByDay aggregates order count and revenue per calendar day within
	// [start, end]. Days without orders are absent from the result.
	SalesByDay(ctx context.Context, start, end time.Time) ([]DailySales, error)
}
