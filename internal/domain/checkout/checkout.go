package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for checkout validation and confirmation.
var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPaymentIncomplete is returned when confirmation is requested for a
	// session the provider has not reported as paid.
	ErrPaymentIncomplete = errors.New("payment not completed")
)

// InvalidLineItemError indicates a malformed cart line.
type InvalidLineItemError struct {
	ProductID string
	Reason    string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item %s: %s", e.ProductID, e.Reason)
}

// CartLine is one client-submitted cart entry at the display price the user
// saw. Prices are major currency units.
type CartLine struct {
	ProductID string
	Name      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
}

// Metadata keys attached to provider sessions. The metadata blob is the only
// state carried between session creation and confirmation; the orchestrator
// is otherwise stateless between the two calls.
const (
	MetaUserID     = "userId"
	MetaCouponCode = "couponCode"
	MetaProducts   = "products"
)

// SnapshotItem is one entry of the serialized cart snapshot stored in
// session metadata and read back unchanged at confirmation.
type SnapshotItem struct {
	ID       string          `json:"id"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// SessionLineItem is a cart line re-expressed as provider-native price data.
type SessionLineItem struct {
	Name       string
	Image      string
	UnitAmount int64 // minor currency units
	Quantity   int64
}

// CreateSessionParams carries everything the provider needs to host one
// payment attempt.
type CreateSessionParams struct {
	LineItems  []SessionLineItem
	DiscountID string // provider discount object id, empty when no coupon applied
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID            string
	PaymentStatus string // "paid" once the provider settles payment
	AmountTotal   int64  // settled total in minor currency units
	Metadata      map[string]string
}

// PaymentStatusPaid is the provider status for a settled session.
const PaymentStatusPaid = "paid"

// Gateway wraps the hosted payment provider. Errors propagate unchanged;
// there is no retry policy.
type Gateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
	// CreatePercentageDiscount creates a single-use provider-side percentage
	// discount object and returns its id.
	CreatePercentageDiscount(ctx context.Context, percentage int) (string, error)
}
