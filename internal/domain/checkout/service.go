package checkout

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/karibushop/storefront/internal/domain/coupon"
	"github.com/karibushop/storefront/internal/domain/order"
)

var hundred = decimal.NewFromInt(100)

// Config holds the orchestrator's fixed parameters.
type Config struct {
	// SuccessURL and CancelURL are the redirect targets handed to the
	// provider at session creation.
	SuccessURL string
	CancelURL  string
	// GiftThresholdMinor is the post-discount total, in minor currency
	// units, at or above which a loyalty coupon is issued.
	GiftThresholdMinor int64
}

// Service is the checkout orchestrator: it turns a cart plus an optional
// coupon into a provider session, and later turns a provider-confirmed
// session into an order plus coupon-ledger updates.
type Service struct {
	cfg     Config
	gateway Gateway
	coupons coupon.Validator
	issuer  coupon.Issuer
	ledger  coupon.Repository
	orders  order.Repository
}

// NewService creates the checkout orchestrator.
func NewService(
	cfg Config,
	gateway Gateway,
	coupons coupon.Validator,
	issuer coupon.Issuer,
	ledger coupon.Repository,
	orders order.Repository,
) *Service {
	return &Service{
		cfg:     cfg,
		gateway: gateway,
		coupons: coupons,
		issuer:  issuer,
		ledger:  ledger,
		orders:  orders,
	}
}

// CreateSessionResult is returned to the client after session creation.
type CreateSessionResult struct {
	SessionID string
	// TotalAmount is the post-discount total in major currency units.
	TotalAmount decimal.Decimal
}

// CreateSession computes the cart total, applies a matching active coupon,
// creates the provider session carrying the cart snapshot in metadata, and
// issues a loyalty coupon for qualifying totals. No order is created here.
func (s *Service) CreateSession(ctx context.Context, userID string, lines []CartLine, couponCode string) (*CreateSessionResult, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Convert each unit price to integer minor units, rounding to nearest.
	totalMinor := int64(0)
	items := make([]SessionLineItem, len(lines))
	snapshot := make([]SnapshotItem, len(lines))
	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, &InvalidLineItemError{ProductID: line.ProductID, Reason: "quantity must be at least 1"}
		}
		if line.Price.IsNegative() {
			return nil, &InvalidLineItemError{ProductID: line.ProductID, Reason: "negative price"}
		}

		unitMinor := line.Price.Mul(hundred).Round(0).IntPart()
		totalMinor += unitMinor * int64(line.Quantity)

		items[i] = SessionLineItem{
			Name:       line.Name,
			Image:      line.Image,
			UnitAmount: unitMinor,
			Quantity:   int64(line.Quantity),
		}
		snapshot[i] = SnapshotItem{
			ID:       line.ProductID,
			Price:    line.Price,
			Quantity: line.Quantity,
		}
	}

	// A coupon that does not resolve to a usable one is simply not applied;
	// only infrastructure failures abort session creation.
	discountID := ""
	appliedCode := ""
	if couponCode != "" {
		c, err := s.coupons.Validate(ctx, couponCode, userID)
		switch {
		case err == nil:
			totalMinor -= totalMinor * int64(c.DiscountPercentage) / 100
			discountID, err = s.gateway.CreatePercentageDiscount(ctx, c.DiscountPercentage)
			if err != nil {
				return nil, errors.Wrap(err, "create provider discount")
			}
			appliedCode = c.Code
		case errors.Is(err, coupon.ErrNotFound), errors.Is(err, coupon.ErrExpired):
			zctx.From(ctx).Info("Coupon not applied",
				zap.String("code", couponCode), zap.Error(err))
		default:
			return nil, errors.Wrap(err, "validate coupon")
		}
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "marshal cart snapshot")
	}

	sess, err := s.gateway.CreateSession(ctx, CreateSessionParams{
		LineItems:  items,
		DiscountID: discountID,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata: map[string]string{
			MetaUserID:     userID,
			MetaCouponCode: appliedCode,
			MetaProducts:   string(snapshotJSON),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create checkout session")
	}

	// Large purchases earn a fresh loyalty coupon. This write and the session
	// creation above are independent side effects with no compensation
	// between them.
	if totalMinor >= s.cfg.GiftThresholdMinor {
		if _, err := s.issuer.IssueGift(ctx, userID); err != nil {
			return nil, errors.Wrap(err, "issue gift coupon")
		}
	}

	return &CreateSessionResult{
		SessionID:   sess.ID,
		TotalAmount: decimal.NewFromInt(totalMinor).Div(hundred),
	}, nil
}

// ConfirmResult is returned after a successful confirmation.
type ConfirmResult struct {
	OrderID string
	// AlreadyProcessed reports that an earlier confirmation for the same
	// session had already materialized the order.
	AlreadyProcessed bool
}

// Confirm verifies payment status with the provider and, on a paid session,
// materializes the order from the metadata snapshot and deactivates the
// redeemed coupon.
//
// Confirmation is idempotent on the provider session id: the order is looked
// up first and created before the coupon write, so a retry after a crash
// between the two writes completes the deactivation instead of duplicating
// the order.
func (s *Service) Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "retrieve checkout session")
	}

	if sess.PaymentStatus != PaymentStatusPaid {
		return nil, ErrPaymentIncomplete
	}

	if existing, err := s.orders.FindBySessionID(ctx, sessionID); err == nil {
		return &ConfirmResult{OrderID: existing.ID, AlreadyProcessed: true}, nil
	} else if !errors.Is(err, order.ErrNotFound) {
		return nil, errors.Wrap(err, "lookup order by session")
	}

	var snapshot []SnapshotItem
	if err := json.Unmarshal([]byte(sess.Metadata[MetaProducts]), &snapshot); err != nil {
		return nil, errors.Wrap(err, "unmarshal cart snapshot")
	}

	items := make([]order.LineItem, len(snapshot))
	for i, it := range snapshot {
		items[i] = order.LineItem{
			ProductID: it.ID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}

	o := &order.Order{
		UserID: sess.Metadata[MetaUserID],
		Items:  items,
		// The provider-settled total is authoritative over anything computed
		// server-side.
		TotalAmount:     decimal.NewFromInt(sess.AmountTotal).Div(hundred),
		StripeSessionID: sessionID,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicateSession) {
			if existing, lookupErr := s.orders.FindBySessionID(ctx, sessionID); lookupErr == nil {
				return &ConfirmResult{OrderID: existing.ID, AlreadyProcessed: true}, nil
			}
		}
		return nil, errors.Wrap(err, "create order")
	}

	if code := sess.Metadata[MetaCouponCode]; code != "" {
		if err := s.ledger.Deactivate(ctx, code, sess.Metadata[MetaUserID]); err != nil {
			return nil, errors.Wrap(err, "deactivate coupon")
		}
	}

	return &ConfirmResult{OrderID: o.ID}, nil
}
