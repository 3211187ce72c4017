// Package payment implements the checkout gateway against the Stripe API.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/karibushop/storefront/internal/domain/checkout"
)

// StripeGateway is a pass-through to Stripe hosted checkout. Provider errors
// propagate unchanged and there is no retry policy.
type StripeGateway struct {
	api      *client.API
	currency string
}

var _ checkout.Gateway = (*StripeGateway)(nil)

// NewStripeGateway creates a gateway using the given secret key. Amounts are
// denominated in the given ISO currency code (lowercase, e.g. "kes").
func NewStripeGateway(secretKey, currency string) *StripeGateway {
	return &StripeGateway{
		api:      client.New(secretKey, nil),
		currency: currency,
	}
}

// CreateSession creates a hosted checkout session in payment mode.
func (g *StripeGateway) CreateSession(ctx context.Context, p checkout.CreateSessionParams) (*checkout.Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, len(p.LineItems))
	for i, item := range p.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}
		lineItems[i] = &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		}
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
	}
	params.Context = ctx
	if p.DiscountID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(p.DiscountID)},
		}
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "stripe: create checkout session")
	}
	return mapSession(sess), nil
}

// RetrieveSession fetches the current state of a checkout session.
func (g *StripeGateway) RetrieveSession(ctx context.Context, id string) (*checkout.Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, errors.Wrap(err, "stripe: retrieve checkout session")
	}
	return mapSession(sess), nil
}

// CreatePercentageDiscount creates a single-use percentage coupon object.
func (g *StripeGateway) CreatePercentageDiscount(ctx context.Context, percentage int) (string, error) {
	params := &stripe.CouponParams{
		PercentOff: stripe.Float64(float64(percentage)),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx

	c, err := g.api.Coupons.New(params)
	if err != nil {
		return "", errors.Wrap(err, "stripe: create coupon")
	}
	return c.ID, nil
}

func mapSession(s *stripe.CheckoutSession) *checkout.Session {
	return &checkout.Session{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
}
