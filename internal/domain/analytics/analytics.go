// Package analytics aggregates storefront sales figures for the admin
// dashboard.
package analytics

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karibushop/storefront/internal/domain/order"
	"github.com/karibushop/storefront/internal/domain/user"
)

// Summary holds storefront-wide totals.
type Summary struct {
	Users        int64
	Products     int64
	TotalSales   int64
	TotalRevenue decimal.Decimal
}

// DayPoint is one day of sales, zero-filled when no orders exist.
type DayPoint struct {
	Date    string
	Sales   int64
	Revenue decimal.Decimal
}

// ProductCounter exposes the catalog size without pulling the full Repository
// surface into this package.
type ProductCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Service computes analytics from the user, product, and order stores.
type Service struct {
	users    user.Repository
	products ProductCounter
	orders   order.Repository
}

// NewService creates an analytics Service.
func NewService(users user.Repository, products ProductCounter, orders order.Repository) *Service {
	return &Service{users: users, products: products, orders: orders}
}

// Summary returns storefront-wide totals.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "count users")
	}
	products, err := s.products.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "count products")
	}
	sales, revenue, err := s.orders.CountAndRevenue(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate orders")
	}

	return &Summary{
		Users:        users,
		Products:     products,
		TotalSales:   sales,
		TotalRevenue: revenue,
	}, nil
}

// DailySales returns one point per calendar day in [start, end], filling
// days without orders with zeros so charts render a continuous series.
func (s *Service) DailySales(ctx context.Context, start, end time.Time) ([]DayPoint, error) {
	rows, err := s.orders.SalesByDay(ctx, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate daily sales")
	}

	byDate := make(map[string]order.DailySales, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}

	var points []DayPoint
	for d := start.UTC().Truncate(24 * time.Hour); !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		point := DayPoint{Date: date, Revenue: decimal.Zero}
		if r, ok := byDate[date]; ok {
			point.Sales = r.Sales
			point.Revenue = r.Revenue
		}
		points = append(points, point)
	}
	return points, nil
}
