package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// FeaturedCache caches the featured-product list between catalog writes.
// Implementations decide the expiration policy; Refresh replaces the cached
// value after a featured flag changes.
type FeaturedCache interface {
	Get(ctx context.Context) ([]Product, error)
	Set(ctx context.Context, products []Product) error
}

// ErrCacheMiss is returned by FeaturedCache.Get when no cached value exists.
var ErrCacheMiss = errors.New("cache miss")

// ImageStore uploads product images to the CDN and removes them on deletion.
type ImageStore interface {
	Upload(ctx context.Context, image string) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// Service wraps the catalog repository with the featured-product cache and
// CDN image lifecycle.
type Service struct {
	repo   Repository
	cache  FeaturedCache
	images ImageStore
}

// NewService creates a catalog Service.
func NewService(repo Repository, cache FeaturedCache, images ImageStore) *Service {
	return &Service{repo: repo, cache: cache, images: images}
}

// List returns the full catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// ListFeatured returns featured products, serving from cache when possible.
// A database read repopulates the cache; cache write failures are logged and
// do not fail the request.
func (s *Service) ListFeatured(ctx context.Context) ([]Product, error) {
	cached, err := s.cache.Get(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		zctx.From(ctx).Warn("Featured cache read failed", zap.Error(err))
	}

	products, err := s.repo.ListFeatured(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list featured products")
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}

	if err := s.cache.Set(ctx, products); err != nil {
		zctx.From(ctx).Warn("Featured cache write failed", zap.Error(err))
	}
	return products, nil
}

// ListByCategory returns products in the given category.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	return s.repo.ListByCategory(ctx, category)
}

// Recommend returns a small random sample of the catalog.
func (s *Service) Recommend(ctx context.Context) ([]Product, error) {
	return s.repo.Sample(ctx, 3)
}

// Create uploads the image (when provided) and persists the product.
func (s *Service) Create(ctx context.Context, p *Product, image string) (*Product, error) {
	if image != "" {
		url, err := s.images.Upload(ctx, image)
		if err != nil {
			return nil, errors.Wrap(err, "upload product image")
		}
		p.Image = url
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Delete removes the product and its CDN image. A CDN deletion failure is
// logged but does not block removing the catalog entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if p.Image != "" {
		if err := s.images.Delete(ctx, p.Image); err != nil {
			zctx.From(ctx).Warn("CDN image deletion failed",
				zap.String("product_id", id), zap.Error(err))
		}
	}

	return s.repo.Delete(ctx, id)
}

// ToggleFeatured flips the featured flag and refreshes the cache so the
// featured list never serves a stale flag for longer than one request.
func (s *Service) ToggleFeatured(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetFeatured(ctx, id, !p.IsFeatured)
	if err != nil {
		return nil, errors.Wrap(err, "toggle featured")
	}

	featured, err := s.repo.ListFeatured(ctx)
	if err != nil {
		zctx.From(ctx).Warn("Featured cache refresh read failed", zap.Error(err))
		return updated, nil
	}
	if err := s.cache.Set(ctx, featured); err != nil {
		zctx.From(ctx).Warn("Featured cache refresh failed", zap.Error(err))
	}
	return updated, nil
}
