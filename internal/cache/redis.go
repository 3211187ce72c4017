// Package cache provides the Redis-backed featured-product cache and the
// refresh-token store.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/karibushop/storefront/internal/domain/product"
)

const (
	keyFeaturedProducts = "featured_products"
	keyRefreshToken     = "refresh_token:"
)

// NewClient creates a go-redis client from a redis:// URL and verifies the
// connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

// FeaturedCache implements product.FeaturedCache with an explicit TTL. The
// TTL is a required parameter rather than an implicit absence of one.
type FeaturedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFeaturedCache creates a FeaturedCache with the given expiration.
func NewFeaturedCache(client *redis.Client, ttl time.Duration) *FeaturedCache {
	return &FeaturedCache{client: client, ttl: ttl}
}

var _ product.FeaturedCache = (*FeaturedCache)(nil)

type cachedProduct struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	IsFeatured  bool      `json:"isFeatured"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Get returns the cached featured-product list, or product.ErrCacheMiss.
func (c *FeaturedCache) Get(ctx context.Context) ([]product.Product, error) {
	data, err := c.client.Get(ctx, keyFeaturedProducts).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, product.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	var cached []cachedProduct
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, errors.Wrap(err, "unmarshal featured products")
	}

	products := make([]product.Product, len(cached))
	for i, cp := range cached {
		price, err := decimal.NewFromString(cp.Price)
		if err != nil {
			return nil, errors.Wrap(err, "parse cached price")
		}
		products[i] = product.Product{
			ID:          cp.ID,
			Name:        cp.Name,
			Description: cp.Description,
			Price:       price,
			Image:       cp.Image,
			Category:    cp.Category,
			IsFeatured:  cp.IsFeatured,
			CreatedAt:   cp.CreatedAt,
		}
	}
	return products, nil
}

// Set replaces the cached featured-product list.
func (c *FeaturedCache) Set(ctx context.Context, products []product.Product) error {
	cached := make([]cachedProduct, len(products))
	for i, p := range products {
		cached[i] = cachedProduct{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price.String(),
			Image:       p.Image,
			Category:    p.Category,
			IsFeatured:  p.IsFeatured,
			CreatedAt:   p.CreatedAt,
		}
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return errors.Wrap(err, "marshal featured products")
	}
	if err := c.client.Set(ctx, keyFeaturedProducts, data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// TokenStore implements auth.TokenStore on Redis under refresh_token:<userID>.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore creates a TokenStore.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// SaveRefreshToken records the user's current refresh token with a TTL.
func (s *TokenStore) SaveRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyRefreshToken+userID, token, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set refresh token")
	}
	return nil
}

// GetRefreshToken returns the recorded refresh token; a missing record is an
// empty string, which never equals a presented token.
func (s *TokenStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	token, err := s.client.Get(ctx, keyRefreshToken+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "redis get refresh token")
	}
	return token, nil
}

// DeleteRefreshToken drops the user's refresh token record.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, keyRefreshToken+userID).Err(); err != nil {
		return errors.Wrap(err, "redis delete refresh token")
	}
	return nil
}
