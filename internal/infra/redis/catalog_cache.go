package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/repository"
	"membership-checkout/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ repository.CatalogRepository = (*CatalogCache)(nil)

// CatalogCache is a read-through cache in front of the catalog tables.
// Saves go to the inner repository first and then drop the cached copy.
type CatalogCache struct {
	inner  repository.CatalogRepository
	client RedisClient
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewCatalogCache(inner repository.CatalogRepository, client RedisClient, ttl time.Duration, logger *zerolog.Logger) *CatalogCache {
	return &CatalogCache{inner: inner, client: client, ttl: ttl, log: logger}
}

func planKey(id string) string    { return "catalog:plan:" + id }
func courseKey(id string) string  { return "catalog:course:" + id }
func productKey(id string) string { return "catalog:product:" + id }

func (c *CatalogCache) FindPlan(ctx context.Context, id string) (*model.MembershipPlan, error) {
	var p model.MembershipPlan
	if c.load(ctx, "plan", planKey(id), &p) {
		return &p, nil
	}
	out, err := c.inner.FindPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, planKey(id), out)
	return out, nil
}

func (c *CatalogCache) FindCourse(ctx context.Context, id string) (*model.Course, error) {
	var cr model.Course
	if c.load(ctx, "course", courseKey(id), &cr) {
		return &cr, nil
	}
	out, err := c.inner.FindCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, courseKey(id), out)
	return out, nil
}

func (c *CatalogCache) FindProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if c.load(ctx, "product", productKey(id), &p) {
		return &p, nil
	}
	out, err := c.inner.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, productKey(id), out)
	return out, nil
}

func (c *CatalogCache) SavePlan(ctx context.Context, p *model.MembershipPlan) error {
	if err := c.inner.SavePlan(ctx, p); err != nil {
		return err
	}
	c.evict(ctx, planKey(p.ID))
	return nil
}

func (c *CatalogCache) SaveCourse(ctx context.Context, cr *model.Course) error {
	if err := c.inner.SaveCourse(ctx, cr); err != nil {
		return err
	}
	c.evict(ctx, courseKey(cr.ID))
	return nil
}

func (c *CatalogCache) SaveProduct(ctx context.Context, p *model.Product) error {
	if err := c.inner.SaveProduct(ctx, p); err != nil {
		return err
	}
	c.evict(ctx, productKey(p.ID))
	return nil
}

// Groups are never read through the cache.
func (c *CatalogCache) SaveGroup(ctx context.Context, g *model.Group) error {
	return c.inner.SaveGroup(ctx, g)
}

// load reports a hit. Redis failures degrade to a miss.
func (c *CatalogCache) load(ctx context.Context, name, key string, dst any) bool {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
		metrics.IncCacheRequest(name, "miss")
		return false
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("catalog cache entry corrupt")
		_ = c.client.Del(ctx, key)
		metrics.IncCacheRequest(name, "miss")
		return false
	}
	metrics.IncCacheRequest(name, "hit")
	return true
}

func (c *CatalogCache) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}

func (c *CatalogCache) evict(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("catalog cache evict failed")
	}
}
