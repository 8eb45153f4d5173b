package geo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/courier-next/internal/logger"
)

// Store JSON 键值缓存
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cached 为 Geocoder 增加结果缓存，只缓存成功结果，缓存异常时直接穿透
type Cached struct {
	inner Geocoder
	store Store
	ttl   time.Duration
}

// NewCached 创建带缓存的 Geocoder
func NewCached(inner Geocoder, store Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{inner: inner, store: store, ttl: ttl}
}

func (c *Cached) Resolve(ctx context.Context, address string) (*Location, error) {
	key := "geo:addr:" + digest(strings.ToLower(strings.TrimSpace(address)))
	var hit Location
	if c.load(ctx, key, &hit) {
		return &hit, nil
	}
	loc, err := c.inner.Resolve(ctx, address)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, loc)
	return loc, nil
}

func (c *Cached) ResolveCoordinates(ctx context.Context, lat, lng float64) (*Location, error) {
	key := fmt.Sprintf("geo:rev:%.5f,%.5f", lat, lng)
	var hit Location
	if c.load(ctx, key, &hit) {
		return &hit, nil
	}
	loc, err := c.inner.ResolveCoordinates(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, loc)
	return loc, nil
}

func (c *Cached) Route(ctx context.Context, origin, destination string) (*Route, error) {
	key := "geo:route:" + digest(strings.ToLower(strings.TrimSpace(origin))+"|"+strings.ToLower(strings.TrimSpace(destination)))
	var hit Route
	if c.load(ctx, key, &hit) {
		return &hit, nil
	}
	route, err := c.inner.Route(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, route)
	return route, nil
}

func (c *Cached) load(ctx context.Context, key string, dest interface{}) bool {
	if c.store == nil {
		return false
	}
	hit, err := c.store.Get(ctx, key, dest)
	if err != nil {
		logger.Debugw("geo_cache_get_failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (c *Cached) save(ctx context.Context, key string, value interface{}) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		logger.Debugw("geo_cache_set_failed", "key", key, "error", err)
	}
}

func digest(raw string) string {
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
