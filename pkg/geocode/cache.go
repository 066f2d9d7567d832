package geocode

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/goliatone/go-geofield/pkg/geodata"
)

// DefaultCacheSize bounds a Cache built with a non-positive size.
const DefaultCacheSize = 512

// Cache memoises OK and ZERO_RESULTS answers of another geocoder in a
// size-bounded LRU whose entries expire after a TTL. Errors and quota
// statuses are never cached.
type Cache struct {
	next    geodata.Geocoder
	entries *expirable.LRU[string, cacheEntry]
}

type cacheEntry struct {
	results []geodata.GeocodeResult
	status  geodata.GeocodeStatus
}

var _ geodata.Geocoder = (*Cache)(nil)

// NewCache wraps next, keeping at most size addresses. A non-positive ttl
// keeps entries until they are evicted by size.
func NewCache(next geodata.Geocoder, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		next:    next,
		entries: expirable.NewLRU[string, cacheEntry](size, nil, ttl),
	}
}

// Geocode implements geodata.Geocoder.
func (c *Cache) Geocode(ctx context.Context, address string) ([]geodata.GeocodeResult, geodata.GeocodeStatus, error) {
	key := normalize(address)
	if entry, ok := c.entries.Get(key); ok {
		zap.L().Debug("geocode cache hit", zap.String("address", key), zap.String("status", string(entry.status)))
		return append([]geodata.GeocodeResult(nil), entry.results...), entry.status, nil
	}

	results, status, err := c.next.Geocode(ctx, address)
	if err != nil || (status != geodata.StatusOK && status != geodata.StatusZeroResults) {
		return results, status, err
	}

	c.entries.Add(key, cacheEntry{results: append([]geodata.GeocodeResult(nil), results...), status: status})
	return results, status, nil
}

// Len reports the number of cached addresses, expired ones included until
// they are purged.
func (c *Cache) Len() int {
	return c.entries.Len()
}
