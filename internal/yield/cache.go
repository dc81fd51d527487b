package yield

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/roofwatts/internal/log"
)

// DefaultCacheTTL keeps cached estimates for thirty days. Annual yield for
// a fixed orientation drifts on climate timescales, not daily ones.
const DefaultCacheTTL = 720 * time.Hour

// Cache wraps an Estimator with a small msgpack-encoded disk cache so
// repeated runs over the same building do not spend API budget. Keys are
// the rounded request parameters; entries expire after the TTL.
type Cache struct {
	inner Estimator
	path  string
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	KWh      float64   `msgpack:"kwh"`
	StoredAt time.Time `msgpack:"stored_at"`
}

// NewCache loads any existing cache file at path and returns the caching
// decorator. A missing file starts an empty cache; an unreadable or
// corrupt one is discarded with a warning rather than failing the run.
func NewCache(inner Estimator, path string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		inner:   inner,
		path:    path,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("could not read yield cache %s: %v", path, err)
		}
		return c
	}
	if err := msgpack.Unmarshal(data, &c.entries); err != nil {
		log.Warnf("discarding corrupt yield cache %s: %v", path, err)
		c.entries = make(map[string]cacheEntry)
	}
	return c
}

// Name implements Estimator, reporting the wrapped backend's name.
func (c *Cache) Name() string {
	return c.inner.Name()
}

// EstimateAnnualKWh implements Estimator. Fresh cache hits skip the
// wrapped estimator entirely; successful lookups are stored and flushed to
// disk. Failures are never cached.
func (c *Cache) EstimateAnnualKWh(ctx context.Context, req Request) (float64, error) {
	key := cacheKey(req)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Since(e.StoredAt) < c.ttl {
		c.mu.Unlock()
		log.Debugf("yield cache hit for %s", key)
		return e.KWh, nil
	}
	c.mu.Unlock()

	kwh, err := c.inner.EstimateAnnualKWh(ctx, req)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{KWh: kwh, StoredAt: time.Now()}
	err = c.flushLocked()
	c.mu.Unlock()
	if err != nil {
		log.Warnf("could not persist yield cache: %v", err)
	}
	return kwh, nil
}

// flushLocked writes the cache file. Callers hold c.mu.
func (c *Cache) flushLocked() error {
	data, err := msgpack.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encoding yield cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing yield cache %s: %w", c.path, err)
	}
	return nil
}

// cacheKey rounds the request parameters so float jitter below reporting
// precision maps to the same entry.
func cacheKey(req Request) string {
	return fmt.Sprintf("%.4f,%.4f,%.3f,%.1f,%.1f,%.1f",
		req.Latitude, req.Longitude, req.SystemCapacityKW,
		req.TiltDeg, req.AzimuthDeg, req.SystemLossesPct)
}
