package dataset

import (
	"context"
	"sync"
	"time"

	"github.com/airaware/aqi-analytics/internal/config"
	"github.com/airaware/aqi-analytics/internal/logging"
)

// Cache fronts a Loader.
//
// With the reload policy every Get reads the source again. With the cached
// policy the first snapshot is reused until it is older than the TTL (a
// zero TTL never expires) or until Invalidate is called; edits to the file
// are not observed before then.
type Cache struct {
	loader Loader
	policy string
	ttl    time.Duration
	logger *logging.Logger
	now    func() time.Time

	mu        sync.Mutex
	current   *Dataset
	listeners []func()
}

// NewCache creates a dataset cache
func NewCache(loader Loader, cfg config.DatasetConfig, logger *logging.Logger) *Cache {
	return &Cache{
		loader: loader,
		policy: cfg.CachePolicy,
		ttl:    cfg.CacheTTL,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns a dataset snapshot according to the cache policy
func (c *Cache) Get(ctx context.Context) (*Dataset, error) {
	if c.policy != config.CachePolicyCached {
		return c.load(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && !c.staleLocked() {
		return c.current, nil
	}

	ds, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if c.current != nil {
		c.notifyLocked()
	}
	c.current = ds
	return ds, nil
}

// Invalidate drops the cached snapshot; the next Get reloads the source
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
	c.notifyLocked()
	c.logger.Info("Dataset cache invalidated")
}

// OnInvalidate registers a callback run whenever the cached snapshot is
// replaced or dropped. Model caches use it to follow the dataset.
func (c *Cache) OnInvalidate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Cache) notifyLocked() {
	for _, fn := range c.listeners {
		fn()
	}
}

func (c *Cache) staleLocked() bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(c.current.LoadedAt) > c.ttl
}

func (c *Cache) load(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	ds, err := c.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	fields := []interface{}{
		"source", ds.Source,
		"rows", ds.Len(),
		"countries", len(ds.Countries()),
		"rows_dropped", ds.Report.RowsDropped,
		"aqi_filled", ds.Report.AQIFilled,
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if ds.Report.Clean() {
		c.logger.Debug("Dataset loaded", fields...)
	} else {
		fields = append(fields, "failures", ds.Report.Failures)
		c.logger.Warn("Dataset loaded with coercion failures", fields...)
	}
	return ds, nil
}
