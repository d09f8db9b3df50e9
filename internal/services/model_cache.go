package services

import (
	"sync"

	"github.com/airaware/aqi-analytics/internal/analytics/forecast"
)

// modelCache keeps fitted regressors for the train_once policy. Entries are
// keyed by purpose, country and dataset version, so a reloaded dataset
// never reuses a stale model even before the cache is cleared.
type modelCache struct {
	mu      sync.Mutex
	entries map[string]*forecast.Fitted
}

func newModelCache() *modelCache {
	return &modelCache{entries: make(map[string]*forecast.Fitted)}
}

func modelKey(purpose, country, version string) string {
	return purpose + "|" + country + "|" + version
}

func (c *modelCache) get(key string) (*forecast.Fitted, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.entries[key]
	return f, ok
}

func (c *modelCache) put(key string, f *forecast.Fitted) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = f
}

func (c *modelCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*forecast.Fitted)
}

func (c *modelCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
