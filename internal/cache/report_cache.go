package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const reportPrefix = "report:"

// ReportCache stores JSON-encoded reports keyed by the filter that produced them.
type ReportCache struct {
	store Store
	ttl   time.Duration
}

func NewReportCache(store Store, ttl time.Duration) *ReportCache {
	if store == nil {
		store = Nop{}
	}
	return &ReportCache{store: store, ttl: ttl}
}

// Get decodes the cached value for key into dst. It reports false on a miss.
func (c *ReportCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.store.Get(ctx, reportPrefix+key)
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached report %s: %w", key, err)
	}
	return true, nil
}

// Put stores value under key for the configured TTL.
func (c *ReportCache) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", key, err)
	}
	return c.store.Set(ctx, reportPrefix+key, raw, c.ttl)
}

// Invalidate drops every cached report. Called after any write that changes
// report inputs.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	return c.store.DeletePrefix(ctx, reportPrefix)
}

// Ping checks the backing store.
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
