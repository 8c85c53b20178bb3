// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// catalog.go caches the raw category list of each kapp in Valkey so a
// restarted or scaled-out service can rebuild its hierarchy without going
// back to the platform API.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"techbar/internal/models"
)

const (
	// catalogKeyPrefix is the Valkey key prefix for cached category lists.
	catalogKeyPrefix = "catalog:"

	// DefaultCatalogTTL is how long a category list stays cached.
	DefaultCatalogTTL = 5 * time.Minute
)

// CatalogCache stores raw category lists keyed by kapp slug. A nil
// *CatalogCache is valid and always misses.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a catalog cache backed by the given Valkey client.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl == 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// Key returns the Valkey key for a kapp.
func Key(kapp string) string {
	return catalogKeyPrefix + kapp
}

// Get returns the cached category list for a kapp. Errors count as misses.
func (cc *CatalogCache) Get(ctx context.Context, kapp string) ([]models.RawCategory, bool) {
	if cc == nil {
		return nil, false
	}
	val, err := cc.client.Get(ctx, Key(kapp)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		zap.S().Warnw("catalog cache get error", "kapp", kapp, "error", err)
		return nil, false
	}

	var raw []models.RawCategory
	if err := json.Unmarshal(val, &raw); err != nil {
		zap.S().Warnw("catalog cache decode error", "kapp", kapp, "error", err)
		return nil, false
	}
	zap.S().Debugw("catalog cache hit", "kapp", kapp, "categories", len(raw))
	return raw, true
}

// Set stores the category list for a kapp with the configured TTL.
func (cc *CatalogCache) Set(ctx context.Context, kapp string, raw []models.RawCategory) {
	if cc == nil {
		return
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		zap.S().Warnw("catalog cache encode error", "kapp", kapp, "error", err)
		return
	}
	if err := cc.client.Set(ctx, Key(kapp), payload, cc.ttl).Err(); err != nil {
		zap.S().Warnw("catalog cache set error", "kapp", kapp, "error", err)
	}
}

// Invalidate removes the cached list of a kapp.
func (cc *CatalogCache) Invalidate(ctx context.Context, kapp string) {
	if cc == nil {
		return
	}
	if err := cc.client.Del(ctx, Key(kapp)).Err(); err != nil {
		zap.S().Warnw("catalog cache invalidate error", "kapp", kapp, "error", err)
		return
	}
	zap.S().Debugw("catalog cache invalidated", "kapp", kapp)
}

// InvalidateAll removes every cached kapp by scanning for the prefix.
func (cc *CatalogCache) InvalidateAll(ctx context.Context) {
	if cc == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := cc.client.Scan(ctx, cursor, catalogKeyPrefix+"*", 100).Result()
		if err != nil {
			zap.S().Warnw("catalog cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := cc.client.Del(ctx, keys...).Err(); err != nil {
				zap.S().Warnw("catalog cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		zap.S().Infow("catalog cache fully cleared", "deleted", deleted)
	}
}
