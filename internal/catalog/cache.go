package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "playerkit:video:"

// Cache is a read-through cache of catalog records. Every failure is a
// miss; the database stays authoritative. A nil *Cache caches nothing.
type Cache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewCache(rdb redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(videoID string) string {
	return cacheKeyPrefix + videoID
}

func (c *Cache) Get(ctx context.Context, videoID string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(videoID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("catalog: cache read failed", "video_id", videoID, "error", err)
		}
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		slog.Warn("catalog: dropping corrupt cache entry", "video_id", videoID, "error", err)
		c.Delete(ctx, videoID)
		return Record{}, false
	}
	return rec, true
}

func (c *Cache) Set(ctx context.Context, rec Record) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(rec.VideoID), raw, c.ttl).Err(); err != nil {
		slog.Warn("catalog: cache write failed", "video_id", rec.VideoID, "error", err)
	}
}

func (c *Cache) Delete(ctx context.Context, videoID string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(videoID)).Err(); err != nil {
		slog.Warn("catalog: cache delete failed", "video_id", videoID, "error", err)
	}
}
