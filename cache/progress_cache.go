// Package cache holds the optional Redis mirror of playback progress that
// backs the recently-played view without touching the primary database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"playshelf/logger"
	"playshelf/model"

	"github.com/redis/go-redis/v9"
)

const (
	recentKey  = "playshelf:progress:recent"
	recordsKey = "playshelf:progress:records"

	opTimeout = 3 * time.Second
)

// ProgressCache mirrors progress records into Redis: a sorted set ordered
// by update time plus a hash of the full records. Entirely optional: a nil
// client disables it.
type ProgressCache struct {
	client *redis.Client
}

// NewProgressCache creates a ProgressCache over the given client, which may
// be nil.
func NewProgressCache(client *redis.Client) *ProgressCache {
	return &ProgressCache{client: client}
}

// Enabled reports whether the cache has a backing client.
func (c *ProgressCache) Enabled() bool {
	return c != nil && c.client != nil
}

// RecordProgress upserts one record into the mirror. Best effort: failures
// are logged and swallowed, the database stays the source of truth.
func (c *ProgressCache) RecordProgress(progress *model.Progress) {
	if !c.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	payload, err := json.Marshal(progress)
	if err != nil {
		logger.Warn("failed to marshal progress for cache", logger.ErrorField(err))
		return
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, recordsKey, progress.PlaylistID, payload)
	pipe.ZAdd(ctx, recentKey, redis.Z{
		Score:  float64(progress.UpdatedAt.UnixMilli()),
		Member: progress.PlaylistID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("failed to mirror progress to cache",
			logger.String("playlistId", progress.PlaylistID),
			logger.ErrorField(err))
	}
}

// RecentlyPlayed returns up to limit progress records, most recent first.
func (c *ProgressCache) RecentlyPlayed(ctx context.Context, limit int) ([]*model.Progress, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("progress cache not enabled")
	}

	ids, err := c.client.ZRevRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent playlist ids: %w", err)
	}
	if len(ids) == 0 {
		return []*model.Progress{}, nil
	}

	payloads, err := c.client.HMGet(ctx, recordsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached progress records: %w", err)
	}

	records := make([]*model.Progress, 0, len(payloads))
	for _, raw := range payloads {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		progress := &model.Progress{}
		if err := json.Unmarshal([]byte(s), progress); err != nil {
			logger.Warn("failed to unmarshal cached progress", logger.ErrorField(err))
			continue
		}
		records = append(records, progress)
	}
	return records, nil
}
