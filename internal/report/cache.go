package report

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "salesdash:stats:"

// StatsCache memoizes built reports in Redis for a short TTL. A nil cache, or any
// Redis failure, falls through to the build function.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewStatsCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *StatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsCache{client: client, ttl: ttl, logger: logger}
}

type BuildFunc func(ctx context.Context, filter Filter) (*Report, error)

func (c *StatsCache) Report(ctx context.Context, filter Filter, build BuildFunc) (*Report, error) {
	if c == nil || c.client == nil {
		return build(ctx, filter)
	}

	key := cacheKeyPrefix + filter.Key()
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Report
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
	}

	rep, err := build(ctx, filter)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		return rep, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
	return rep, nil
}
