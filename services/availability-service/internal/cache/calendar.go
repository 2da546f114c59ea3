// Package cache keeps the weekly business calendar in Redis in front of the database read.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/engine"
	"github.com/redis/go-redis/v9"
)

const CalendarKey = "availability:calendar:v1"

// Client is the subset of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CalendarCache is a read-through cache. Redis failures are logged and the source is read directly.
type CalendarCache struct {
	rdb    Client
	source engine.CalendarReader
	ttl    time.Duration
	logger *slog.Logger
}

func NewCalendarCache(rdb Client, source engine.CalendarReader, ttl time.Duration, logger *slog.Logger) *CalendarCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CalendarCache{rdb: rdb, source: source, ttl: ttl, logger: logger}
}

func (c *CalendarCache) BusinessCalendar(ctx context.Context) (calendar.BusinessCalendar, error) {
	raw, err := c.rdb.Get(ctx, CalendarKey).Bytes()
	switch {
	case err == nil:
		var cal calendar.BusinessCalendar
		if err := json.Unmarshal(raw, &cal); err == nil {
			return cal, nil
		}
		c.logger.Warn("discarding undecodable cached calendar", "key", CalendarKey)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("calendar cache read failed", "err", err)
	}

	cal, err := c.source.BusinessCalendar(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(cal)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, CalendarKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("calendar cache write failed", "err", err)
	}
	return cal, nil
}

// Invalidate drops the cached calendar so the next read goes to the source.
func (c *CalendarCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, CalendarKey).Err()
}
