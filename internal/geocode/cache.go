package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/shiva/backhaul/internal/metrics"
	"github.com/shiva/backhaul/internal/model"
)

const (
	redisKeyPrefix = "geocode:v1:"
	// redisMiss marks an address the provider could not resolve.
	redisMiss = "-"
	// negativeTTL bounds how long an unresolvable address stays cached in Redis.
	negativeTTL = time.Hour
)

type entry struct {
	coords model.Coordinates
	found  bool
}

// CachedGeocoder memoizes a provider in process and, when a Redis client is
// given, across processes. Unresolvable addresses are cached too; provider
// errors are not.
type CachedGeocoder struct {
	next     Geocoder
	memory   *expirable.LRU[string, entry]
	redis    *redis.Client
	redisTTL time.Duration
	group    singleflight.Group
	log      *zap.Logger
}

// NewCachedGeocoder wraps next. A nil rdb disables the Redis tier.
func NewCachedGeocoder(next Geocoder, size int, ttl time.Duration, rdb *redis.Client, redisTTL time.Duration, log *zap.Logger) *CachedGeocoder {
	if size <= 0 {
		size = 1024
	}
	return &CachedGeocoder{
		next:     next,
		memory:   expirable.NewLRU[string, entry](size, nil, ttl),
		redis:    rdb,
		redisTTL: redisTTL,
		log:      log.With(zap.String("component", "geocode")),
	}
}

// Geocode answers from the first tier that knows the address.
func (c *CachedGeocoder) Geocode(ctx context.Context, addr model.Address) (model.Coordinates, bool, error) {
	key := Key(addr)

	if e, ok := c.memory.Get(key); ok {
		metrics.GeocodeLookups.WithLabelValues(metrics.TierMemory, resultLabel(e.found)).Inc()
		return e.coords, e.found, nil
	}

	// Shared by every waiter on key; bounded by the provider timeout.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A flight that finished between the check above and Do has
		// already filled memory.
		if e, ok := c.memory.Get(key); ok {
			return e, nil
		}
		if e, ok := c.fromRedis(flightCtx, key); ok {
			metrics.GeocodeLookups.WithLabelValues(metrics.TierRedis, resultLabel(e.found)).Inc()
			c.memory.Add(key, e)
			return e, nil
		}

		coords, found, err := c.next.Geocode(flightCtx, addr)
		if err != nil {
			metrics.GeocodeLookups.WithLabelValues(metrics.TierProvider, "error").Inc()
			return nil, err
		}
		e := entry{coords: coords, found: found}
		metrics.GeocodeLookups.WithLabelValues(metrics.TierProvider, resultLabel(found)).Inc()
		c.memory.Add(key, e)
		c.toRedis(flightCtx, key, e)
		return e, nil
	})
	if err != nil {
		return model.Coordinates{}, false, err
	}

	e := v.(entry)
	return e.coords, e.found, nil
}

// Len returns the number of in-process entries.
func (c *CachedGeocoder) Len() int {
	return c.memory.Len()
}

func (c *CachedGeocoder) fromRedis(ctx context.Context, key string) (entry, bool) {
	if c.redis == nil {
		return entry{}, false
	}
	val, err := c.redis.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return entry{}, false
	}
	if err != nil {
		c.log.Debug("redis geocode read failed", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	e, err := decodeEntry(val)
	if err != nil {
		c.log.Debug("redis geocode entry corrupt", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	return e, true
}

// toRedis is fire-and-forget; a failed write only costs a future provider call.
func (c *CachedGeocoder) toRedis(ctx context.Context, key string, e entry) {
	if c.redis == nil {
		return
	}
	ttl := c.redisTTL
	if !e.found && (ttl <= 0 || ttl > negativeTTL) {
		ttl = negativeTTL
	}
	if err := c.redis.Set(ctx, redisKeyPrefix+key, encodeEntry(e), ttl).Err(); err != nil {
		c.log.Debug("redis geocode write failed", zap.String("key", key), zap.Error(err))
	}
}

func encodeEntry(e entry) string {
	if !e.found {
		return redisMiss
	}
	return strconv.FormatFloat(e.coords.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(e.coords.Lng, 'f', 6, 64)
}

func decodeEntry(val string) (entry, error) {
	if val == redisMiss {
		return entry{}, nil
	}
	latStr, lngStr, ok := strings.Cut(val, ",")
	if !ok {
		return entry{}, fmt.Errorf("malformed coordinates %q", val)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return entry{}, fmt.Errorf("parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return entry{}, fmt.Errorf("parse lng: %w", err)
	}
	return entry{coords: model.Coordinates{Lat: lat, Lng: lng}, found: true}, nil
}

func resultLabel(found bool) string {
	if found {
		return "hit"
	}
	return "miss"
}
