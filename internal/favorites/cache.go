package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"horsemarket-web/internal/api"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	defaultTTL = 10 * time.Minute
	// loadedMarker keeps the set alive for users without favorites.
	loadedMarker = "__loaded__"
)

var (
	cacheHitCounter   = metrics.GetOrCreateCounter(`favorites_cache_total{result="hit"}`)
	cacheMissCounter  = metrics.GetOrCreateCounter(`favorites_cache_total{result="miss"}`)
	cacheErrorCounter = metrics.GetOrCreateCounter(`favorites_cache_total{result="error"}`)
)

type API interface {
	Favorites(ctx context.Context, creds api.Credentials) ([]string, error)
	AddFavorite(ctx context.Context, listingID string, creds api.Credentials) error
	RemoveFavorite(ctx context.Context, listingID string, creds api.Credentials) error
}

// Cache is a per-user read-through, write-through cache of favorite listing ids.
// Redis failures degrade to direct API calls.
type Cache struct {
	redis  *redis.Client
	api    API
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(rdb *redis.Client, client API, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{redis: rdb, api: client, ttl: ttl, logger: logger}
}

func key(userID string) string {
	return fmt.Sprintf("favorites:%s", userID)
}

// genKey counts toggles of the user's favorites. A fill is only stored when
// no toggle happened since the API was read.
func genKey(userID string) string {
	return fmt.Sprintf("favorites:%s:gen", userID)
}

// KEYS: set, generation. ARGV: generation read before the API call, ttl ms, members...
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('SADD', KEYS[1], unpack(ARGV, 3))
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// KEYS: set, generation. ARGV: SADD or SREM, ttl ms, listing id, marker.
// A set without the marker is partial and is dropped instead of updated.
var updateScript = redis.NewScript(`
redis.call('INCR', KEYS[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
if redis.call('SISMEMBER', KEYS[1], ARGV[4]) == 0 then
	redis.call('DEL', KEYS[1])
	return 0
end
redis.call(ARGV[1], KEYS[1], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// List returns the user's favorite listing ids in ascending order.
func (c *Cache) List(ctx context.Context, userID string, creds api.Credentials) ([]string, error) {
	members, err := c.redis.SMembers(ctx, key(userID)).Result()
	if err != nil {
		cacheErrorCounter.Inc()
		c.logger.WarnContext(ctx, "Error reading favorites cache", "error", err, "userId", userID)
	} else if ids, complete := withoutMarker(members); complete {
		cacheHitCounter.Inc()
		return ids, nil
	}

	cacheMissCounter.Inc()
	gen, err := c.redis.Get(ctx, genKey(userID)).Result()
	cacheable := err == nil || errors.Is(err, redis.Nil)
	if errors.Is(err, redis.Nil) {
		gen = "0"
	}

	ids, err := c.api.Favorites(ctx, creds)
	if err != nil {
		return nil, errors.Wrap(err, "load favorites")
	}
	if cacheable {
		c.fill(ctx, userID, gen, ids)
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return sorted, nil
}

func (c *Cache) Contains(ctx context.Context, userID, listingID string, creds api.Credentials) (bool, error) {
	ids, err := c.List(ctx, userID, creds)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == listingID {
			return true, nil
		}
	}
	return false, nil
}

func (c *Cache) Add(ctx context.Context, userID, listingID string, creds api.Credentials) error {
	if err := c.api.AddFavorite(ctx, listingID, creds); err != nil {
		return errors.Wrapf(err, "add favorite %s", listingID)
	}
	c.update(ctx, userID, "SADD", listingID)
	return nil
}

func (c *Cache) Remove(ctx context.Context, userID, listingID string, creds api.Credentials) error {
	if err := c.api.RemoveFavorite(ctx, listingID, creds); err != nil {
		return errors.Wrapf(err, "remove favorite %s", listingID)
	}
	c.update(ctx, userID, "SREM", listingID)
	return nil
}

// Invalidate drops the cached set, e.g. on logout.
func (c *Cache) Invalidate(ctx context.Context, userID string) {
	if err := c.redis.Del(ctx, key(userID)).Err(); err != nil {
		cacheErrorCounter.Inc()
		c.logger.WarnContext(ctx, "Error invalidating favorites cache", "error", err, "userId", userID)
	}
}

// fill stores ids unless a toggle happened after gen was read.
func (c *Cache) fill(ctx context.Context, userID, gen string, ids []string) {
	args := make([]interface{}, 0, len(ids)+3)
	args = append(args, gen, c.ttl.Milliseconds(), loadedMarker)
	for _, id := range ids {
		args = append(args, id)
	}

	stored, err := fillScript.Run(ctx, c.redis, []string{key(userID), genKey(userID)}, args...).Int()
	if err != nil {
		cacheErrorCounter.Inc()
		c.logger.WarnContext(ctx, "Error filling favorites cache", "error", err, "userId", userID)
		return
	}
	if stored == 0 {
		c.logger.DebugContext(ctx, "Favorites changed while loading, not caching", "userId", userID)
	}
}

// update applies op to the cached set in one step. A missing or partial set is
// left for the next List to reload.
func (c *Cache) update(ctx context.Context, userID, op, listingID string) {
	keys := []string{key(userID), genKey(userID)}
	err := updateScript.Run(ctx, c.redis, keys, op, c.ttl.Milliseconds(), listingID, loadedMarker).Err()
	if err != nil {
		cacheErrorCounter.Inc()
		c.logger.WarnContext(ctx, "Error updating favorites cache, invalidating", "error", err, "userId", userID)
		c.Invalidate(ctx, userID)
	}
}

// withoutMarker strips the marker and reports whether it was present.
func withoutMarker(members []string) ([]string, bool) {
	complete := false
	ids := make([]string, 0, len(members))
	for _, m := range members {
		if m == loadedMarker {
			complete = true
			continue
		}
		ids = append(ids, m)
	}
	sort.Strings(ids)
	return ids, complete
}
