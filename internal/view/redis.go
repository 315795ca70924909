package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/izzypositivetech-001/IzzyCare/internal/redis"
)

const staleSetKey = "views:stale"

func renderKey(name string) string { return "view:" + name }
func genKey(name string) string    { return "view:" + name + ":gen" }

// RedisCache shares renders and staleness flags between api-server replicas.
type RedisCache struct {
	client *redis.Client
	locker redisclient.Locker
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisCache(client *redis.Client, locker redisclient.Locker, ttl time.Duration, log *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		locker: locker,
		ttl:    ttl,
		log:    log,
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, name string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, staleSetKey, name)
		pipe.Del(ctx, renderKey(name))
		pipe.Incr(ctx, genKey(name))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate view %s: %w", name, err)
	}
	return nil
}

func (c *RedisCache) IsStale(ctx context.Context, name string) (bool, error) {
	stale, err := c.client.SIsMember(ctx, staleSetKey, name).Result()
	if err != nil {
		return true, fmt.Errorf("check view %s: %w", name, err)
	}
	if stale {
		return true, nil
	}
	n, err := c.client.Exists(ctx, renderKey(name)).Result()
	if err != nil {
		return true, fmt.Errorf("check view %s: %w", name, err)
	}
	return n == 0, nil
}

func (c *RedisCache) Fetch(ctx context.Context, name string, compute ComputeFunc) ([]byte, error) {
	stale, err := c.IsStale(ctx, name)
	if err != nil {
		c.log.Warn("view cache unavailable, computing directly", "view", name, "error", err)
		return compute(ctx)
	}
	if !stale {
		data, err := c.client.Get(ctx, renderKey(name)).Bytes()
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("read cached view failed", "view", name, "error", err)
		}
	}

	gen, err := c.generation(ctx, name)
	if err != nil {
		c.log.Warn("read view generation failed", "view", name, "error", err)
		return compute(ctx)
	}

	var data []byte
	err = c.locker.WithLock(ctx, renderKey(name), func(lockCtx context.Context) error {
		var cerr error
		data, cerr = compute(lockCtx)
		if cerr != nil {
			return cerr
		}
		if serr := c.store(lockCtx, name, gen, data); serr != nil {
			c.log.Warn("store view render failed", "view", name, "error", serr)
		}
		return nil
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		// Someone else is recomputing; serve a fresh compute without storing it.
		return compute(ctx)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *RedisCache) generation(ctx context.Context, name string) (int64, error) {
	v, err := c.client.Get(ctx, genKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// storeScript keeps a render only if no invalidation happened since gen was read.
var storeScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1])
if not gen then gen = "0" end
if gen ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
  redis.call("SET", KEYS[2], ARGV[2])
end
redis.call("SREM", KEYS[3], ARGV[4])
return 1
`)

func (c *RedisCache) store(ctx context.Context, name string, gen int64, data []byte) error {
	keys := []string{genKey(name), renderKey(name), staleSetKey}
	_, err := storeScript.Run(ctx, c.client, keys,
		strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds(), name).Result()
	return err
}
