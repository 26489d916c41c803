package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oggyb/muzz-match-cycle/internal/config"
)

// releaseScript deletes the lock only if it still holds our token, so a run
// that outlived its TTL can't drop a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForPhaseLock generates Redis key guarding one cycle phase
func (c *RedisCache) KeyForPhaseLock(phase string) string {
	return fmt.Sprintf("cycle:lock:%s", phase)
}

// AcquireLock tries to take key for ttl.
// Returns the owner token and true on success, "" and false if someone else
// holds it.
func (c *RedisCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock drops key if it is still owned by token.
func (c *RedisCache) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, c.Client, []string{key}, token).Err()
}
