package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLocker 基于 SET NX PX 的分布式锁，多个服务实例共享同一个 Redis 时使用
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // 锁的过期时间，防止持有者崩溃后死锁
	wait   time.Duration // 最长等待时间
	retry  time.Duration
}

type Config struct {
	RedisURL    string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL         time.Duration // 锁过期时间
	WaitTimeout time.Duration // 获取锁的最长等待
}

// 只有持有者 (token 相同) 才能删除，避免误删别人的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(cfg Config) (*RedisLocker, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisLockerWithClient(client, cfg.TTL, cfg.WaitTimeout), nil
}

// NewRedisLockerWithClient 复用已有的 Redis 客户端
func NewRedisLockerWithClient(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &RedisLocker{
		client: client,
		prefix: "av:lock:",
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
	}
}

func (l *RedisLocker) lockKey(key string) string {
	return l.prefix + key
}

// Lock 轮询 SET NX 直到拿到锁、超时或 ctx 取消
func (l *RedisLocker) Lock(ctx context.Context, key string) (Release, error) {
	redisKey := l.lockKey(key)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis lock %s: %w", key, ErrLockTimeout)
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) Release {
	return func(ctx context.Context) error {
		// 使用独立的超时，即使上层 ctx 已取消也要尽量释放
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		n, err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Int()
		if err != nil {
			return fmt.Errorf("redis unlock: %w", err)
		}
		if n == 0 {
			// 锁已过期并可能被别人拿走，说明临界区执行时间超过了 TTL
			slog.Warn("redis lock expired before release", slog.String("key", redisKey))
		}
		return nil
	}
}

// Close 关闭 Redis 连接
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
