package reaper

import (
	"context"
	"time"

	rediskey "ecommerce/pkg/redis"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker 基于 SET NX 的分布式锁，锁值是每次加锁生成的随机 token。
type RedisLocker struct {
	rdb *rd.Client
	ttl time.Duration
	log *zap.Logger
}

func NewRedisLocker(rdb *rd.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, log: log}
}

func (l *RedisLocker) TryLock(ctx context.Context) (func(), bool, error) {
	key := rediskey.ReaperLockKey()
	token := uuid.NewString()
	ok, err := rediskey.AcquireLock(ctx, l.rdb, key, token, l.ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// 清理可能因 ctx 取消而结束，释放锁用独立的短超时。
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := rediskey.ReleaseLockIfMatch(rctx, l.rdb, key, token); err != nil {
			l.log.Warn("release reaper lock", zap.Error(err))
		}
	}
	return release, true, nil
}
