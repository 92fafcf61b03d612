package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// luaReleaseLockIfMatch 仅当锁值匹配 token 时才删除，避免误删别的实例续上的锁。
const luaReleaseLockIfMatch = `
local lockKey = KEYS[1]
local token = ARGV[1]
if redis.call('GET', lockKey) == token then
  return redis.call('DEL', lockKey)
end
return 0
`

// AcquireLock SET NX PX：拿到锁返回 true。ttl 兜底，持有者崩溃后锁会自动过期。
func AcquireLock(ctx context.Context, rdb *rd.Client, key, token string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, token, ttl).Result()
}

// ReleaseLockIfMatch 安全释放锁，返回是否真的删除了。
func ReleaseLockIfMatch(ctx context.Context, rdb *rd.Client, key, token string) (bool, error) {
	n, err := rdb.Eval(ctx, luaReleaseLockIfMatch, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
