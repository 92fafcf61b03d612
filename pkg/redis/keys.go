package redis

import "fmt"

// RateLimitKey 限流窗口键：scope 区分接口，subject 是 user:<id> 或 ip:<addr>。
func RateLimitKey(scope, subject string) string {
	return fmt.Sprintf("ecommerce:rate_limit:%s:%s", scope, subject)
}

// ReaperLockKey 多副本部署时，同一轮超时清理只允许一个实例执行。
func ReaperLockKey() string {
	return "ecommerce:lock:order_reaper"
}
