package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// throttleScript 计数 + 封禁窗口
// KEYS[1] 计数键 KEYS[2] 封禁键；ARGV[1] 窗口秒数 ARGV[2] 上限 ARGV[3] 封禁秒数
// 返回 {计数, 计数剩余秒数, 是否封禁, 封禁剩余秒数}
var throttleScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
  local hits = tonumber(redis.call("GET", KEYS[1]) or "0")
  return {hits, redis.call("TTL", KEYS[1]), 1, redis.call("TTL", KEYS[2])}
end
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
if hits > tonumber(ARGV[2]) then
  local block = tonumber(ARGV[3])
  if block > 0 then
    redis.call("SET", KEYS[2], "1", "EX", block)
    return {hits, ttl, 1, block}
  end
  return {hits, ttl, 1, ttl}
end
return {hits, ttl, 0, 0}
`)

// ThrottleResult 限流计数结果
type ThrottleResult struct {
	Hits       int64
	ResetIn    time.Duration
	Blocked    bool
	RetryAfter time.Duration
}

// Throttle 对 key 计数一次，超过上限后进入封禁窗口
func (s *Store) Throttle(ctx context.Context, key string, window time.Duration, limit int, block time.Duration) (ThrottleResult, error) {
	if s == nil || s.client == nil {
		return ThrottleResult{}, ErrStoreUnavailable
	}
	windowSeconds := int64(window / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}
	blockSeconds := int64(block / time.Second)
	if blockSeconds < 0 {
		blockSeconds = 0
	}

	raw, err := throttleScript.Run(ctx, s.client, []string{key, key + ":block"}, windowSeconds, limit, blockSeconds).Result()
	if err != nil {
		return ThrottleResult{}, err
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) < 4 {
		return ThrottleResult{}, errors.New("unexpected throttle script reply")
	}
	nums := make([]int64, 4)
	for i := range nums {
		n, ok := values[i].(int64)
		if !ok {
			return ThrottleResult{}, fmt.Errorf("unexpected throttle reply element %d: %T", i, values[i])
		}
		nums[i] = n
	}
	result := ThrottleResult{
		Hits:    nums[0],
		ResetIn: secondsToDuration(nums[1]),
		Blocked: nums[2] == 1,
	}
	if result.Blocked {
		result.RetryAfter = secondsToDuration(nums[3])
		if result.RetryAfter <= 0 {
			result.RetryAfter = time.Duration(windowSeconds) * time.Second
		}
	}
	return result, nil
}

func secondsToDuration(seconds int64) time.Duration {
	if seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
