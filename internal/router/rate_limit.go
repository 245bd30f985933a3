package router

import (
	"context"
	"strings"
	"time"

	"github.com/dujiao-next/tableside/internal/cache"
	handlershared "github.com/dujiao-next/tableside/internal/http/handlers/shared"
	"github.com/dujiao-next/tableside/internal/http/response"
	"github.com/dujiao-next/tableside/internal/i18n"
	"github.com/dujiao-next/tableside/internal/metrics"

	"github.com/gin-gonic/gin"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// Throttler 计数型限流存储
type Throttler interface {
	Throttle(ctx context.Context, key string, window time.Duration, limit int, block time.Duration) (cache.ThrottleResult, error)
	Key(parts ...string) string
}

// RateLimitRule 限流规则
type RateLimitRule struct {
	Name          string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

// RateLimitMiddleware Redis 频率限制中间件，超限后在封禁窗口内持续拒绝
func RateLimitMiddleware(store Throttler, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}

		result, err := store.Throttle(
			c.Request.Context(),
			store.Key("rl", rule.Name, key),
			time.Duration(rule.WindowSeconds)*time.Second,
			rule.MaxRequests,
			time.Duration(rule.BlockSeconds)*time.Second,
		)
		if err != nil {
			handlershared.RespondError(c, response.CodeInternal, "error.rate_limit_unavailable", err)
			c.Abort()
			return
		}
		if result.Blocked {
			waitSeconds := int(result.RetryAfter / time.Second)
			if waitSeconds < 1 {
				waitSeconds = rule.WindowSeconds
			}
			if waitSeconds < 1 {
				waitSeconds = 1
			}
			msgKey := strings.TrimSpace(rule.MessageKey)
			if msgKey == "" {
				msgKey = "error.too_many_requests"
			}
			metrics.ObserveRateLimited(rule.Name)
			handlershared.RequestLog(c).Warnw("rate_limit_rejected",
				"rule", rule.Name,
				"key", key,
				"hits", result.Hits,
				"retry_after", waitSeconds,
			)
			response.TooManyRequests(c, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds), waitSeconds)
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}
