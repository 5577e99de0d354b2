package common

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"checkout-pay/cache"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig 单个限流窗口
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// 全局按IP限流，支付接口单独一档更严格的窗口
var (
	globalLimit  = RateLimitConfig{Limit: 100, Window: time.Minute}
	paymentLimit = RateLimitConfig{Limit: 20, Window: time.Minute}
)

// 支付接口路径，命中 paymentLimit
var paymentPaths = map[string]bool{
	"/api/create-payment-intent": true,
	"/api/confirm-payment":       true,
}

// 限流不拦截的路径
var exemptPaths = map[string]bool{
	"/ping":    true,
	"/health":  true,
	"/metrics": true,
}

// memoryWindow Redis 不可用时的进程内滑动窗口
type memoryWindow struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

var memWindow = &memoryWindow{entries: make(map[string][]time.Time)}

// allow 进程内滑动窗口判定，返回是否放行和当前计数
func (w *memoryWindow) allow(key string, cfg RateLimitConfig) (bool, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := time.Now().Add(-cfg.Window)
	kept := w.entries[key][:0]
	for _, t := range w.entries[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= cfg.Limit {
		w.entries[key] = kept
		return false, len(kept)
	}

	kept = append(kept, time.Now())
	w.entries[key] = kept
	return true, len(kept)
}

// allowRedis Redis 滑动窗口：ZSET 按时间戳记请求，窗口外的成员清掉
func allowRedis(ctx context.Context, key string, cfg RateLimitConfig) (bool, int, error) {
	client := cache.GetClient()
	if client == nil {
		return false, 0, fmt.Errorf("redis client not available")
	}

	now := time.Now()
	cutoff := now.Add(-cfg.Window)

	start := time.Now()
	count, err := client.ZCount(ctx, key,
		strconv.FormatInt(cutoff.Unix(), 10),
		strconv.FormatInt(now.Unix(), 10)).Result()
	if err != nil {
		RecordRedisOperation("ratelimit_zcount", "error", time.Since(start))
		return false, 0, err
	}
	RecordRedisOperation("ratelimit_zcount", "ok", time.Since(start))

	if int(count) >= cfg.Limit {
		return false, int(count), nil
	}

	// 记录本次请求并顺手清理窗口外的旧成员
	pipe := client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.Unix()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.Unix(), 10))
	pipe.Expire(ctx, key, cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Warn("Rate limit pipeline failed", zap.Error(err))
	}

	return true, int(count) + 1, nil
}

// checkLimit Redis 优先，失败降级到进程内窗口
func checkLimit(ctx context.Context, key string, cfg RateLimitConfig) (bool, int) {
	if cache.IsAvailable() {
		allowed, count, err := allowRedis(ctx, key, cfg)
		if err == nil {
			return allowed, count
		}
		zap.L().Warn("Redis rate limit check failed, falling back to memory", zap.Error(err))
	}
	return memWindow.allow(key, cfg)
}

// writeLimitHeaders 标准限流响应头
func writeLimitHeaders(c *app.RequestContext, cfg RateLimitConfig, count int) {
	remaining := cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(cfg.Window).Unix(), 10))
}

// RateLimitMiddleware 按IP滑动窗口限流，支付接口用更严格的窗口
func RateLimitMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		path := string(c.Path())
		if exemptPaths[path] {
			c.Next(ctx)
			return
		}

		cfg, limitType := globalLimit, "ip"
		if paymentPaths[path] {
			cfg, limitType = paymentLimit, "payment"
		}

		clientIP := c.ClientIP()
		key := fmt.Sprintf("ratelimit:%s:%s", clientIP, path)
		allowed, count := checkLimit(ctx, key, cfg)
		writeLimitHeaders(c, cfg, count)

		if !allowed {
			RecordRateLimitHit(limitType, path)
			zap.L().Warn("Rate limit exceeded",
				zap.String("ip", clientIP),
				zap.String("path", path),
				zap.Int("count", count),
				zap.Int("limit", cfg.Limit))

			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			c.JSON(consts.StatusTooManyRequests, utils.H{
				"error":   "Rate limit exceeded. Please try again later.",
				"details": fmt.Sprintf("Maximum %d requests per %v allowed", cfg.Limit, cfg.Window),
			})
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
