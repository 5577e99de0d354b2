package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"checkout-pay/conf"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	client   *redis.Client
	initOnce sync.Once
)

// Init 建立 Redis 连接。未配置或连不上时降级为无缓存运行，不算错误
func Init() error {
	initOnce.Do(func() {
		cfg := conf.GetConf()
		if cfg.Redis.Address == "" {
			zap.L().Info("Redis not configured, caching disabled")
			return
		}

		addr := fmt.Sprintf("%s:%d", cfg.Redis.Address, cfg.Redis.Port)
		c := redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  time.Duration(cfg.Redis.DialTimeout) * time.Second,
			ReadTimeout:  time.Duration(cfg.Redis.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Redis.WriteTimeout) * time.Second,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Ping(ctx).Err(); err != nil {
			zap.L().Warn("Failed to connect to Redis, caching disabled", zap.Error(err))
			_ = c.Close()
			return
		}

		client = c
		zap.L().Info("Redis connected successfully",
			zap.String("address", addr),
			zap.Int("db", cfg.Redis.DB))
	})
	return nil
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// IsAvailable Redis 是否可用
func IsAvailable() bool {
	return client != nil
}

// GetClient 暴露底层客户端给限流等高级用法
func GetClient() *redis.Client {
	return client
}

// IntentStatusKeyPrefix 支付意向状态缓存键前缀
const IntentStatusKeyPrefix = "intent_status:"

// 缓存过期时间。终态不会再变化可以放心缓存，中间状态短缓存保证准确性
const (
	FinalStatusCacheTTL        = 5 * time.Minute
	IntermediateStatusCacheTTL = 10 * time.Second
)

// 网关侧不会再变化的状态
var finalStatuses = map[string]bool{
	"succeeded":        true,
	"canceled":         true,
	"requires_capture": true,
}

// 仍会流转的中间状态
var intermediateStatuses = map[string]bool{
	"requires_payment_method": true,
	"requires_confirmation":   true,
	"requires_action":         true,
	"processing":              true,
}

// IntentStatusCacheData 支付意向状态缓存内容
type IntentStatusCacheData struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	CachedAt        string `json:"cached_at"`
}

// GetIntentStatus 读意向状态缓存，未命中返回 (nil, nil)
func GetIntentStatus(ctx context.Context, paymentIntentID string) (*IntentStatusCacheData, error) {
	if !IsAvailable() {
		return nil, nil
	}

	raw, err := client.Get(ctx, IntentStatusKeyPrefix+paymentIntentID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		zap.L().Debug("Intent status cache read failed",
			zap.String("payment_intent_id", paymentIntentID), zap.Error(err))
		return nil, err
	}

	var data IntentStatusCacheData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		zap.L().Warn("Corrupt intent status cache entry",
			zap.String("payment_intent_id", paymentIntentID), zap.Error(err))
		return nil, err
	}
	return &data, nil
}

// SetIntentStatus 写意向状态缓存
func SetIntentStatus(ctx context.Context, paymentIntentID string, data *IntentStatusCacheData, ttl time.Duration) error {
	if !IsAvailable() {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal intent status cache: %w", err)
	}

	if err := client.Set(ctx, IntentStatusKeyPrefix+paymentIntentID, raw, ttl).Err(); err != nil {
		zap.L().Warn("Intent status cache write failed",
			zap.String("payment_intent_id", paymentIntentID), zap.Error(err))
		return err
	}
	return nil
}

// DeleteIntentStatus 删除意向状态缓存
func DeleteIntentStatus(ctx context.Context, paymentIntentID string) error {
	if !IsAvailable() {
		return nil
	}
	return client.Del(ctx, IntentStatusKeyPrefix+paymentIntentID).Err()
}

// IsFinalStatus 是否终态
func IsFinalStatus(status string) bool {
	return finalStatuses[status]
}

// IsIntermediateStatus 是否中间状态
func IsIntermediateStatus(status string) bool {
	return intermediateStatuses[status]
}

// GetIntentStatusTTL 按状态选缓存时长，未知状态按中间状态处理
func GetIntentStatusTTL(status string) time.Duration {
	if IsFinalStatus(status) {
		return FinalStatusCacheTTL
	}
	return IntermediateStatusCacheTTL
}
