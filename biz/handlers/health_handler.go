package handlers

import (
	"context"
	"fmt"
	"time"

	"checkout-pay/cache"
	"checkout-pay/conf"
	"checkout-pay/db"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"
)

const probeTimeout = 3 * time.Second

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Services  map[string]string `json:"services"`
}

var (
	startTime = time.Now()
	version   = "1.0.0" // 构建时注入：-ldflags "-X checkout-pay/biz/handlers.version=..."
)

// HealthCheck 健康检查
// 数据库和 Redis 是可选依赖，不可达只降级上报；缺少网关密钥才算不健康
func HealthCheck(ctx context.Context, c *app.RequestContext) {
	services := map[string]string{
		"database": probeDatabase(ctx),
		"redis":    probeRedis(ctx),
	}

	status := "ok"
	if conf.GetConf().Stripe.SecretKey != "" {
		services["stripe"] = "configured"
	} else {
		services["stripe"] = "not configured"
		status = "unhealthy"
		zap.L().Warn("Stripe secret key not configured")
	}

	code := consts.StatusOK
	if status == "unhealthy" {
		code = consts.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    formatUptime(time.Since(startTime)),
		Services:  services,
	})
}

func probeDatabase(ctx context.Context) string {
	if db.DB == nil {
		return "not configured"
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := db.DB.PingContext(ctx); err != nil {
		zap.L().Error("Database health check failed", zap.Error(err))
		return "disconnected"
	}
	return "connected"
}

func probeRedis(ctx context.Context) string {
	if !cache.IsAvailable() {
		return "not configured"
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := cache.GetClient().Ping(ctx).Err(); err != nil {
		zap.L().Error("Redis health check failed", zap.Error(err))
		return "disconnected"
	}
	return "connected"
}

// formatUptime 运行时长的紧凑格式，如 3d2h15m4s
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh%dm%ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
