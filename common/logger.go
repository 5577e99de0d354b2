package common

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger 请求日志中间件，入口和出口各记一条，出口带耗时和状态码
func RequestLogger() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		reqID := getRequestID(c)

		zap.L().Info("Request started",
			zap.String("method", string(c.Method())),
			zap.String("path", string(c.Path())),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", string(c.UserAgent())),
			zap.String("request_id", reqID))

		c.Next(ctx)

		status := c.Response.StatusCode()
		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}

		zap.L().Check(level, "Request completed").Write(
			zap.String("method", string(c.Method())),
			zap.String("path", string(c.Path())),
			zap.Int("status_code", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", reqID))
	}
}

// getRequestID 取请求ID：优先请求头，其次上下文，都没有就生成一个
func getRequestID(c *app.RequestContext) string {
	if id := string(c.GetHeader("X-Request-ID")); id != "" {
		return id
	}
	if v, ok := c.Get("request_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}

	id := "req-" + uuid.NewString()
	c.Set("request_id", id)
	return id
}

// stageFields 各处理阶段日志的公共字段
func stageFields(c *app.RequestContext, stage string, extra []zap.Field) []zap.Field {
	fields := make([]zap.Field, 0, 4+len(extra))
	fields = append(fields,
		zap.String("stage", stage),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("request_id", getRequestID(c)))
	return append(fields, extra...)
}

// LogStage 记录处理阶段日志
func LogStage(c *app.RequestContext, stage string, fields ...zap.Field) {
	zap.L().Info("Processing stage", stageFields(c, stage, fields)...)
}

// LogStageWithLevel 记录处理阶段日志（指定级别）
func LogStageWithLevel(c *app.RequestContext, level zapcore.Level, stage string, fields ...zap.Field) {
	zap.L().Check(level, "Processing stage").Write(stageFields(c, stage, fields)...)
}

// TruncateSecret 截断敏感字符串（client secret、密钥等），日志中只输出前缀
func TruncateSecret(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}
