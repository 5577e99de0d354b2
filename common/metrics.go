package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

// HTTP 层指标
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status_code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path", "status_code"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Total number of errors",
	}, []string{"type", "error_code"})

	rateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_hits_total",
		Help: "Total number of rate limit hits",
	}, []string{"limit_type", "path"})
)

// 支付意向指标。网关往返慢，桶比 HTTP 层粗
var (
	intentOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intent_operations_total",
		Help: "Total number of payment intent operations",
	}, []string{"operation", "status"})

	intentOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_intent_operation_duration_seconds",
		Help:    "Payment intent operation duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation", "status"})

	intentAmountCents = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_intent_amount_cents",
		Help:    "Payment intent amount in minor units",
		Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
	}, []string{"currency"})
)

// 存储层指标
var (
	dbQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_queries_total",
		Help: "Total number of database queries",
	}, []string{"operation", "table", "status"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Database query duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation", "table"})

	redisOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_operations_total",
		Help: "Total number of Redis operations",
	}, []string{"operation", "status"})

	redisOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redis_operation_duration_seconds",
		Help:    "Redis operation duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"operation", "status"})
)

// MetricsMiddleware 按请求记录计数和耗时，5xx/4xx 额外进错误计数
func MetricsMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		c.Next(ctx)

		method := string(c.Method())
		path := string(c.Path())
		status := strconv.Itoa(c.Response.StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

		switch {
		case c.Response.StatusCode() >= 500:
			errorsTotal.WithLabelValues("http_error", status).Inc()
		case c.Response.StatusCode() >= 400:
			errorsTotal.WithLabelValues("client_error", status).Inc()
		}
	}
}

// RecordIntentOperation 记录一次支付意向操作（create / confirm）
func RecordIntentOperation(operation, status string, amount int64, currency string, duration time.Duration) {
	intentOpsTotal.WithLabelValues(operation, status).Inc()
	intentOpDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	if amount > 0 {
		intentAmountCents.WithLabelValues(currency).Observe(float64(amount))
	}
	if status == "error" {
		errorsTotal.WithLabelValues("gateway_error", operation).Inc()
	}
}

// RecordRateLimitHit 记录速率限制命中
func RecordRateLimitHit(limitType, path string) {
	rateLimitHits.WithLabelValues(limitType, path).Inc()
}

// RecordDBQuery 记录数据库查询
func RecordDBQuery(operation, table, status string, duration time.Duration) {
	dbQueriesTotal.WithLabelValues(operation, table, status).Inc()
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if status == "error" {
		errorsTotal.WithLabelValues("db_error", operation).Inc()
	}
}

// RecordRedisOperation 记录 Redis 操作
func RecordRedisOperation(operation, status string, duration time.Duration) {
	redisOpsTotal.WithLabelValues(operation, status).Inc()
	redisOpDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	if status == "error" {
		errorsTotal.WithLabelValues("redis_error", operation).Inc()
	}
}

// MetricsHandler Prometheus 文本格式导出
func MetricsHandler(ctx context.Context, c *app.RequestContext) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		zap.L().Error("Failed to gather metrics", zap.Error(err))
		c.SetStatusCode(500)
		c.Write([]byte("failed to gather metrics\n"))
		return
	}

	var out strings.Builder
	for _, mf := range families {
		writeFamily(&out, mf)
	}

	c.SetStatusCode(200)
	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.Write([]byte(out.String()))
}

// writeFamily 输出单个指标族：HELP、TYPE 和每个样本
func writeFamily(out *strings.Builder, mf *dto.MetricFamily) {
	name := mf.GetName()
	if help := mf.GetHelp(); help != "" {
		fmt.Fprintf(out, "# HELP %s %s\n", name, help)
	}
	fmt.Fprintf(out, "# TYPE %s %s\n", name, mf.GetType().String())

	for _, m := range mf.Metric {
		fmt.Fprintf(out, "%s%s %v\n", name, formatLabels(m.Label), sampleValue(mf.GetType(), m))
	}
	out.WriteString("\n")
}

// formatLabels 标签序列化为 {k="v",...}
func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, lp := range labels {
		parts[i] = fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// sampleValue 取样本值。直方图和摘要只导出样本数
func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	case dto.MetricType_SUMMARY:
		return float64(m.GetSummary().GetSampleCount())
	}
	return 0
}
