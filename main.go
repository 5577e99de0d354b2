package main

import (
	"context"
	"fmt"
	"time"

	"checkout-pay/biz/handlers"
	"checkout-pay/cache"
	"checkout-pay/common"
	"checkout-pay/conf"
	"checkout-pay/db"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// 缺少 Stripe 密钥时直接失败，不带坏配置启动
	if err := conf.Init(); err != nil {
		panic(err)
	}
	initLogger()

	// 数据库和缓存都是可选依赖，连不上降级运行
	dbReady := initOptional("database", db.Init)
	cacheReady := initOptional("redis cache", cache.Init) && cache.IsAvailable()

	cfg := conf.GetConf()
	h := server.Default(server.WithHostPorts(cfg.Server.Host + ":" + cfg.Server.Port))

	registerMiddleware(h)
	registerRoutes(h)
	// ErrorHandler 处理 c.Errors，必须在路由注册之后挂
	h.Use(common.ErrorHandler())

	setupGracefulShutdown(h, dbReady, cacheReady)

	zap.L().Info("Server starting",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port))

	// Spin() 阻塞运行，收到 SIGINT / SIGTERM 后排空在途请求再返回
	h.Spin()

	zap.L().Info("Server stopped, performing cleanup...")
	if dbReady {
		db.Close()
	}
	if cacheReady {
		cache.Close()
	}
	_ = zap.L().Sync()
}

// initOptional 初始化可选依赖，失败只告警
func initOptional(name string, init func() error) bool {
	if err := init(); err != nil {
		zap.L().Warn("Optional dependency unavailable, continuing without it",
			zap.String("dependency", name), zap.Error(err))
		return false
	}
	return true
}

func registerMiddleware(h *server.Hertz) {
	// 全局 CORS 头放在最前，保证错误响应也带上
	h.Use(corsHeaders)
	h.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	h.Use(common.MetricsMiddleware())
	h.Use(common.RequestLogger())
	h.Use(common.RateLimitMiddleware())
	h.Use(common.RecoveryHandler())
}

// corsHeaders 浏览器直连的结账页需要宽松 CORS；预检请求就地应答
func corsHeaders(ctx context.Context, c *app.RequestContext) {
	origin := string(c.Request.Header.Get("Origin"))
	if origin == "" {
		origin = "*"
	}
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Accept")
	c.Header("Access-Control-Max-Age", "43200")

	if string(c.Request.Method()) == "OPTIONS" {
		c.JSON(consts.StatusOK, utils.H{})
		c.Abort()
		return
	}
	c.Next(ctx)
}

func registerRoutes(h *server.Hertz) {
	h.GET("/ping", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, utils.H{"message": "pong"})
	})
	h.GET("/health", handlers.HealthCheck)
	h.GET("/metrics", common.MetricsHandler)

	// 支付意向接口，限流中间件对这两个路径用更严格的窗口
	api := h.Group("/api")
	api.POST("/create-payment-intent", handlers.CreatePaymentIntent)
	api.POST("/confirm-payment", handlers.ConfirmPayment)
}

func setupGracefulShutdown(h *server.Hertz, dbReady, cacheReady bool) {
	sm := common.NewShutdownManager(h)
	if dbReady {
		sm.RegisterShutdownFunc(common.CreateShutdownFunc("database", func() error {
			return db.Close()
		}))
	}
	if cacheReady {
		sm.RegisterShutdownFunc(common.CreateShutdownFunc("redis", func() error {
			return cache.Close()
		}))
	}
	sm.StartGracefulShutdown()
}

var zapLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

var hlogLevels = map[zapcore.Level]hlog.Level{
	zapcore.DebugLevel: hlog.LevelDebug,
	zapcore.InfoLevel:  hlog.LevelInfo,
	zapcore.WarnLevel:  hlog.LevelWarn,
	zapcore.ErrorLevel: hlog.LevelError,
}

// initLogger 按环境构建 zap 全局 logger，并对齐 Hertz 自身的日志级别
func initLogger() {
	logCfg := conf.GetConf().Log

	level, ok := zapLevels[logCfg.Level]
	if !ok {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if logCfg.Environment == "production" {
		zc = zap.NewProductionConfig()
		zc.Encoding = "console"
		if logCfg.Output == "json" {
			zc.Encoding = "json"
		}
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.DisableStacktrace = level > zapcore.ErrorLevel
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		panic(fmt.Errorf("failed to initialize logger: %w", err))
	}
	zap.ReplaceGlobals(logger)

	if hl, ok := hlogLevels[level]; ok {
		hlog.SetLevel(hl)
	}

	zap.L().Info("Logger initialized",
		zap.String("environment", logCfg.Environment),
		zap.String("level", logCfg.Level),
		zap.String("output", logCfg.Output))
}
