package common

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"go.uber.org/zap"
)

// 关闭钩子的总超时，超时后不再等待剩余钩子
const shutdownTimeout = 30 * time.Second

// ShutdownHook 一个关闭步骤
type ShutdownHook func(context.Context) error

// ShutdownManager 监听退出信号并执行注册的关闭钩子
type ShutdownManager struct {
	srv   *server.Hertz
	mu    sync.Mutex
	hooks []ShutdownHook
	fired bool
}

// NewShutdownManager 创建关闭管理器
func NewShutdownManager(srv *server.Hertz) *ShutdownManager {
	return &ShutdownManager{srv: srv}
}

// RegisterShutdownFunc 注册关闭钩子
func (m *ShutdownManager) RegisterShutdownFunc(hook ShutdownHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, hook)
	m.mu.Unlock()
}

// IsShuttingDown 是否已进入关闭流程
func (m *ShutdownManager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}

// StartGracefulShutdown 后台监听 SIGINT / SIGTERM
// Hertz 的 Spin() 收到信号后自己停止接收新请求并排空在途请求，
// 这里只负责额外资源（数据库、缓存连接）的关闭
func (m *ShutdownManager) StartGracefulShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		zap.L().Info("Received shutdown signal", zap.String("signal", sig.String()))

		m.mu.Lock()
		if m.fired {
			m.mu.Unlock()
			return
		}
		m.fired = true
		hooks := append([]ShutdownHook(nil), m.hooks...)
		m.mu.Unlock()

		m.runHooks(hooks)
	}()
}

// runHooks 并发执行所有钩子，整体受 shutdownTimeout 约束
func (m *ShutdownManager) runHooks(hooks []ShutdownHook) {
	zap.L().Info("Starting graceful shutdown...", zap.Int("hooks", len(hooks)))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for _, hook := range hooks {
			wg.Add(1)
			go func(h ShutdownHook) {
				defer wg.Done()
				if err := h(ctx); err != nil {
					zap.L().Warn("Shutdown hook error", zap.Error(err))
				}
			}(hook)
		}
		wg.Wait()
	}()

	select {
	case <-done:
		zap.L().Info("All shutdown hooks completed")
	case <-ctx.Done():
		zap.L().Warn("Shutdown timeout exceeded, giving up on remaining hooks",
			zap.Duration("timeout", shutdownTimeout))
	}

	_ = zap.L().Sync()
}

// CreateShutdownFunc 把一个普通的关闭函数包装成带名字、带超时的钩子
func CreateShutdownFunc(name string, fn func() error) ShutdownHook {
	return func(ctx context.Context) error {
		zap.L().Info("Running shutdown hook", zap.String("name", name))

		result := make(chan error, 1)
		go func() { result <- fn() }()

		select {
		case err := <-result:
			if err != nil {
				return fmt.Errorf("%s shutdown failed: %w", name, err)
			}
			zap.L().Info("Shutdown hook completed", zap.String("name", name))
			return nil
		case <-ctx.Done():
			zap.L().Warn("Shutdown hook timed out", zap.String("name", name))
			return ctx.Err()
		}
	}
}
