package checkout

import (
	"context"
	"sync"
	"time"

	"checkout-pay/biz/models"

	"go.uber.org/zap"
)

// State 结账会话状态
type State int

const (
	StateIdle       State = iota // 无金额或金额未变化
	StateDebouncing              // 防抖计时器已启动
	StateCreating                // create-intent 请求进行中
	StateReady                   // 已拿到 clientSecret，等待用户提交支付方式
	StateConfirming              // confirm-intent 请求进行中
	StateSucceeded               // 支付完成
	StateFailed                  // create-intent 失败，用户重新编辑金额可重试
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	case StateConfirming:
		return "confirming"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Client 结账会话访问后端意向服务的接口
type Client interface {
	CreateIntent(ctx context.Context, amount float64) (*models.CreateIntentResponse, error)
	ConfirmIntent(ctx context.Context, paymentIntentID string, billing *models.BillingDetails) (*models.ConfirmIntentResponse, error)
}

// DefaultDebounceDelay 默认防抖延迟。首次输入和后续修改统一走防抖
const DefaultDebounceDelay = 1000 * time.Millisecond

// Config 会话配置
type Config struct {
	DebounceDelay time.Duration      // 防抖延迟，0 使用默认值
	SuccessPath   string             // 支付成功后跳转路径
	Navigate      func(path string)  // 跳转回调
	Notify        func(message string) // 非阻塞提示回调（确认入账失败等）
}

// Session 单次结账会话，持有从金额输入到支付确认的全部状态
// 会话随页面创建，页面离开时必须 Close 以取消未触发的防抖计时器。
// 计时器和网络回调在各自的 goroutine 上执行，状态由互斥锁串行化
type Session struct {
	mu sync.Mutex

	client Client
	cfg    Config

	state               State
	lastConfirmedAmount float64
	clientSecret        string
	paymentIntentID     string

	timer    *time.Timer
	timerGen uint64 // 每次重新布防递增，失效掉旧计时器的触发

	confirmed bool // confirm-intent 只发起一次
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession 创建结账会话
func NewSession(client Client, cfg Config) *Session {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	if cfg.SuccessPath == "" {
		cfg.SuccessPath = "/payment-success"
	}
	if cfg.Navigate == nil {
		cfg.Navigate = func(path string) {
			zap.L().Info("Session: navigation requested", zap.String("path", path))
		}
	}
	if cfg.Notify == nil {
		cfg.Notify = func(message string) {
			zap.L().Warn("Session: notice", zap.String("message", message))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		client: client,
		cfg:    cfg,
		state:  StateIdle,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnAmountChanged 金额输入变化
// 请求进行中或金额未变化时不做任何事；非正金额立即清空 clientSecret 回到 Idle；
// 其余情况重新布防防抖计时器，窗口内只有最后一次编辑会触发 create-intent
func (s *Session) OnAmountChanged(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	// 互斥保护：同一时刻最多一个 create-intent 在途
	if s.state == StateCreating {
		zap.L().Debug("Session: create in flight, ignoring amount change",
			zap.Float64("amount", amount))
		return
	}

	// 取消之前布防的计时器
	s.stopTimerLocked()

	// 金额未变化，避免每次按键都重建意向
	if amount == s.lastConfirmedAmount {
		return
	}

	if amount <= 0 {
		zap.L().Debug("Session: non-positive amount, clearing client secret",
			zap.Float64("amount", amount))
		s.clientSecret = ""
		s.paymentIntentID = ""
		s.lastConfirmedAmount = amount
		s.state = StateIdle
		return
	}

	s.state = StateDebouncing
	s.timerGen++
	gen := s.timerGen
	s.timer = time.AfterFunc(s.cfg.DebounceDelay, func() {
		s.onDebounceFired(gen, amount)
	})
}

// onDebounceFired 防抖计时器触发，发起 create-intent
func (s *Session) onDebounceFired(gen uint64, amount float64) {
	s.mu.Lock()

	// 计时器已被新的编辑取代，或会话已结束
	if s.closed || gen != s.timerGen || s.state != StateDebouncing {
		s.mu.Unlock()
		return
	}

	s.state = StateCreating
	s.lastConfirmedAmount = amount
	s.mu.Unlock()

	zap.L().Info("Session: creating payment intent", zap.Float64("amount", amount))
	resp, err := s.client.CreateIntent(s.ctx, amount)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	// 在途期间金额又被提交过，丢弃过期响应
	if amount != s.lastConfirmedAmount {
		zap.L().Debug("Session: discarding stale create-intent response",
			zap.Float64("request_amount", amount),
			zap.Float64("current_amount", s.lastConfirmedAmount))
		if s.state == StateCreating {
			s.state = StateIdle
		}
		return
	}

	if err != nil {
		zap.L().Warn("Session: create-intent failed", zap.Error(err))
		// 失败时清空 secret，避免展示过期的支付表单
		s.clientSecret = ""
		s.paymentIntentID = ""
		s.state = StateFailed
		return
	}

	s.clientSecret = resp.ClientSecret
	s.paymentIntentID = resp.PaymentIntentID
	s.state = StateReady
	zap.L().Info("Session: payment intent ready",
		zap.String("payment_intent_id", resp.PaymentIntentID))
}

// OnPaymentConfirmedByGateway 网关报告支付成功后调用
// 只对当前绑定到表单的意向确认一次。后端确认失败不重试：款项已在网关侧
// 入账，这是记账问题而不是支付失败，只给用户一个非阻塞提示
func (s *Session) OnPaymentConfirmedByGateway(paymentIntentID string, billing *models.BillingDetails) {
	s.mu.Lock()

	if s.closed || s.confirmed {
		s.mu.Unlock()
		return
	}
	if s.state != StateReady || paymentIntentID != s.paymentIntentID {
		zap.L().Warn("Session: confirm rejected",
			zap.String("state", s.state.String()),
			zap.String("payment_intent_id", paymentIntentID))
		s.mu.Unlock()
		return
	}

	s.confirmed = true
	s.state = StateConfirming
	s.mu.Unlock()

	zap.L().Info("Session: confirming payment with backend",
		zap.String("payment_intent_id", paymentIntentID))
	resp, err := s.client.ConfirmIntent(s.ctx, paymentIntentID, billing)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.state = StateSucceeded

	if err != nil {
		zap.L().Warn("Session: backend confirmation failed after gateway success",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err))
		s.cfg.Notify("Payment successful but couldn't save details. Please contact support.")
		return
	}

	zap.L().Info("Session: payment fully confirmed",
		zap.String("payment_intent_id", resp.PaymentIntentID),
		zap.String("status", resp.Status))
	s.cfg.Navigate(s.cfg.SuccessPath)
}

// Close 结束会话，取消未触发的防抖计时器和在途请求的后续处理
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.cancel()
}

// stopTimerLocked 停掉当前计时器，必须持锁调用
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ClientSecret 当前绑定的 client secret，没有则为空串
func (s *Session) ClientSecret() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientSecret
}

// PaymentIntentID 当前绑定的意向ID
func (s *Session) PaymentIntentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentIntentID
}

// LastConfirmedAmount 最近一次提交（创建过意向或清空）的金额
func (s *Session) LastConfirmedAmount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastConfirmedAmount
}

// IsLoading create-intent 或 confirm-intent 是否在途
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCreating || s.state == StateConfirming
}
