package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"checkout-pay/biz/models"
)

const testIntentID = "pi_1234567890abcdefghijklmn"

// fakeClient 计数用的假后端客户端
type fakeClient struct {
	mu            sync.Mutex
	createCalls   int
	confirmCalls  int
	createAmounts []float64
	createErr     error
	confirmErr    error
	blockCreate   chan struct{} // 非 nil 时 CreateIntent 阻塞直到关闭
}

func (f *fakeClient) CreateIntent(ctx context.Context, amount float64) (*models.CreateIntentResponse, error) {
	f.mu.Lock()
	f.createCalls++
	n := f.createCalls
	f.createAmounts = append(f.createAmounts, amount)
	block := f.blockCreate
	err := f.createErr
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &models.CreateIntentResponse{
		ClientSecret:    fmt.Sprintf("%s_secret_%d", testIntentID, n),
		PaymentIntentID: testIntentID,
	}, nil
}

func (f *fakeClient) ConfirmIntent(ctx context.Context, paymentIntentID string, billing *models.BillingDetails) (*models.ConfirmIntentResponse, error) {
	f.mu.Lock()
	f.confirmCalls++
	err := f.confirmErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &models.ConfirmIntentResponse{
		Success:         true,
		Status:          "succeeded",
		PaymentIntentID: paymentIntentID,
	}, nil
}

func (f *fakeClient) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.confirmCalls
}

// waitForState 轮询等待会话到达目标状态
func waitForState(t *testing.T, s *Session, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session state = %v, want %v", s.State(), want)
}

// TestSessionDebounceSingleCreate 防抖窗口内多次编辑只触发一次创建
func TestSessionDebounceSingleCreate(t *testing.T) {
	fc := &fakeClient{}
	s := NewSession(fc, Config{DebounceDelay: 30 * time.Millisecond})
	defer s.Close()

	s.OnAmountChanged(1.00)
	s.OnAmountChanged(12.00)
	s.OnAmountChanged(19.99)

	waitForState(t, s, StateReady, time.Second)

	creates, _ := fc.counts()
	if creates != 1 {
		t.Errorf("createCalls = %d, want 1", creates)
	}
	if len(fc.createAmounts) != 1 || fc.createAmounts[0] != 19.99 {
		t.Errorf("createAmounts = %v, want [19.99]", fc.createAmounts)
	}
	if s.ClientSecret() == "" {
		t.Error("client secret not set after create")
	}
	if s.PaymentIntentID() != testIntentID {
		t.Errorf("paymentIntentID = %q, want %q", s.PaymentIntentID(), testIntentID)
	}
}

// TestSessionUnchangedAmountNoop 金额未变化时不重建意向
func TestSessionUnchangedAmountNoop(t *testing.T) {
	fc := &fakeClient{}
	s := NewSession(fc, Config{DebounceDelay: 20 * time.Millisecond})
	defer s.Close()

	s.OnAmountChanged(10.00)
	waitForState(t, s, StateReady, time.Second)

	// 同样的金额再次输入
	s.OnAmountChanged(10.00)
	time.Sleep(80 * time.Millisecond)

	creates, _ := fc.counts()
	if creates != 1 {
		t.Errorf("createCalls = %d, want 1", creates)
	}
	if s.State() != StateReady {
		t.Errorf("state = %v, want %v", s.State(), StateReady)
	}
}

// TestSessionNonPositiveAmountClearsSecret 非正金额清空 secret 且不请求后端
func TestSessionNonPositiveAmountClearsSecret(t *testing.T) {
	fc := &fakeClient{}
	s := NewSession(fc, Config{DebounceDelay: 20 * time.Millisecond})
	defer s.Close()

	s.OnAmountChanged(10.00)
	waitForState(t, s, StateReady, time.Second)

	s.OnAmountChanged(0)
	time.Sleep(80 * time.Millisecond)

	if s.ClientSecret() != "" {
		t.Errorf("client secret = %q, want empty", s.ClientSecret())
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want %v", s.State(), StateIdle)
	}
	creates, _ := fc.counts()
	if creates != 1 {
		t.Errorf("createCalls = %d, want 1 (non-positive amount must not hit backend)", creates)
	}
}

// TestSessionCreateInFlightMutualExclusion 创建在途时编辑金额是空操作
func TestSessionCreateInFlightMutualExclusion(t *testing.T) {
	block := make(chan struct{})
	fc := &fakeClient{blockCreate: block}
	s := NewSession(fc, Config{DebounceDelay: 10 * time.Millisecond})
	defer s.Close()

	s.OnAmountChanged(10.00)
	waitForState(t, s, StateCreating, time.Second)

	// 在途期间的编辑不应布防新计时器
	s.OnAmountChanged(25.00)
	s.OnAmountChanged(30.00)

	close(block)
	waitForState(t, s, StateReady, time.Second)
	time.Sleep(50 * time.Millisecond)

	creates, _ := fc.counts()
	if creates != 1 {
		t.Errorf("createCalls = %d, want 1", creates)
	}
	if s.LastConfirmedAmount() != 10.00 {
		t.Errorf("lastConfirmedAmount = %v, want 10.00", s.LastConfirmedAmount())
	}
}

// TestSessionCreateFailure 创建失败时清空 secret 并进入失败态，可重新编辑重试
func TestSessionCreateFailure(t *testing.T) {
	fc := &fakeClient{createErr: errors.New("gateway unavailable")}
	s := NewSession(fc, Config{DebounceDelay: 10 * time.Millisecond})
	defer s.Close()

	s.OnAmountChanged(10.00)
	waitForState(t, s, StateFailed, time.Second)

	if s.ClientSecret() != "" {
		t.Errorf("client secret = %q, want empty after failure", s.ClientSecret())
	}
	if s.IsLoading() {
		t.Error("IsLoading() = true after failed create")
	}

	// 恢复后重新编辑金额可以重试
	fc.mu.Lock()
	fc.createErr = nil
	fc.mu.Unlock()

	s.OnAmountChanged(12.00)
	waitForState(t, s, StateReady, time.Second)

	creates, _ := fc.counts()
	if creates != 2 {
		t.Errorf("createCalls = %d, want 2", creates)
	}
}

// TestSessionConfirmOnce 网关确认后只向后端确认一次并跳转成功页
func TestSessionConfirmOnce(t *testing.T) {
	var navigated []string
	fc := &fakeClient{}
	s := NewSession(fc, Config{
		DebounceDelay: 10 * time.Millisecond,
		Navigate:      func(path string) { navigated = append(navigated, path) },
	})
	defer s.Close()

	s.OnAmountChanged(10.00)
	waitForState(t, s, StateReady, time.Second)

	billing := &models.BillingDetails{Name: "Jane Doe"}
	s.OnPaymentConfirmedByGateway(testIntentID, billing)
	waitForState(t, s, StateSucceeded, time.Second)

	// 重复通知不再触发确认
	s.OnPaymentConfirmedByGateway(testIntentID, billing)
	time.Sleep(30 * time.Millisecond)

	_, confirms := fc.counts()
	if confirms != 1 {
		t.Errorf("confirmCalls = %d, want 1", confirms)
	}
	if len(navigated) != 1 || navigated[0] != "/payment-success" {
		t.Errorf("navigated = %v, want [/payment-success]", navigated)
	}
}

// TestSessionConfirmWrongIntentRejected 未绑定到表单的意向不允许确认
func TestSessionConfirmWrongIntentRejected(t *testing.T) {
	fc := &fakeClient{}
	s := NewSession(fc, Config{DebounceDelay: 10 * time.Millisecond})
	defer s.Close()

	s.OnAmountChanged(10.00)
	waitForState(t, s, StateReady, time.Second)

	s.OnPaymentConfirmedByGateway("pi_other567890abcdefghijklm", nil)
	time.Sleep(30 * time.Millisecond)

	_, confirms := fc.counts()
	if confirms != 0 {
		t.Errorf("confirmCalls = %d, want 0", confirms)
	}
	if s.State() != StateReady {
		t.Errorf("state = %v, want %v", s.State(), StateReady)
	}
}

// TestSessionConfirmBeforeReadyRejected 未拿到 clientSecret 前不允许确认
func TestSessionConfirmBeforeReadyRejected(t *testing.T) {
	fc := &fakeClient{}
	s := NewSession(fc, Config{DebounceDelay: 50 * time.Millisecond})
	defer s.Close()

	s.OnPaymentConfirmedByGateway(testIntentID, nil)
	time.Sleep(30 * time.Millisecond)

	_, confirms := fc.counts()
	if confirms != 0 {
		t.Errorf("confirmCalls = %d, want 0", confirms)
	}
}

// TestSessionConfirmBackendFailureNonBlocking 款项已入账时后端确认失败只提示不重试
func TestSessionConfirmBackendFailureNonBlocking(t *testing.T) {
	var notices []string
	var navigated []string
	fc := &fakeClient{confirmErr: errors.New("db unavailable")}
	s := NewSession(fc, Config{
		DebounceDelay: 10 * time.Millisecond,
		Navigate:      func(path string) { navigated = append(navigated, path) },
		Notify:        func(message string) { notices = append(notices, message) },
	})
	defer s.Close()

	s.OnAmountChanged(10.00)
	waitForState(t, s, StateReady, time.Second)

	s.OnPaymentConfirmedByGateway(testIntentID, nil)
	waitForState(t, s, StateSucceeded, time.Second)
	time.Sleep(30 * time.Millisecond)

	_, confirms := fc.counts()
	if confirms != 1 {
		t.Errorf("confirmCalls = %d, want 1 (no retry)", confirms)
	}
	if len(notices) != 1 {
		t.Errorf("notices = %v, want exactly one notice", notices)
	}
	if len(navigated) != 0 {
		t.Errorf("navigated = %v, want no navigation on backend failure", navigated)
	}
}

// TestSessionCloseCancelsTimer 关闭会话取消未触发的防抖计时器
func TestSessionCloseCancelsTimer(t *testing.T) {
	fc := &fakeClient{}
	s := NewSession(fc, Config{DebounceDelay: 30 * time.Millisecond})

	s.OnAmountChanged(10.00)
	s.Close()

	time.Sleep(100 * time.Millisecond)

	creates, _ := fc.counts()
	if creates != 0 {
		t.Errorf("createCalls = %d, want 0 after Close", creates)
	}
}

// TestSessionCloseDuringCreateDiscardsResponse 关闭会话后在途响应被丢弃
func TestSessionCloseDuringCreateDiscardsResponse(t *testing.T) {
	block := make(chan struct{})
	fc := &fakeClient{blockCreate: block}
	s := NewSession(fc, Config{DebounceDelay: 10 * time.Millisecond})

	s.OnAmountChanged(10.00)
	waitForState(t, s, StateCreating, time.Second)

	s.Close()
	close(block)
	time.Sleep(50 * time.Millisecond)

	if s.ClientSecret() != "" {
		t.Errorf("client secret = %q, want empty after Close", s.ClientSecret())
	}
}

// TestSessionDefaultDebounceDelay 零值配置使用默认防抖延迟
func TestSessionDefaultDebounceDelay(t *testing.T) {
	s := NewSession(&fakeClient{}, Config{})
	defer s.Close()

	if s.cfg.DebounceDelay != DefaultDebounceDelay {
		t.Errorf("DebounceDelay = %v, want %v", s.cfg.DebounceDelay, DefaultDebounceDelay)
	}
	if s.cfg.SuccessPath != "/payment-success" {
		t.Errorf("SuccessPath = %q, want /payment-success", s.cfg.SuccessPath)
	}
}
