package services

import (
	"context"
	"fmt"
	"time"

	"checkout-pay/biz"
	"checkout-pay/biz/models"
	"checkout-pay/cache"
	"checkout-pay/common"
	"checkout-pay/conf"
	"checkout-pay/db"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/paymentintent"
	"go.uber.org/zap"
)

// 支付意向固定的商户信息，随每个意向写入网关
const (
	intentCurrency    = "usd"
	intentDescription = "Apa High Income Opportunity Fund, L.p."
	intentCompany     = "Apa High Income Opportunity Fund, L.p."
	intentService     = "Real Estate Services"
)

// IntentService 支付意向服务，封装网关的创建和确认操作
type IntentService struct {
	cfg *conf.Config
}

// NewIntentService 创建支付意向服务
func NewIntentService() *IntentService {
	return &IntentService{
		cfg: conf.GetConf(),
	}
}

// CreateIntent 创建支付意向
// 金额为主单位（美元），内部转换为最小单位（美分）后传给网关。
// 结账页不允许跳转类支付方式，禁用 redirect
func (s *IntentService) CreateIntent(ctx context.Context, amount float64) (*models.CreateIntentResponse, error) {
	zap.L().Info("Service: CreateIntent started", zap.Float64("amount", amount))

	if err := biz.ValidateAmount(amount); err != nil {
		zap.L().Warn("Service: Invalid amount", zap.Float64("amount", amount), zap.Error(err))
		return nil, common.NewInvalidInput("Valid amount is required")
	}

	amountInCents := biz.MinorUnits(amount)
	zap.L().Debug("Service: Converted amount to minor units",
		zap.Float64("amount", amount),
		zap.Int64("amount_in_cents", amountInCents))

	// 设置Stripe密钥
	stripe.Key = s.cfg.Stripe.SecretKey

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amountInCents),
		Currency:    stripe.String(intentCurrency),
		Description: stripe.String(intentDescription),
		Metadata: map[string]string{
			"company": intentCompany,
			"service": intentService,
		},
		// 启用自动支付方式，但禁用跳转类（结账流程不离开当前页面）
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}

	startTime := time.Now()
	intent, err := paymentintent.New(params)
	duration := time.Since(startTime)

	if err != nil {
		zap.L().Error("Service: Failed to create PaymentIntent",
			zap.Int64("amount_in_cents", amountInCents),
			zap.Error(err))
		common.RecordIntentOperation("create", "error", amountInCents, intentCurrency, duration)
		return nil, common.NewGatewayError(gatewayMessage(err))
	}

	common.RecordIntentOperation("create", "ok", amountInCents, intentCurrency, duration)

	// 日志中只输出 client secret 的截断前缀
	zap.L().Info("Service: PaymentIntent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("status", string(intent.Status)),
		zap.String("client_secret_prefix", common.TruncateSecret(intent.ClientSecret)))

	// 缓存意向状态（异步，不阻塞响应）
	if cache.IsAvailable() {
		go cacheIntentStatus(intent)
	}

	return &models.CreateIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// ConfirmIntent 确认支付
// 只读操作：从网关获取意向并返回其当前状态，不改变网关侧状态，天然幂等。
// 账单信息如有提供则交给存储层持久化，存储不可用时仅确认收到
func (s *IntentService) ConfirmIntent(ctx context.Context, paymentIntentID string, billing *models.BillingDetails) (*models.ConfirmIntentResponse, error) {
	zap.L().Info("Service: ConfirmIntent started",
		zap.String("payment_intent_id", paymentIntentID),
		zap.Bool("has_billing_details", billing != nil))

	if paymentIntentID == "" {
		zap.L().Warn("Service: Missing paymentIntentId")
		return nil, common.NewInvalidInput("Payment Intent ID is required")
	}

	// 终态意向的确认结果可以直接走缓存，省去网关往返
	if cache.IsAvailable() {
		cached, err := cache.GetIntentStatus(ctx, paymentIntentID)
		if err == nil && cached != nil && cache.IsFinalStatus(cached.Status) {
			zap.L().Info("Service: Final status cache hit, skipping gateway",
				zap.String("payment_intent_id", paymentIntentID),
				zap.String("status", cached.Status))
			s.persistBilling(paymentIntentID, cached.Status, cached.Amount, cached.Currency, billing)
			return &models.ConfirmIntentResponse{
				Success:         true,
				Status:          cached.Status,
				PaymentIntentID: paymentIntentID,
			}, nil
		}
	}

	// 从网关获取支付信息
	stripe.Key = s.cfg.Stripe.SecretKey

	startTime := time.Now()
	intent, err := paymentintent.Get(paymentIntentID, nil)
	duration := time.Since(startTime)

	if err != nil {
		zap.L().Error("Service: Failed to retrieve PaymentIntent",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err))
		common.RecordIntentOperation("confirm", "error", 0, intentCurrency, duration)
		return nil, common.NewGatewayError(gatewayMessage(err))
	}

	common.RecordIntentOperation("confirm", "ok", intent.Amount, string(intent.Currency), duration)

	zap.L().Info("Service: PaymentIntent retrieved",
		zap.String("payment_intent_id", intent.ID),
		zap.String("status", string(intent.Status)),
		zap.Int64("amount", intent.Amount))

	// 更新意向状态缓存（异步）
	if cache.IsAvailable() {
		go cacheIntentStatus(intent)
	}

	s.persistBilling(intent.ID, string(intent.Status), intent.Amount, string(intent.Currency), billing)

	return &models.ConfirmIntentResponse{
		Success:         true,
		Status:          string(intent.Status),
		PaymentIntentID: intent.ID,
	}, nil
}

// persistBilling 持久化账单信息和确认审计记录。存储不可用时静默跳过
func (s *IntentService) persistBilling(paymentIntentID, status string, amount int64, currency string, billing *models.BillingDetails) {
	if db.DB == nil {
		if billing != nil {
			zap.L().Debug("Service: Database not configured, billing details acknowledged without persistence",
				zap.String("payment_intent_id", paymentIntentID))
		}
		return
	}

	if err := db.SaveConfirmation(paymentIntentID, status, amount, currency, billing); err != nil {
		// 持久化失败不影响确认结果，支付已在网关侧完成
		zap.L().Warn("Service: Failed to persist confirmation record",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err))
	}
}

// cacheIntentStatus 缓存意向状态，TTL由状态是否为终态决定
func cacheIntentStatus(intent *stripe.PaymentIntent) {
	data := &cache.IntentStatusCacheData{
		PaymentIntentID: intent.ID,
		Status:          string(intent.Status),
		Amount:          intent.Amount,
		Currency:        string(intent.Currency),
		CachedAt:        time.Now().Format(time.RFC3339),
	}
	ttl := cache.GetIntentStatusTTL(string(intent.Status))
	if err := cache.SetIntentStatus(context.Background(), intent.ID, data, ttl); err != nil {
		zap.L().Debug("Failed to cache intent status",
			zap.String("payment_intent_id", intent.ID),
			zap.Error(err))
	}
}

// gatewayMessage 提取网关错误消息，透传给调用方
func gatewayMessage(err error) string {
	if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return fmt.Sprintf("payment gateway error: %v", err)
}
