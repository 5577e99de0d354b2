package handlers

import (
	"context"
	"sync"

	"checkout-pay/biz"
	"checkout-pay/biz/models"
	"checkout-pay/biz/services"
	"checkout-pay/common"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	intentService     *services.IntentService
	intentServiceOnce sync.Once
)

// getIntentService 获取支付意向服务（懒加载）
func getIntentService() *services.IntentService {
	intentServiceOnce.Do(func() {
		intentService = services.NewIntentService()
	})
	return intentService
}

// CreatePaymentIntent 创建支付意向
// POST /api/create-payment-intent  body: { amount }
func CreatePaymentIntent(ctx context.Context, c *app.RequestContext) {
	common.LogStage(c, "request_received", zap.String("handler", "CreatePaymentIntent"))

	var req models.CreateIntentRequest
	if err := c.BindAndValidate(&req); err != nil {
		common.LogStageWithLevel(c, zapcore.WarnLevel, "bind_failed", zap.Error(err))
		common.SendError(c, common.NewInvalidInput("Valid amount is required"))
		return
	}

	// 金额校验在服务层再做一次，这里先挡掉明显非法的请求
	common.LogStage(c, "validating_amount", zap.Float64("amount", req.Amount))
	if err := biz.ValidateAmount(req.Amount); err != nil {
		common.LogStageWithLevel(c, zapcore.WarnLevel, "validation_failed",
			zap.Float64("amount", req.Amount), zap.Error(err))
		common.SendError(c, common.NewInvalidInput("Valid amount is required"))
		return
	}

	common.LogStage(c, "creating_intent", zap.Float64("amount", req.Amount))
	response, err := getIntentService().CreateIntent(ctx, req.Amount)
	if err != nil {
		common.LogStageWithLevel(c, zapcore.ErrorLevel, "intent_creation_failed", zap.Error(err))
		common.SendError(c, err)
		return
	}

	common.LogStage(c, "sending_response",
		zap.String("payment_intent_id", response.PaymentIntentID),
		zap.String("client_secret_prefix", common.TruncateSecret(response.ClientSecret)))
	c.JSON(consts.StatusOK, response)
}

// ConfirmPayment 确认支付
// POST /api/confirm-payment  body: { paymentIntentId, billingDetails? }
// 只读校验：从网关读取意向状态，重复调用安全
func ConfirmPayment(ctx context.Context, c *app.RequestContext) {
	common.LogStage(c, "request_received", zap.String("handler", "ConfirmPayment"))

	var req models.ConfirmIntentRequest
	if err := c.BindAndValidate(&req); err != nil {
		common.LogStageWithLevel(c, zapcore.WarnLevel, "bind_failed", zap.Error(err))
		common.SendError(c, common.NewInvalidInput("Payment Intent ID is required"))
		return
	}

	common.LogStage(c, "validating_intent_id", zap.String("payment_intent_id", req.PaymentIntentID))
	if req.PaymentIntentID == "" {
		common.LogStageWithLevel(c, zapcore.WarnLevel, "validation_failed",
			zap.String("reason", "paymentIntentId is required"))
		common.SendError(c, common.NewInvalidInput("Payment Intent ID is required"))
		return
	}
	if err := biz.ValidatePaymentIntentID(req.PaymentIntentID); err != nil {
		common.LogStageWithLevel(c, zapcore.WarnLevel, "validation_failed",
			zap.String("payment_intent_id", req.PaymentIntentID), zap.Error(err))
		common.SendError(c, common.NewInvalidInput(err.Error()))
		return
	}

	// 账单信息是可选的，有就做基本校验
	if req.BillingDetails != nil {
		if err := biz.ValidateBillingName(req.BillingDetails.Name); err != nil {
			common.SendError(c, common.NewInvalidInput(err.Error()))
			return
		}
		if err := biz.ValidateBillingPhone(req.BillingDetails.Phone); err != nil {
			common.SendError(c, common.NewInvalidInput(err.Error()))
			return
		}
	}

	common.LogStage(c, "confirming_intent", zap.String("payment_intent_id", req.PaymentIntentID))
	response, err := getIntentService().ConfirmIntent(ctx, req.PaymentIntentID, req.BillingDetails)
	if err != nil {
		common.LogStageWithLevel(c, zapcore.ErrorLevel, "intent_confirmation_failed",
			zap.String("payment_intent_id", req.PaymentIntentID), zap.Error(err))
		common.SendError(c, err)
		return
	}

	common.LogStage(c, "sending_response",
		zap.String("payment_intent_id", response.PaymentIntentID),
		zap.String("status", response.Status))
	c.JSON(consts.StatusOK, response)
}
