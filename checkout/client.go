package checkout

import (
	"context"
	"fmt"
	"os"
	"time"

	"checkout-pay/biz/models"

	"github.com/go-resty/resty/v2"
)

// DefaultAPIBaseURL 本地开发默认后端地址
const DefaultAPIBaseURL = "http://localhost:3002"

// apiErrorBody 后端错误响应体
type apiErrorBody struct {
	Error string `json:"error"`
}

// HTTPClient 通过 HTTP 调用后端意向接口的 Client 实现
type HTTPClient struct {
	rc *resty.Client
}

// NewHTTPClient 创建 HTTP 客户端
// baseURL 为空时依次取 API_BASE_URL 环境变量和本地默认地址
func NewHTTPClient(baseURL string) *HTTPClient {
	if baseURL == "" {
		baseURL = os.Getenv("API_BASE_URL")
	}
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &HTTPClient{rc: rc}
}

// CreateIntent 调用 POST /api/create-payment-intent
func (c *HTTPClient) CreateIntent(ctx context.Context, amount float64) (*models.CreateIntentResponse, error) {
	var out models.CreateIntentResponse
	var apiErr apiErrorBody

	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(models.CreateIntentRequest{Amount: amount}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/create-payment-intent")
	if err != nil {
		return nil, fmt.Errorf("create payment intent request failed: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return nil, fmt.Errorf("create payment intent failed: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("create payment intent failed: status %d", resp.StatusCode())
	}
	if out.ClientSecret == "" {
		return nil, fmt.Errorf("create payment intent: empty client secret in response")
	}
	return &out, nil
}

// ConfirmIntent 调用 POST /api/confirm-payment
func (c *HTTPClient) ConfirmIntent(ctx context.Context, paymentIntentID string, billing *models.BillingDetails) (*models.ConfirmIntentResponse, error) {
	var out models.ConfirmIntentResponse
	var apiErr apiErrorBody

	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(models.ConfirmIntentRequest{
			PaymentIntentID: paymentIntentID,
			BillingDetails:  billing,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/confirm-payment")
	if err != nil {
		return nil, fmt.Errorf("confirm payment request failed: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return nil, fmt.Errorf("confirm payment failed: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("confirm payment failed: status %d", resp.StatusCode())
	}
	return &out, nil
}
