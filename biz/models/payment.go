package models

// 支付意向相关请求和响应模型

// CreateIntentRequest 创建支付意向请求
type CreateIntentRequest struct {
	Amount float64 `json:"amount"` // 主单位金额（美元），必须大于0
}

// CreateIntentResponse 创建支付意向响应
type CreateIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// ConfirmIntentRequest 确认支付请求
type ConfirmIntentRequest struct {
	PaymentIntentID string          `json:"paymentIntentId"`
	BillingDetails  *BillingDetails `json:"billingDetails,omitempty"` // 可选，地址组件填写完整时才有
}

// ConfirmIntentResponse 确认支付响应
type ConfirmIntentResponse struct {
	Success         bool   `json:"success"`
	Status          string `json:"status"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// BillingDetails 账单信息，由托管地址组件收集，支付成功与否不依赖它
type BillingDetails struct {
	Name    string          `json:"name,omitempty"`
	Phone   string          `json:"phone,omitempty"`
	Address *BillingAddress `json:"address,omitempty"`
}

// BillingAddress 账单地址
type BillingAddress struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}
