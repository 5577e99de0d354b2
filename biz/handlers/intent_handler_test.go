package handlers

import (
	"bytes"
	"encoding/json"
	"testing"

	"checkout-pay/biz/models"
)

// 注意：handlers依赖Hertz的RequestContext，完整的请求级测试放在集成环境

// TestCreatePaymentIntent_HTTPFlow 测试创建意向的HTTP流程
func TestCreatePaymentIntent_HTTPFlow(t *testing.T) {
	t.Skip("Skipping - requires full Hertz server setup and service mocking")
}

// TestConfirmPayment_HTTPFlow 测试确认支付的HTTP流程
func TestConfirmPayment_HTTPFlow(t *testing.T) {
	t.Skip("Skipping - requires full Hertz server setup and service mocking")
}

// TestCreateIntentResponseWireFormat 响应字段必须是前端期待的驼峰命名
func TestCreateIntentResponseWireFormat(t *testing.T) {
	response := models.CreateIntentResponse{
		ClientSecret:    "pi_123456_secret_abc",
		PaymentIntentID: "pi_123456",
	}

	jsonData, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("Failed to marshal CreateIntentResponse: %v", err)
	}

	if !bytes.Contains(jsonData, []byte(`"clientSecret"`)) {
		t.Errorf("JSON should use key 'clientSecret', got %s", jsonData)
	}
	if !bytes.Contains(jsonData, []byte(`"paymentIntentId"`)) {
		t.Errorf("JSON should use key 'paymentIntentId', got %s", jsonData)
	}
}

// TestConfirmIntentRequestWireFormat 请求结构与前端字段对齐
func TestConfirmIntentRequestWireFormat(t *testing.T) {
	body := []byte(`{
		"paymentIntentId": "pi_123456",
		"billingDetails": {
			"name": "Jane Doe",
			"phone": "+1 555-0100",
			"address": {
				"line1": "1 Main St",
				"city": "Springfield",
				"postal_code": "01101",
				"country": "US"
			}
		}
	}`)

	var req models.ConfirmIntentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("Failed to unmarshal ConfirmIntentRequest: %v", err)
	}

	if req.PaymentIntentID != "pi_123456" {
		t.Errorf("PaymentIntentID = %q, want 'pi_123456'", req.PaymentIntentID)
	}
	if req.BillingDetails == nil {
		t.Fatal("BillingDetails should not be nil")
	}
	if req.BillingDetails.Name != "Jane Doe" {
		t.Errorf("Name = %q, want 'Jane Doe'", req.BillingDetails.Name)
	}
	if req.BillingDetails.Address == nil || req.BillingDetails.Address.PostalCode != "01101" {
		t.Errorf("Address postal_code not parsed: %+v", req.BillingDetails.Address)
	}
}

// TestConfirmIntentRequestOptionalBilling 账单信息是可选字段
func TestConfirmIntentRequestOptionalBilling(t *testing.T) {
	var req models.ConfirmIntentRequest
	if err := json.Unmarshal([]byte(`{"paymentIntentId": "pi_123456"}`), &req); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if req.BillingDetails != nil {
		t.Errorf("BillingDetails = %+v, want nil when omitted", req.BillingDetails)
	}

	// 序列化时省略空的账单信息
	jsonData, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if bytes.Contains(jsonData, []byte("billingDetails")) {
		t.Errorf("omitted billingDetails should not appear in JSON, got %s", jsonData)
	}
}

// TestConfirmIntentResponseWireFormat 确认响应的字段命名
func TestConfirmIntentResponseWireFormat(t *testing.T) {
	response := models.ConfirmIntentResponse{
		Success:         true,
		Status:          "succeeded",
		PaymentIntentID: "pi_123456",
	}

	jsonData, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("Failed to marshal ConfirmIntentResponse: %v", err)
	}

	for _, key := range []string{`"success"`, `"status"`, `"paymentIntentId"`} {
		if !bytes.Contains(jsonData, []byte(key)) {
			t.Errorf("JSON should contain key %s, got %s", key, jsonData)
		}
	}
}
