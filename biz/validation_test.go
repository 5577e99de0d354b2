package biz

import (
	"strings"
	"testing"
)

// TestMinorUnits 测试主单位到最小单位的转换
func TestMinorUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   int64
	}{
		{"整数金额", 10.0, 1000},
		{"带分金额", 10.50, 1050},
		{"一分钱", 0.01, 1},
		{"浮点精度-19.99", 19.99, 1999},
		{"浮点精度-0.1+0.2", 0.1 + 0.2, 30},
		{"浮点精度-1.005", 1.005, 100}, // 1.005 的二进制表示略小于 1.005
		{"四舍五入", 0.016, 2},
		{"零金额", 0, 0},
		{"大额", 999999.99, 99999999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinorUnits(tt.amount)
			if got != tt.want {
				t.Errorf("MinorUnits(%v) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}
}

// TestMinorUnitsIdempotent 对已是整数分的金额再次转换结果一致
func TestMinorUnitsIdempotent(t *testing.T) {
	amounts := []float64{1, 2.50, 10.00, 19.99, 100, 999999.99}
	for _, a := range amounts {
		minor := MinorUnits(a)
		again := MinorUnits(float64(minor) / 100)
		if minor != again {
			t.Errorf("MinorUnits not stable for %v: first=%d second=%d", a, minor, again)
		}
	}
}

// TestValidateAmount 测试金额验证
func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		wantErr bool
	}{
		{"最小金额", 0.01, false},
		{"正常金额", 59.00, false},
		{"最大金额", 999999.99, false},
		{"零金额", 0, true},
		{"负数金额", -1.00, true},
		{"低于一分", 0.001, true},
		{"超过最大金额", 1000000.00, true},
		{"边界值+1分", 0.02, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAmount(%v) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
		})
	}
}

// TestValidatePaymentIntentID 测试PaymentIntent ID验证
func TestValidatePaymentIntentID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"有效ID", "pi_1234567890abcdefghijklmn", false}, // 需要24个字符
		{"有效ID-标准格式", "pi_3SSrQY6xpYAaGcYp0CHAb3nG", false},
		{"空ID", "", true},
		{"无效格式", "invalid_id", true},
		{"太短", "pi_123", true},
		{"太长", "pi_1234567890abcdefghijklmno", true},
		{"不包含前缀", "1234567890abcdefghijklmnop", true},
		{"包含特殊字符", "pi_1234567890abcdefghijkl-n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePaymentIntentID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePaymentIntentID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

// TestValidateBillingName 测试账单姓名验证
func TestValidateBillingName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"正常姓名", "John Doe", false},
		{"空姓名", "", false}, // 可选字段
		{"中文姓名", "张三", false},
		{"最大长度", strings.Repeat("a", MaxNameLength), false},
		{"超长姓名", strings.Repeat("a", MaxNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBillingName(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBillingName(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

// TestValidateBillingPhone 测试账单电话验证
func TestValidateBillingPhone(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"正常电话", "+1 555-0100", false},
		{"空电话", "", false}, // 可选字段
		{"最大长度", strings.Repeat("1", MaxPhoneLength), false},
		{"超长电话", strings.Repeat("1", MaxPhoneLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBillingPhone(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBillingPhone(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

// BenchmarkMinorUnits 性能测试：金额转换
func BenchmarkMinorUnits(b *testing.B) {
	amount := 19.99

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MinorUnits(amount)
	}
}

// BenchmarkValidatePaymentIntentID 性能测试：PaymentIntent ID验证
func BenchmarkValidatePaymentIntentID(b *testing.B) {
	id := "pi_3SSrQY6xpYAaGcYp0CHAb3nG"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidatePaymentIntentID(id)
	}
}
