package biz

import (
	"fmt"
	"math"
	"regexp"
	"unicode/utf8"
)

// 验证常量
const (
	MinMinorUnits     = 1        // 最小金额：1分
	MaxMinorUnits     = 99999999 // 最大金额：999999.99（防止误输入）
	MaxNameLength     = 256
	MaxPhoneLength    = 32
	MaxAddressLength  = 512
	MaxMetadataLength = 500
)

var (
	// Stripe PaymentIntent ID格式：pi_开头，后跟24个字符
	paymentIntentPattern = regexp.MustCompile(`^pi_[a-zA-Z0-9]{24}$`)
)

// ValidationError 验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// MinorUnits 将主单位金额（元/美元）转换为最小单位（分）
// 不变量：MinorUnits(a) == round(a * 100)，对已转换的整数再次转换结果一致
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ValidateAmount 验证主单位金额。金额缺失或非正数时拒绝
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return &ValidationError{Field: "amount", Message: "amount must be greater than 0"}
	}

	minorUnits := MinorUnits(amount)
	if minorUnits < MinMinorUnits {
		return &ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("amount must be at least %d in minor units (0.01)", MinMinorUnits),
		}
	}
	if minorUnits > MaxMinorUnits {
		return &ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("amount must not exceed %d in minor units", MaxMinorUnits),
		}
	}

	return nil
}

// ValidatePaymentIntentID 验证PaymentIntent ID格式
func ValidatePaymentIntentID(paymentIntentID string) error {
	if paymentIntentID == "" {
		return &ValidationError{Field: "paymentIntentId", Message: "paymentIntentId is required"}
	}

	if !paymentIntentPattern.MatchString(paymentIntentID) {
		return &ValidationError{
			Field:   "paymentIntentId",
			Message: "invalid paymentIntentId format (must start with 'pi_' followed by 24 characters)",
		}
	}

	return nil
}

// ValidateBillingName 验证账单姓名（可选字段）
func ValidateBillingName(name string) error {
	if name == "" {
		return nil
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{
			Field:   "billingDetails.name",
			Message: fmt.Sprintf("name length must not exceed %d characters", MaxNameLength),
		}
	}
	return nil
}

// ValidateBillingPhone 验证账单电话（可选字段）
func ValidateBillingPhone(phone string) error {
	if phone == "" {
		return nil
	}
	if utf8.RuneCountInString(phone) > MaxPhoneLength {
		return &ValidationError{
			Field:   "billingDetails.phone",
			Message: fmt.Sprintf("phone length must not exceed %d characters", MaxPhoneLength),
		}
	}
	return nil
}
