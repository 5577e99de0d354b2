package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"checkout-pay/biz/models"
	"checkout-pay/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmationRecord 确认审计记录
type ConfirmationRecord struct {
	ID              string
	PaymentIntentID string
	Status          string
	Amount          int64
	Currency        string
	BillingName     string
	BillingPhone    string
	BillingAddress  string // JSON
	CreatedAt       time.Time
}

// SaveConfirmation 保存一次确认的审计记录和账单信息
// 同一个 paymentIntentID 可以多次确认（重试），每次都追加一条记录
func SaveConfirmation(paymentIntentID, status string, amount int64, currency string, billing *models.BillingDetails) error {
	if DB == nil {
		return nil
	}

	var billingName, billingPhone, billingAddress string
	if billing != nil {
		billingName = billing.Name
		billingPhone = billing.Phone
		if billing.Address != nil {
			addrJSON, err := json.Marshal(billing.Address)
			if err != nil {
				zap.L().Warn("Failed to marshal billing address", zap.Error(err))
			} else {
				billingAddress = string(addrJSON)
			}
		}
	}

	query := `INSERT INTO payment_confirmations
		(id, payment_intent_id, status, amount, currency, billing_name, billing_phone, billing_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	_, err := DB.Exec(query,
		uuid.New().String(),
		paymentIntentID,
		status,
		amount,
		currency,
		billingName,
		billingPhone,
		billingAddress,
		time.Now(),
	)
	duration := time.Since(start)

	if err != nil {
		common.RecordDBQuery("insert", "payment_confirmations", "error", duration)
		return err
	}
	common.RecordDBQuery("insert", "payment_confirmations", "ok", duration)

	zap.L().Info("Confirmation record saved",
		zap.String("payment_intent_id", paymentIntentID),
		zap.String("status", status),
		zap.Bool("has_billing_details", billing != nil))
	return nil
}

// GetConfirmationsByIntentID 查询某个支付意向的确认记录（新到旧）
func GetConfirmationsByIntentID(paymentIntentID string, limit int) ([]*ConfirmationRecord, error) {
	if DB == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, payment_intent_id, status, amount, currency,
		billing_name, billing_phone, billing_address, created_at
		FROM payment_confirmations
		WHERE payment_intent_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	start := time.Now()
	rows, err := DB.Query(query, paymentIntentID, limit)
	duration := time.Since(start)
	if err != nil {
		common.RecordDBQuery("select", "payment_confirmations", "error", duration)
		return nil, err
	}
	common.RecordDBQuery("select", "payment_confirmations", "ok", duration)
	defer rows.Close()

	var records []*ConfirmationRecord
	for rows.Next() {
		var r ConfirmationRecord
		var billingName, billingPhone, billingAddress sql.NullString
		if err := rows.Scan(&r.ID, &r.PaymentIntentID, &r.Status, &r.Amount, &r.Currency,
			&billingName, &billingPhone, &billingAddress, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.BillingName = billingName.String
		r.BillingPhone = billingPhone.String
		r.BillingAddress = billingAddress.String
		records = append(records, &r)
	}
	return records, rows.Err()
}
