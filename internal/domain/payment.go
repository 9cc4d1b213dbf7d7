package domain

import "github.com/shopspring/decimal"

// Payment statuses. Confirmed and failed are terminal per payment record; a
// retry always creates a new payment row.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
)

const (
	PaymentMethodMobileMoney = "mobile_money"
	PaymentMethodCard        = "card"
	PaymentMethodDirect      = "direct"
)

const (
	FailureReasonTimeout  = "TIMEOUT"
	FailureReasonDeclined = "DECLINED"
	FailureReasonGateway  = "GATEWAY_ERROR"
)

type Payment struct {
	ID             int64           `db:"id"`
	OrderID        int64           `db:"order_id"`
	PayerID        int64           `db:"payer_id"`
	PayeeID        int64           `db:"payee_id"`
	Reference      string          `db:"reference"`
	Amount         decimal.Decimal `db:"amount"`
	Method         string          `db:"method"`
	ProviderRef    *string         `db:"provider_ref"`
	ReceiptID      *string         `db:"receipt_id"`
	Status         string          `db:"status"`
	FailureReason  *string         `db:"failure_reason"`
	AdminConfirmed bool            `db:"admin_confirmed"`
	CreatedAt      int64           `db:"created_at"`
	UpdatedAt      int64           `db:"updated_at"`
}

func (p Payment) Terminal() bool {
	return p.Status == PaymentStatusConfirmed || p.Status == PaymentStatusFailed
}
