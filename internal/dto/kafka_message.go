package dto

import "github.com/shopspring/decimal"

type KafkaMessage struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
}

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventPaymentConfirmed   = "payment_confirmed"
	EventPaymentFailed      = "payment_failed"
	EventPayoutRecorded     = "payout_recorded"
)

type OrderEvent struct {
	OrderID    int64  `json:"order_id"`
	DisplayID  string `json:"display_id"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
	ActorID    int64  `json:"actor_id"`
}

type PaymentEvent struct {
	PaymentID int64           `json:"payment_id"`
	OrderID   int64           `json:"order_id"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	ReceiptID string          `json:"receipt_id,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

type PayoutEvent struct {
	OrderID      int64           `json:"order_id"`
	DisplayID    string          `json:"display_id"`
	FreelancerID int64           `json:"freelancer_id"`
	Amount       decimal.Decimal `json:"amount"`
}
