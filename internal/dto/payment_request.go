package dto

import "github.com/shopspring/decimal"

type PaymentRequest struct {
	OrderID  int64           `json:"order_id"`
	PayerID  int64           `json:"payer_id"`
	PayeeID  int64           `json:"payee_id"`
	Amount   decimal.Decimal `json:"amount"`
	Method   string          `json:"method"`
	PayerRef string          `json:"payer_ref"`
}

type PaymentResponse struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	ProviderRef   *string         `json:"provider_ref"`
	ReceiptID     *string         `json:"receipt_id"`
	Status        string          `json:"status"`
	FailureReason *string         `json:"failure_reason"`
}
