package paymentgateway

import (
	"context"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

type ChargeRequest struct {
	Reference   string
	PayerRef    string
	Amount      decimal.Decimal
	Description string
}

// Gateway is one payment channel. InitiateCharge submits the charge and
// returns the provider's reference; FetchStatus reports the charge outcome
// for the polling loop.
type Gateway interface {
	InitiateCharge(ctx context.Context, req ChargeRequest) (providerRef string, err error)
	FetchStatus(ctx context.Context, providerRef string) (Status, error)
}
