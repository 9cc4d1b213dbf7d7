package paymentgateway

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/quillmarket/order-service/config"
)

// MidtransGateway is the card channel.
type MidtransGateway struct {
	client    *coreapi.Client
	serverKey string
}

func CreateMidtransGateway(config *config.Config) *MidtransGateway {
	client := &coreapi.Client{}
	client.New(config.MidtransConfig.ServerKey, midtrans.Sandbox)

	return &MidtransGateway{
		client:    client,
		serverKey: config.MidtransConfig.ServerKey,
	}
}

func (g *MidtransGateway) InitiateCharge(ctx context.Context, req ChargeRequest) (string, error) {
	chargeReq := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeCreditCard,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.Amount.IntPart(),
		},
		CreditCard: &coreapi.CreditCardDetails{
			TokenID: req.PayerRef,
		},
	}

	response, err := g.client.ChargeTransaction(chargeReq)
	if err != nil {
		return "", fmt.Errorf("charge request failed: %w", err)
	}

	if response.StatusCode != "200" && response.StatusCode != "201" {
		return "", fmt.Errorf("payment gateway returned non-2xx status: %s", response.StatusCode)
	}

	return response.TransactionID, nil
}

func (g *MidtransGateway) FetchStatus(ctx context.Context, providerRef string) (Status, error) {
	response, err := g.client.CheckTransaction(providerRef)
	if err != nil {
		return StatusPending, fmt.Errorf("status fetch failed: %w", err)
	}

	return mapMidtransStatus(response.TransactionStatus), nil
}

func mapMidtransStatus(transactionStatus string) Status {
	switch transactionStatus {
	case "capture", "settlement":
		return StatusConfirmed
	case "deny", "cancel", "expire", "failure":
		return StatusFailed
	default:
		return StatusPending
	}
}

// VerifySignature checks the webhook's sha512(order_id + status_code +
// gross_amount + server_key) signature.
func (g *MidtransGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + g.serverKey))
	return hex.EncodeToString(sum[:]) == signatureKey
}
