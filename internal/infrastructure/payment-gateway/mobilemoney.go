package paymentgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quillmarket/order-service/config"
	"github.com/quillmarket/order-service/pkg/httpclient"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MobileMoneyGateway is the push-to-phone channel: the provider prompts the
// payer on their handset and reports the outcome asynchronously.
type MobileMoneyGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func CreateMobileMoneyGateway(config *config.Config) *MobileMoneyGateway {
	return &MobileMoneyGateway{
		baseURL: config.MobileMoneyConfig.BaseURL,
		apiKey:  config.MobileMoneyConfig.APIKey,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type chargeRequestBody struct {
	Reference   string `json:"reference"`
	Phone       string `json:"phone"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type chargeResponseBody struct {
	ChargeID string `json:"charge_id"`
	Message  string `json:"message"`
}

type statusResponseBody struct {
	Status string `json:"status"`
}

func (g *MobileMoneyGateway) InitiateCharge(ctx context.Context, req ChargeRequest) (string, error) {
	body, err := json.Marshal(chargeRequestBody{
		Reference:   req.Reference,
		Phone:       req.PayerRef,
		Amount:      req.Amount.StringFixed(2),
		Description: req.Description,
	})
	if err != nil {
		return "", fmt.Errorf("error marshalling charge request: %v", err)
	}

	statusCode, respBody, err := httpclient.SendRequest(ctx, g.client, httpclient.HttpRequest{
		URL:    fmt.Sprintf("%s/v1/charges", g.baseURL),
		Method: "POST",
		Body:   body,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": fmt.Sprintf("Bearer %s", g.apiKey),
		},
	})
	if err != nil {
		return "", fmt.Errorf("error calling mobile money provider: %v", err)
	}

	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return "", fmt.Errorf("mobile money provider returned non-2xx status: %d", statusCode)
	}

	var chargeResp chargeResponseBody
	if err := json.Unmarshal(respBody, &chargeResp); err != nil {
		return "", fmt.Errorf("error unmarshalling charge response: %v", err)
	}

	return chargeResp.ChargeID, nil
}

func (g *MobileMoneyGateway) FetchStatus(ctx context.Context, providerRef string) (Status, error) {
	statusCode, respBody, err := httpclient.SendRequest(ctx, g.client, httpclient.HttpRequest{
		URL:    fmt.Sprintf("%s/v1/charges/%s", g.baseURL, providerRef),
		Method: "GET",
		Headers: map[string]string{
			"Authorization": fmt.Sprintf("Bearer %s", g.apiKey),
		},
	})
	if err != nil {
		return StatusPending, fmt.Errorf("error fetching charge status: %v", err)
	}

	if statusCode != http.StatusOK {
		return StatusPending, fmt.Errorf("mobile money provider returned non-OK status: %d", statusCode)
	}

	var statusResp statusResponseBody
	if err := json.Unmarshal(respBody, &statusResp); err != nil {
		return StatusPending, fmt.Errorf("error unmarshalling status response: %v", err)
	}

	switch statusResp.Status {
	case "success":
		return StatusConfirmed, nil
	case "failed":
		return StatusFailed, nil
	default:
		return StatusPending, nil
	}
}
