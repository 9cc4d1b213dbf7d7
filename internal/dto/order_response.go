package dto

import "github.com/shopspring/decimal"

type OrderResponse struct {
	ID                 int64           `json:"id"`
	DisplayID          string          `json:"display_id"`
	Title              string          `json:"title"`
	ServiceKey         string          `json:"service_key"`
	Pages              *int64          `json:"pages"`
	Slides             *int64          `json:"slides"`
	Amount             decimal.Decimal `json:"amount"`
	CustomAmount       bool            `json:"custom_amount"`
	Deadline           int64           `json:"deadline"`
	FreelancerDeadline int64           `json:"freelancer_deadline"`
	RequiresReports    bool            `json:"requires_reports"`
	Status             string          `json:"status"`
	FreelancerID       *int64          `json:"freelancer_id"`
	PaymentConfirmed   bool            `json:"payment_confirmed"`
	FreelancerPayout   decimal.Decimal `json:"freelancer_payout"`
}
