package dto

import "github.com/shopspring/decimal"

type OrderRequest struct {
	Title           string           `json:"title"`
	Instructions    string           `json:"instructions"`
	ServiceKey      string           `json:"service_key"`
	Quantity        int64            `json:"quantity"`
	Amount          *decimal.Decimal `json:"amount"`
	Deadline        int64            `json:"deadline"`
	RequiresReports *bool            `json:"requires_reports"`
}

// OrderUpdateRequest carries the client-editable fields. Nil means the field
// is left unchanged. Only valid while the order is pending.
type OrderUpdateRequest struct {
	Title        *string          `json:"title"`
	Instructions *string          `json:"instructions"`
	ServiceKey   *string          `json:"service_key"`
	Quantity     *int64           `json:"quantity"`
	Amount       *decimal.Decimal `json:"amount"`
	Deadline     *int64           `json:"deadline"`
}

type TransitionRequest struct {
	Event        string `json:"event"`
	FreelancerID *int64 `json:"freelancer_id"`
}

type ArtifactRequest struct {
	Kind     string `json:"kind"`
	FileName string `json:"file_name"`
}
