package domain

import "github.com/shopspring/decimal"

// Order lifecycle statuses. Completed, paid and cancelled are terminal.
const (
	OrderStatusPending    = "pending"
	OrderStatusApproved   = "approved"
	OrderStatusAssigned   = "assigned"
	OrderStatusInProgress = "in_progress"
	OrderStatusEditing    = "editing"
	OrderStatusRevision   = "revision"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusPaid       = "paid"
	OrderStatusCancelled  = "cancelled"
)

// Order lifecycle events.
const (
	EventApprove       = "approve"
	EventAssign        = "assign"
	EventStart         = "start"
	EventSubmit        = "submit"
	EventReject        = "reject"
	EventDeliver       = "deliver"
	EventClientApprove = "client_approve"
	EventMarkPaid      = "mark_paid"
	EventCancel        = "cancel"
	EventEdit          = "edit"
)

const (
	RoleAdmin      = "admin"
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

type Actor struct {
	ID   int64
	Role string
}

type Order struct {
	ID                 int64           `db:"id"`
	DisplayID          string          `db:"display_id"`
	ClientID           int64           `db:"client_id"`
	FreelancerID       *int64          `db:"freelancer_id"`
	Title              string          `db:"title"`
	Instructions       string          `db:"instructions"`
	ServiceKey         string          `db:"service_key"`
	Pages              *int64          `db:"pages"`
	Slides             *int64          `db:"slides"`
	Amount             decimal.Decimal `db:"amount"`
	CustomAmount       bool            `db:"custom_amount"`
	Deadline           int64           `db:"deadline"`
	FreelancerDeadline int64           `db:"freelancer_deadline"`
	RequiresReports    bool            `db:"requires_reports"`
	Status             string          `db:"status"`
	AdminApproved      bool            `db:"admin_approved"`
	ClientApproved     bool            `db:"client_approved"`
	PaymentConfirmed   bool            `db:"payment_confirmed"`
	CreatedAt          int64           `db:"created_at"`
	UpdatedAt          int64           `db:"updated_at"`
	DeletedAt          *int64          `db:"deleted_at"`
}

func (o Order) Terminal() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// Quantity returns whichever of pages/slides is populated. Exactly one of
// the two is set for any persisted order.
func (o Order) Quantity() int64 {
	if o.Slides != nil {
		return *o.Slides
	}
	if o.Pages != nil {
		return *o.Pages
	}
	return 0
}
