package service

import "github.com/quillmarket/order-service/internal/domain"

// transitionRule is one edge of the order state machine: the statuses the
// event may fire from, the status it lands on and the role allowed to fire
// it. An empty role means any authenticated actor.
type transitionRule struct {
	from []string
	to   string
	role string
}

var transitionRules = map[string]transitionRule{
	domain.EventApprove: {
		from: []string{domain.OrderStatusPending},
		to:   domain.OrderStatusApproved,
		role: domain.RoleAdmin,
	},
	domain.EventAssign: {
		from: []string{domain.OrderStatusApproved},
		to:   domain.OrderStatusAssigned,
		role: domain.RoleAdmin,
	},
	domain.EventStart: {
		from: []string{domain.OrderStatusAssigned},
		to:   domain.OrderStatusInProgress,
		role: domain.RoleFreelancer,
	},
	domain.EventSubmit: {
		from: []string{domain.OrderStatusInProgress, domain.OrderStatusRevision},
		to:   domain.OrderStatusEditing,
		role: domain.RoleFreelancer,
	},
	domain.EventReject: {
		from: []string{domain.OrderStatusEditing},
		to:   domain.OrderStatusRevision,
		role: domain.RoleAdmin,
	},
	domain.EventDeliver: {
		from: []string{domain.OrderStatusEditing},
		to:   domain.OrderStatusDelivered,
		role: domain.RoleAdmin,
	},
	domain.EventClientApprove: {
		from: []string{domain.OrderStatusDelivered},
		to:   domain.OrderStatusCompleted,
		role: domain.RoleClient,
	},
	domain.EventMarkPaid: {
		from: []string{domain.OrderStatusCompleted},
		to:   domain.OrderStatusPaid,
		role: domain.RoleAdmin,
	},
	domain.EventCancel: {
		from: []string{
			domain.OrderStatusPending, domain.OrderStatusApproved, domain.OrderStatusAssigned,
			domain.OrderStatusInProgress, domain.OrderStatusEditing, domain.OrderStatusRevision,
			domain.OrderStatusDelivered,
		},
		to: domain.OrderStatusCancelled,
	},
}

func (r transitionRule) allowsFrom(status string) bool {
	for _, s := range r.from {
		if s == status {
			return true
		}
	}
	return false
}
