package repository

import (
	"context"

	"github.com/quillmarket/order-service/internal/domain"
	pkgdto "github.com/quillmarket/order-service/pkg/dto"
)

// OrderRepository persists orders, payments and artifacts. Status updates are
// guarded: they only apply when the row still holds the expected prior
// status, and report errs.ErrConflict otherwise.
type OrderRepository interface {
	HandleTrx(ctx context.Context, fn func(ctx context.Context, repo OrderRepository) error) error

	AddOrder(ctx context.Context, data domain.Order) (id int64, err error)
	GetOrderByID(ctx context.Context, id int64) (data domain.Order, err error)
	GetOrderByDisplayID(ctx context.Context, displayID string) (data domain.Order, err error)
	GetOrders(ctx context.Context, filter pkgdto.Filter) (data []domain.Order, err error)
	UpdateOrderStatus(ctx context.Context, id int64, fromStatus, toStatus string) (err error)
	ApproveOrder(ctx context.Context, id int64) (err error)
	AssignFreelancer(ctx context.Context, id int64, freelancerID int64) (err error)
	CompleteOrder(ctx context.Context, id int64) (err error)
	UpdateOrderDetails(ctx context.Context, data domain.Order) (err error)
	SetOrderPaymentConfirmed(ctx context.Context, id int64) (err error)

	AddArtifact(ctx context.Context, data domain.Artifact) (id int64, err error)
	GetArtifactsByOrderID(ctx context.Context, orderID int64) (data []domain.Artifact, err error)

	AddPayment(ctx context.Context, data domain.Payment) (id int64, err error)
	GetPaymentByID(ctx context.Context, id int64) (data domain.Payment, err error)
	GetPaymentByReference(ctx context.Context, reference string) (data domain.Payment, err error)
	SetPaymentProviderRef(ctx context.Context, id int64, providerRef string) (err error)
	SetPaymentAdminConfirmed(ctx context.Context, id int64) (err error)
	UpdatePaymentStatus(ctx context.Context, id int64, fromStatus, toStatus string, failureReason, receiptID *string) (err error)
	ListStalePendingPayments(ctx context.Context, cutoff int64) (data []domain.Payment, err error)
}
