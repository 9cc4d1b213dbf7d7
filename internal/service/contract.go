package service

import (
	"context"

	"github.com/quillmarket/order-service/internal/domain"
	"github.com/quillmarket/order-service/internal/dto"
	pkgdto "github.com/quillmarket/order-service/pkg/dto"
	"github.com/segmentio/kafka-go"
)

// OrderService owns the order lifecycle: creation, pending-state edits,
// artifact intake and every status transition.
type OrderService interface {
	CreateOrder(ctx context.Context, req dto.OrderRequest, actor domain.Actor) (dto.OrderResponse, error)
	GetOrder(ctx context.Context, id int64) (dto.OrderResponse, error)
	GetOrders(ctx context.Context, filter pkgdto.Filter) (pkgdto.Pagination, error)
	UpdateOrder(ctx context.Context, id int64, req dto.OrderUpdateRequest, actor domain.Actor) (dto.OrderResponse, error)
	RequestTransition(ctx context.Context, id int64, req dto.TransitionRequest, actor domain.Actor) (dto.OrderResponse, error)
	AddArtifact(ctx context.Context, orderID int64, req dto.ArtifactRequest, actor domain.Actor) error
}

// PaymentService drives the payment reconciliation protocol: initiation,
// idempotent confirmation via webhook or polling, cancellation and the
// server-side timeout sweep.
type PaymentService interface {
	InitiatePayment(ctx context.Context, req dto.PaymentRequest, actor domain.Actor) (dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id int64) (dto.PaymentResponse, error)
	Confirm(ctx context.Context, paymentID int64, outcome string, receiptID string) (dto.PaymentResponse, error)
	ConfirmByAdmin(ctx context.Context, paymentID int64, actor domain.Actor) (dto.PaymentResponse, error)
	HandleWebhook(ctx context.Context, req dto.PaymentNotification) error
	CancelPolling(paymentID int64) bool
	SweepExpiredPayments()
}

// EventProducer is the notifier/ledger hook. Satisfied by *kafka.Conn.
type EventProducer interface {
	WriteMessages(msgs ...kafka.Message) (int, error)
}
