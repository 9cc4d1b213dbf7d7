package service

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"

	"github.com/quillmarket/order-service/internal/domain"
	"github.com/quillmarket/order-service/internal/dto"
	paymentgateway "github.com/quillmarket/order-service/internal/infrastructure/payment-gateway"
	"github.com/quillmarket/order-service/internal/repository"
	pkgdto "github.com/quillmarket/order-service/pkg/dto"
	"github.com/quillmarket/order-service/pkg/errs"
	"github.com/segmentio/kafka-go"
)

// fakeRepository is an in-memory stand-in with the same guarded-update
// semantics as the SQL implementation: status updates only apply when the
// row still holds the expected prior status.
type fakeRepository struct {
	mu             sync.Mutex
	orders         map[int64]domain.Order
	artifacts      map[int64][]domain.Artifact
	payments       map[int64]domain.Payment
	nextOrderID    int64
	nextArtifactID int64
	nextPaymentID  int64

	// paymentCASFailures forces that many UpdatePaymentStatus calls to lose
	// the compare-and-set without touching the row, to exercise the retry.
	paymentCASFailures int

	// trxCommitErr makes HandleTrx fail at commit time after fn has run,
	// rolling its writes back, like a dropped connection would.
	trxCommitErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		orders:    make(map[int64]domain.Order),
		artifacts: make(map[int64][]domain.Artifact),
		payments:  make(map[int64]domain.Payment),
	}
}

func (r *fakeRepository) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo repository.OrderRepository) error) error {
	r.mu.Lock()
	orders := maps.Clone(r.orders)
	payments := maps.Clone(r.payments)
	r.mu.Unlock()

	restore := func() {
		r.mu.Lock()
		r.orders = orders
		r.payments = payments
		r.mu.Unlock()
	}

	if err := fn(ctx, r); err != nil {
		restore()
		return err
	}
	if r.trxCommitErr != nil {
		restore()
		return r.trxCommitErr
	}
	return nil
}

func (r *fakeRepository) AddOrder(ctx context.Context, data domain.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextOrderID++
	data.ID = r.nextOrderID
	r.orders[data.ID] = data
	return data.ID, nil
}

func (r *fakeRepository) GetOrderByID(ctx context.Context, id int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, errs.ErrNotFound
	}
	return order, nil
}

func (r *fakeRepository) GetOrderByDisplayID(ctx context.Context, displayID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range r.orders {
		if order.DisplayID == displayID {
			return order, nil
		}
	}
	return domain.Order{}, errs.ErrNotFound
}

func (r *fakeRepository) GetOrders(ctx context.Context, filter pkgdto.Filter) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var orders []domain.Order
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *fakeRepository) UpdateOrderStatus(ctx context.Context, id int64, fromStatus, toStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || order.Status != fromStatus {
		return errs.ErrConflict
	}
	order.Status = toStatus
	r.orders[id] = order
	return nil
}

func (r *fakeRepository) ApproveOrder(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || order.Status != domain.OrderStatusPending {
		return errs.ErrConflict
	}
	order.Status = domain.OrderStatusApproved
	order.AdminApproved = true
	r.orders[id] = order
	return nil
}

func (r *fakeRepository) AssignFreelancer(ctx context.Context, id int64, freelancerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || order.Status != domain.OrderStatusApproved || order.FreelancerID != nil {
		return errs.ErrConflict
	}
	order.Status = domain.OrderStatusAssigned
	order.FreelancerID = &freelancerID
	r.orders[id] = order
	return nil
}

func (r *fakeRepository) CompleteOrder(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok || order.Status != domain.OrderStatusDelivered || !order.PaymentConfirmed {
		return errs.ErrConflict
	}
	order.Status = domain.OrderStatusCompleted
	order.ClientApproved = true
	r.orders[id] = order
	return nil
}

func (r *fakeRepository) UpdateOrderDetails(ctx context.Context, data domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[data.ID]
	if !ok || order.Status != domain.OrderStatusPending {
		return errs.ErrConflict
	}
	order.Title = data.Title
	order.Instructions = data.Instructions
	order.ServiceKey = data.ServiceKey
	order.Pages = data.Pages
	order.Slides = data.Slides
	order.Amount = data.Amount
	order.CustomAmount = data.CustomAmount
	order.Deadline = data.Deadline
	order.FreelancerDeadline = data.FreelancerDeadline
	r.orders[data.ID] = order
	return nil
}

func (r *fakeRepository) SetOrderPaymentConfirmed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return errs.ErrNotFound
	}
	order.PaymentConfirmed = true
	r.orders[id] = order
	return nil
}

func (r *fakeRepository) AddArtifact(ctx context.Context, data domain.Artifact) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextArtifactID++
	data.ID = r.nextArtifactID
	r.artifacts[data.OrderID] = append(r.artifacts[data.OrderID], data)
	return data.ID, nil
}

func (r *fakeRepository) GetArtifactsByOrderID(ctx context.Context, orderID int64) ([]domain.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.artifacts[orderID], nil
}

func (r *fakeRepository) AddPayment(ctx context.Context, data domain.Payment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextPaymentID++
	data.ID = r.nextPaymentID
	r.payments[data.ID] = data
	return data.ID, nil
}

func (r *fakeRepository) GetPaymentByID(ctx context.Context, id int64) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, errs.ErrNotFound
	}
	return payment, nil
}

func (r *fakeRepository) GetPaymentByReference(ctx context.Context, reference string) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, payment := range r.payments {
		if payment.Reference == reference {
			return payment, nil
		}
	}
	return domain.Payment{}, errs.ErrNotFound
}

func (r *fakeRepository) SetPaymentProviderRef(ctx context.Context, id int64, providerRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return errs.ErrNotFound
	}
	payment.ProviderRef = &providerRef
	r.payments[id] = payment
	return nil
}

func (r *fakeRepository) SetPaymentAdminConfirmed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return errs.ErrNotFound
	}
	payment.AdminConfirmed = true
	r.payments[id] = payment
	return nil
}

func (r *fakeRepository) UpdatePaymentStatus(ctx context.Context, id int64, fromStatus, toStatus string, failureReason, receiptID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paymentCASFailures > 0 {
		r.paymentCASFailures--
		return errs.ErrConflict
	}

	payment, ok := r.payments[id]
	if !ok || payment.Status != fromStatus {
		return errs.ErrConflict
	}
	payment.Status = toStatus
	payment.FailureReason = failureReason
	if receiptID != nil {
		payment.ReceiptID = receiptID
	}
	r.payments[id] = payment
	return nil
}

func (r *fakeRepository) ListStalePendingPayments(ctx context.Context, cutoff int64) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []domain.Payment
	for _, payment := range r.payments {
		if payment.Status == domain.PaymentStatusPending && payment.CreatedAt < cutoff {
			stale = append(stale, payment)
		}
	}
	return stale, nil
}

// fakeProducer records published events by type.
type fakeProducer struct {
	mu     sync.Mutex
	events []dto.KafkaMessage
}

func (p *fakeProducer) WriteMessages(msgs ...kafka.Message) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, msg := range msgs {
		var event dto.KafkaMessage
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return 0, err
		}
		p.events = append(p.events, event)
	}
	return len(msgs), nil
}

func (p *fakeProducer) countByType(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, event := range p.events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

// fakeGateway replies with canned charge and status results.
type fakeGateway struct {
	mu          sync.Mutex
	providerRef string
	chargeErr   error
	statuses    []paymentgateway.Status
	statusErr   error
}

func (g *fakeGateway) InitiateCharge(ctx context.Context, req paymentgateway.ChargeRequest) (string, error) {
	if g.chargeErr != nil {
		return "", g.chargeErr
	}
	return g.providerRef, nil
}

func (g *fakeGateway) FetchStatus(ctx context.Context, providerRef string) (paymentgateway.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.statusErr != nil {
		return paymentgateway.StatusPending, g.statusErr
	}
	if len(g.statuses) == 0 {
		return paymentgateway.StatusPending, nil
	}

	status := g.statuses[0]
	if len(g.statuses) > 1 {
		g.statuses = g.statuses[1:]
	}
	return status, nil
}

type fakeVerifier struct {
	valid bool
}

func (v *fakeVerifier) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	return v.valid
}

var (
	errGatewayDown  = errors.New("gateway unreachable")
	errCommitFailed = errors.New("commit failed: connection reset")
)
