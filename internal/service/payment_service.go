package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quillmarket/order-service/config"
	"github.com/quillmarket/order-service/internal/domain"
	"github.com/quillmarket/order-service/internal/dto"
	paymentgateway "github.com/quillmarket/order-service/internal/infrastructure/payment-gateway"
	"github.com/quillmarket/order-service/internal/repository"
	"github.com/quillmarket/order-service/pkg/errs"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// SignatureVerifier validates webhook payload signatures.
type SignatureVerifier interface {
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

type PaymentServiceImpl struct {
	repository    repository.OrderRepository
	cardGateway   paymentgateway.Gateway
	mobileGateway paymentgateway.Gateway
	verifier      SignatureVerifier
	producer      EventProducer
	breaker       *gobreaker.CircuitBreaker[string]
	config        *config.Config

	mu      sync.Mutex
	pollers map[int64]context.CancelFunc
}

func CreatePaymentService(repository repository.OrderRepository, cardGateway, mobileGateway paymentgateway.Gateway, verifier SignatureVerifier, producer EventProducer, breaker *gobreaker.CircuitBreaker[string], config *config.Config) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		repository:    repository,
		cardGateway:   cardGateway,
		mobileGateway: mobileGateway,
		verifier:      verifier,
		producer:      producer,
		breaker:       breaker,
		config:        config,
		pollers:       make(map[int64]context.CancelFunc),
	}
}

// InitiatePayment creates a pending payment for the order's current amount
// and submits the charge to the chosen channel. The amount is immutable from
// here on; a mismatch with the order is rejected up front.
func (s *PaymentServiceImpl) InitiatePayment(ctx context.Context, req dto.PaymentRequest, actor domain.Actor) (resp dto.PaymentResponse, err error) {
	order, err := s.repository.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return
	}

	if !req.Amount.Equal(order.Amount) {
		return resp, errs.ErrAmountMismatch
	}

	switch req.Method {
	case domain.PaymentMethodMobileMoney, domain.PaymentMethodCard, domain.PaymentMethodDirect:
	default:
		return resp, errs.ErrClient
	}

	reference, err := uuid.NewV7()
	if err != nil {
		return resp, fmt.Errorf("error generating payment reference: %v", err)
	}

	payment := domain.Payment{
		OrderID:   req.OrderID,
		PayerID:   req.PayerID,
		PayeeID:   req.PayeeID,
		Reference: reference.String(),
		Amount:    order.Amount,
		Method:    req.Method,
		Status:    domain.PaymentStatusPending,
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}

	paymentID, err := s.repository.AddPayment(ctx, payment)
	if err != nil {
		return
	}
	payment.ID = paymentID

	// Direct payments have no gateway leg; they stay pending until an
	// administrator confirms receipt.
	if req.Method == domain.PaymentMethodDirect {
		return toPaymentResponse(payment), nil
	}

	gateway := s.gatewayFor(req.Method)
	providerRef, err := s.breaker.Execute(func() (string, error) {
		return gateway.InitiateCharge(ctx, paymentgateway.ChargeRequest{
			Reference:   payment.Reference,
			PayerRef:    req.PayerRef,
			Amount:      payment.Amount,
			Description: fmt.Sprintf("Order %s", order.DisplayID),
		})
	})
	if err != nil {
		log.Error().Err(err).Str("component", "InitiatePayment").Msg("")
		reason := domain.FailureReasonGateway
		if failErr := s.repository.UpdatePaymentStatus(ctx, paymentID, domain.PaymentStatusPending, domain.PaymentStatusFailed, &reason, nil); failErr != nil {
			log.Error().Err(failErr).Str("component", "InitiatePayment").Msg("")
		}
		return resp, errs.ErrGateway
	}

	if err = s.repository.SetPaymentProviderRef(ctx, paymentID, providerRef); err != nil {
		return
	}
	payment.ProviderRef = &providerRef

	s.StartPolling(paymentID, providerRef, req.Method)

	return toPaymentResponse(payment), nil
}

func (s *PaymentServiceImpl) GetPayment(ctx context.Context, id int64) (resp dto.PaymentResponse, err error) {
	payment, err := s.repository.GetPaymentByID(ctx, id)
	if err != nil {
		return
	}

	return toPaymentResponse(payment), nil
}

// Confirm is the single authoritative transition out of pending, shared by
// the webhook and the polling loop. Idempotent: a payment already in a
// terminal state ignores further signals and fires no events.
func (s *PaymentServiceImpl) Confirm(ctx context.Context, paymentID int64, outcome string, receiptID string) (resp dto.PaymentResponse, err error) {
	payment, err := s.repository.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return
	}

	if payment.Terminal() {
		return toPaymentResponse(payment), nil
	}

	switch outcome {
	case domain.PaymentStatusConfirmed:
		payment, err = s.finalizeConfirmed(ctx, payment, receiptID)
	case domain.PaymentStatusFailed:
		payment, err = s.finalizeFailed(ctx, payment, domain.FailureReasonDeclined)
	default:
		return resp, errs.ErrClient
	}
	if err != nil {
		return
	}

	return toPaymentResponse(payment), nil
}

// ConfirmByAdmin records the administrator's confirmation for manual or
// ambiguous channels, then runs the regular confirmation path.
func (s *PaymentServiceImpl) ConfirmByAdmin(ctx context.Context, paymentID int64, actor domain.Actor) (resp dto.PaymentResponse, err error) {
	if actor.Role != domain.RoleAdmin {
		return resp, errs.ErrNoPermission
	}

	payment, err := s.repository.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return
	}

	if payment.Terminal() {
		return toPaymentResponse(payment), nil
	}

	if err = s.repository.SetPaymentAdminConfirmed(ctx, paymentID); err != nil {
		return
	}

	return s.Confirm(ctx, paymentID, domain.PaymentStatusConfirmed, "")
}

// HandleWebhook processes the provider's asynchronous notification. A bad
// signature is recoverable and mutates nothing. A late webhook for a payment
// whose local polling was cancelled is still honored.
func (s *PaymentServiceImpl) HandleWebhook(ctx context.Context, req dto.PaymentNotification) (err error) {
	if !s.verifier.VerifySignature(req.OrderID, req.StatusCode, req.GrossAmount, req.SignatureKey) {
		log.Error().Str("component", "HandleWebhook").Str("reference", req.OrderID).Msg("signature verification failed")
		return errs.ErrInvalidSignature
	}

	payment, err := s.repository.GetPaymentByReference(ctx, req.OrderID)
	if err != nil {
		return
	}

	outcome := domain.PaymentStatusPending
	switch req.TransactionStatus {
	case "capture", "settlement", "success":
		outcome = domain.PaymentStatusConfirmed
	case "deny", "cancel", "expire", "failure", "failed":
		outcome = domain.PaymentStatusFailed
	}

	if outcome == domain.PaymentStatusPending {
		return nil
	}

	s.CancelPolling(payment.ID)

	_, err = s.Confirm(ctx, payment.ID, outcome, req.ReceiptID)

	return
}

// StartPolling watches the gateway for a terminal signal at a fixed interval
// up to a fixed total timeout, independently of the webhook. Cancellable;
// cancellation stops the local loop without retracting the in-flight charge.
func (s *PaymentServiceImpl) StartPolling(paymentID int64, providerRef string, method string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.PaymentConfig.ConfirmTimeout)

	s.mu.Lock()
	s.pollers[paymentID] = cancel
	s.mu.Unlock()

	gateway := s.gatewayFor(method)

	go func() {
		defer s.removePoller(paymentID)
		defer cancel()

		ticker := time.NewTicker(s.config.PaymentConfig.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					s.failOnTimeout(paymentID)
				}
				return
			case <-ticker.C:
				status, err := gateway.FetchStatus(ctx, providerRef)
				if err != nil {
					// Network errors during polling are recoverable; keep
					// going until the deadline.
					log.Error().Err(err).Str("component", "StartPolling").Int64("payment_id", paymentID).Msg("")
					continue
				}

				switch status {
				case paymentgateway.StatusConfirmed:
					if _, err := s.Confirm(context.Background(), paymentID, domain.PaymentStatusConfirmed, ""); err != nil {
						log.Error().Err(err).Str("component", "StartPolling").Int64("payment_id", paymentID).Msg("")
					}
					return
				case paymentgateway.StatusFailed:
					if _, err := s.Confirm(context.Background(), paymentID, domain.PaymentStatusFailed, ""); err != nil {
						log.Error().Err(err).Str("component", "StartPolling").Int64("payment_id", paymentID).Msg("")
					}
					return
				}
			}
		}
	}()
}

// CancelPolling stops the local confirmation wait for a payment. The payment
// itself stays pending so a late webhook or the timeout sweep can still
// finalize it.
func (s *PaymentServiceImpl) CancelPolling(paymentID int64) bool {
	s.mu.Lock()
	cancel, ok := s.pollers[paymentID]
	delete(s.pollers, paymentID)
	s.mu.Unlock()

	if ok {
		cancel()
	}

	return ok
}

// SweepExpiredPayments enforces the confirmation timeout server-side: any
// payment still pending past the window fails with reason TIMEOUT. Runs on a
// schedule so a hung gateway cannot strand payments even when no client is
// polling.
func (s *PaymentServiceImpl) SweepExpiredPayments() {
	log.Info().Str("component", "SweepExpiredPayments").Int64("actor_id", s.config.SystemActorID).Msg("sweep starts")

	ctx := context.Background()
	cutoff := time.Now().Add(-s.config.PaymentConfig.ConfirmTimeout).Unix()

	payments, err := s.repository.ListStalePendingPayments(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Str("component", "SweepExpiredPayments").Msg("")
		return
	}

	for _, payment := range payments {
		// Direct payments have no gateway deadline; they wait for the
		// administrator.
		if payment.Method == domain.PaymentMethodDirect {
			continue
		}

		if _, err := s.finalizeFailed(ctx, payment, domain.FailureReasonTimeout); err != nil {
			log.Error().Err(err).Str("component", "SweepExpiredPayments").Int64("payment_id", payment.ID).Msg("")
		}
	}

	log.Info().Str("component", "SweepExpiredPayments").Msg("sweep ends")
}

func (s *PaymentServiceImpl) failOnTimeout(paymentID int64) {
	payment, err := s.repository.GetPaymentByID(context.Background(), paymentID)
	if err != nil {
		log.Error().Err(err).Str("component", "failOnTimeout").Int64("payment_id", paymentID).Msg("")
		return
	}

	if payment.Terminal() {
		return
	}

	if _, err := s.finalizeFailed(context.Background(), payment, domain.FailureReasonTimeout); err != nil {
		log.Error().Err(err).Str("component", "failOnTimeout").Int64("payment_id", paymentID).Msg("")
	}
}

// finalizeConfirmed performs the compare-and-set from pending to confirmed
// together with the order's payment_confirmed flag in one transaction, then
// emits the downstream event. A lost CAS race is retried once against a
// fresh read; losing twice on a still-pending row is an integrity bug.
func (s *PaymentServiceImpl) finalizeConfirmed(ctx context.Context, payment domain.Payment, receiptID string) (domain.Payment, error) {
	if payment.Method == domain.PaymentMethodDirect && !payment.AdminConfirmed {
		return payment, errs.ErrNoPermission
	}

	var receipt *string
	if receiptID != "" {
		receipt = &receiptID
	}

	cas := func() error {
		return s.repository.HandleTrx(ctx, func(ctx context.Context, repo repository.OrderRepository) error {
			if err := repo.UpdatePaymentStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusConfirmed, nil, receipt); err != nil {
				return err
			}
			return repo.SetOrderPaymentConfirmed(ctx, payment.OrderID)
		})
	}

	err := cas()
	if errors.Is(err, errs.ErrConflict) {
		fresh, readErr := s.repository.GetPaymentByID(ctx, payment.ID)
		if readErr != nil {
			return payment, readErr
		}
		if fresh.Terminal() {
			// A concurrent signal already finalized this payment; ours is a
			// duplicate and fires nothing.
			return fresh, nil
		}
		err = cas()
	}
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			log.Error().Str("component", "finalizeConfirmed").Int64("payment_id", payment.ID).Msg("compare-and-set lost twice on a pending payment")
		}
		return payment, err
	}

	payment.Status = domain.PaymentStatusConfirmed
	payment.ReceiptID = receipt

	publishEvent(s.producer, dto.EventPaymentConfirmed, payment.Reference, dto.PaymentEvent{
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Reference: payment.Reference,
		Amount:    payment.Amount,
		Method:    payment.Method,
		ReceiptID: receiptID,
	})

	return payment, nil
}

// finalizeFailed moves a pending payment to failed. The owning order is left
// untouched so a fresh payment attempt stays possible.
func (s *PaymentServiceImpl) finalizeFailed(ctx context.Context, payment domain.Payment, reason string) (domain.Payment, error) {
	err := s.repository.UpdatePaymentStatus(ctx, payment.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed, &reason, nil)
	if errors.Is(err, errs.ErrConflict) {
		fresh, readErr := s.repository.GetPaymentByID(ctx, payment.ID)
		if readErr != nil {
			return payment, readErr
		}
		if fresh.Terminal() {
			return fresh, nil
		}
		return payment, err
	}
	if err != nil {
		return payment, err
	}

	payment.Status = domain.PaymentStatusFailed
	payment.FailureReason = &reason

	publishEvent(s.producer, dto.EventPaymentFailed, payment.Reference, dto.PaymentEvent{
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Reference: payment.Reference,
		Amount:    payment.Amount,
		Method:    payment.Method,
		Reason:    reason,
	})

	return payment, nil
}

func (s *PaymentServiceImpl) gatewayFor(method string) paymentgateway.Gateway {
	if method == domain.PaymentMethodCard {
		return s.cardGateway
	}
	return s.mobileGateway
}

func (s *PaymentServiceImpl) removePoller(paymentID int64) {
	s.mu.Lock()
	delete(s.pollers, paymentID)
	s.mu.Unlock()
}

func toPaymentResponse(payment domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:            payment.ID,
		OrderID:       payment.OrderID,
		Reference:     payment.Reference,
		Amount:        payment.Amount,
		Method:        payment.Method,
		ProviderRef:   payment.ProviderRef,
		ReceiptID:     payment.ReceiptID,
		Status:        payment.Status,
		FailureReason: payment.FailureReason,
	}
}
