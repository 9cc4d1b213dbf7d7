package service

import (
	"context"
	"testing"
	"time"

	"github.com/quillmarket/order-service/config"
	"github.com/quillmarket/order-service/internal/domain"
	"github.com/quillmarket/order-service/internal/dto"
	circuitbreaker "github.com/quillmarket/order-service/internal/infrastructure/circuit-breaker"
	paymentgateway "github.com/quillmarket/order-service/internal/infrastructure/payment-gateway"
	"github.com/quillmarket/order-service/pkg/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentServiceForTest(gateway *fakeGateway, verifier *fakeVerifier) (*fakeRepository, *fakeProducer, *PaymentServiceImpl) {
	repo := newFakeRepository()
	producer := &fakeProducer{}
	cfg := &config.Config{
		PaymentConfig: config.PaymentConfig{
			PollInterval:   5 * time.Millisecond,
			ConfirmTimeout: 50 * time.Millisecond,
		},
	}
	breaker := circuitbreaker.CreateCircuitBreaker[string]("payment-test")
	svc := CreatePaymentService(repo, gateway, gateway, verifier, producer, breaker, cfg)
	return repo, producer, svc
}

func seedPendingPayment(repo *fakeRepository, method string, mutate func(*domain.Payment)) (orderID, paymentID int64) {
	orderID = seedOrder(repo, domain.OrderStatusDelivered, nil)
	payment := domain.Payment{
		OrderID:   orderID,
		PayerID:   clientActor.ID,
		PayeeID:   1,
		Reference: "ref-test",
		Amount:    decimal.NewFromInt(1000),
		Method:    method,
		Status:    domain.PaymentStatusPending,
		CreatedAt: time.Now().Unix(),
	}
	if mutate != nil {
		mutate(&payment)
	}
	paymentID, _ = repo.AddPayment(context.Background(), payment)
	return orderID, paymentID
}

func TestInitiatePaymentAmountMismatch(t *testing.T) {
	repo, _, svc := newPaymentServiceForTest(&fakeGateway{providerRef: "mm-1"}, &fakeVerifier{valid: true})

	orderID := seedOrder(repo, domain.OrderStatusDelivered, nil)

	_, err := svc.InitiatePayment(context.Background(), dto.PaymentRequest{
		OrderID: orderID,
		PayerID: clientActor.ID,
		Amount:  decimal.NewFromInt(999),
		Method:  domain.PaymentMethodMobileMoney,
	}, clientActor)

	assert.ErrorIs(t, err, errs.ErrAmountMismatch)
}

func TestInitiatePaymentGatewayFailure(t *testing.T) {
	repo, _, svc := newPaymentServiceForTest(&fakeGateway{chargeErr: errGatewayDown}, &fakeVerifier{valid: true})

	orderID := seedOrder(repo, domain.OrderStatusDelivered, nil)

	_, err := svc.InitiatePayment(context.Background(), dto.PaymentRequest{
		OrderID: orderID,
		PayerID: clientActor.ID,
		Amount:  decimal.NewFromInt(1000),
		Method:  domain.PaymentMethodMobileMoney,
	}, clientActor)
	require.ErrorIs(t, err, errs.ErrGateway)

	payment, err := svc.GetPayment(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, domain.FailureReasonGateway, *payment.FailureReason)
}

func TestInitiatePaymentStartsPolling(t *testing.T) {
	repo, _, svc := newPaymentServiceForTest(&fakeGateway{providerRef: "mm-42"}, &fakeVerifier{valid: true})

	orderID := seedOrder(repo, domain.OrderStatusDelivered, nil)

	resp, err := svc.InitiatePayment(context.Background(), dto.PaymentRequest{
		OrderID: orderID,
		PayerID: clientActor.ID,
		Amount:  decimal.NewFromInt(1000),
		Method:  domain.PaymentMethodMobileMoney,
	}, clientActor)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusPending, resp.Status)
	require.NotNil(t, resp.ProviderRef)
	assert.Equal(t, "mm-42", *resp.ProviderRef)
	assert.True(t, svc.CancelPolling(resp.ID))
}

func TestInitiatePaymentDirectSkipsGateway(t *testing.T) {
	repo, _, svc := newPaymentServiceForTest(&fakeGateway{chargeErr: errGatewayDown}, &fakeVerifier{valid: true})

	orderID := seedOrder(repo, domain.OrderStatusDelivered, nil)

	resp, err := svc.InitiatePayment(context.Background(), dto.PaymentRequest{
		OrderID: orderID,
		PayerID: clientActor.ID,
		Amount:  decimal.NewFromInt(1000),
		Method:  domain.PaymentMethodDirect,
	}, clientActor)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusPending, resp.Status)
	assert.Nil(t, resp.ProviderRef)
	assert.False(t, svc.CancelPolling(resp.ID))
}

func TestConfirmIsIdempotent(t *testing.T) {
	repo, producer, svc := newPaymentServiceForTest(&fakeGateway{}, &fakeVerifier{valid: true})
	ctx := context.Background()

	orderID, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)

	first, err := svc.Confirm(ctx, paymentID, domain.PaymentStatusConfirmed, "rcpt-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, first.Status)

	// A duplicate signal returns the settled row and fires nothing.
	second, err := svc.Confirm(ctx, paymentID, domain.PaymentStatusFailed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, second.Status)

	order, err := repo.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, order.PaymentConfirmed)
	assert.Equal(t, 1, producer.countByType(dto.EventPaymentConfirmed))
	assert.Equal(t, 0, producer.countByType(dto.EventPaymentFailed))
}

func TestConfirmCommitFailureSurfacesError(t *testing.T) {
	repo, producer, svc := newPaymentServiceForTest(&fakeGateway{}, &fakeVerifier{valid: true})
	ctx := context.Background()

	orderID, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)
	repo.trxCommitErr = errCommitFailed

	// A commit failure means nothing was written; the caller must see the
	// error and no event may fire.
	_, err := svc.Confirm(ctx, paymentID, domain.PaymentStatusConfirmed, "")
	require.ErrorIs(t, err, errCommitFailed)

	payment, err := repo.GetPaymentByID(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)

	order, err := repo.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	assert.False(t, order.PaymentConfirmed)
	assert.Equal(t, 0, producer.countByType(dto.EventPaymentConfirmed))

	// Once the store recovers, the same confirmation goes through.
	repo.trxCommitErr = nil

	resp, err := svc.Confirm(ctx, paymentID, domain.PaymentStatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, resp.Status)
	assert.Equal(t, 1, producer.countByType(dto.EventPaymentConfirmed))
}

func TestConfirmRetriesLostCompareAndSet(t *testing.T) {
	repo, producer, svc := newPaymentServiceForTest(&fakeGateway{}, &fakeVerifier{valid: true})

	_, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)
	repo.paymentCASFailures = 1

	resp, err := svc.Confirm(context.Background(), paymentID, domain.PaymentStatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, resp.Status)
	assert.Equal(t, 1, producer.countByType(dto.EventPaymentConfirmed))
}

func TestPollingConfirmsPayment(t *testing.T) {
	gateway := &fakeGateway{statuses: []paymentgateway.Status{paymentgateway.StatusPending, paymentgateway.StatusConfirmed}}
	repo, producer, svc := newPaymentServiceForTest(gateway, &fakeVerifier{valid: true})

	orderID, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)
	svc.StartPolling(paymentID, "mm-1", domain.PaymentMethodMobileMoney)

	assert.Eventually(t, func() bool {
		payment, err := repo.GetPaymentByID(context.Background(), paymentID)
		return err == nil && payment.Status == domain.PaymentStatusConfirmed
	}, time.Second, time.Millisecond)

	order, err := repo.GetOrderByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, order.PaymentConfirmed)
	assert.Equal(t, 1, producer.countByType(dto.EventPaymentConfirmed))
}

func TestPollingTimeoutFailsPayment(t *testing.T) {
	// The gateway never reaches a terminal status.
	gateway := &fakeGateway{statuses: []paymentgateway.Status{paymentgateway.StatusPending}}
	repo, _, svc := newPaymentServiceForTest(gateway, &fakeVerifier{valid: true})

	orderID, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)
	svc.StartPolling(paymentID, "mm-1", domain.PaymentMethodMobileMoney)

	assert.Eventually(t, func() bool {
		payment, err := repo.GetPaymentByID(context.Background(), paymentID)
		return err == nil && payment.Status == domain.PaymentStatusFailed
	}, time.Second, time.Millisecond)

	payment, err := repo.GetPaymentByID(context.Background(), paymentID)
	require.NoError(t, err)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, domain.FailureReasonTimeout, *payment.FailureReason)

	order, err := repo.GetOrderByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.False(t, order.PaymentConfirmed)
}

func TestCancelPollingLeavesPaymentPending(t *testing.T) {
	gateway := &fakeGateway{statuses: []paymentgateway.Status{paymentgateway.StatusPending}}
	repo, _, svc := newPaymentServiceForTest(gateway, &fakeVerifier{valid: true})

	_, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)
	svc.StartPolling(paymentID, "mm-1", domain.PaymentMethodMobileMoney)

	require.True(t, svc.CancelPolling(paymentID))
	assert.False(t, svc.CancelPolling(paymentID))

	// Cancellation stops the local wait without failing the payment; give the
	// poller goroutine past its deadline to prove it does not fire.
	time.Sleep(80 * time.Millisecond)

	payment, err := repo.GetPaymentByID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)

	// A late webhook still finalizes it.
	err = svc.HandleWebhook(context.Background(), dto.PaymentNotification{
		OrderID:           "ref-test",
		TransactionStatus: "settlement",
		ReceiptID:         "rcpt-9",
	})
	require.NoError(t, err)

	payment, err = repo.GetPaymentByID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, payment.Status)
	require.NotNil(t, payment.ReceiptID)
	assert.Equal(t, "rcpt-9", *payment.ReceiptID)
}

func TestHandleWebhookBadSignature(t *testing.T) {
	repo, producer, svc := newPaymentServiceForTest(&fakeGateway{}, &fakeVerifier{valid: false})

	_, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)

	err := svc.HandleWebhook(context.Background(), dto.PaymentNotification{
		OrderID:           "ref-test",
		TransactionStatus: "settlement",
	})
	require.ErrorIs(t, err, errs.ErrInvalidSignature)

	payment, err := repo.GetPaymentByID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, 0, producer.countByType(dto.EventPaymentConfirmed))
}

func TestHandleWebhookPendingStatusIsNoop(t *testing.T) {
	repo, _, svc := newPaymentServiceForTest(&fakeGateway{}, &fakeVerifier{valid: true})

	_, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)

	err := svc.HandleWebhook(context.Background(), dto.PaymentNotification{
		OrderID:           "ref-test",
		TransactionStatus: "pending",
	})
	require.NoError(t, err)

	payment, err := repo.GetPaymentByID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
}

func TestHandleWebhookDenyFailsPayment(t *testing.T) {
	repo, producer, svc := newPaymentServiceForTest(&fakeGateway{}, &fakeVerifier{valid: true})

	_, paymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, nil)

	err := svc.HandleWebhook(context.Background(), dto.PaymentNotification{
		OrderID:           "ref-test",
		TransactionStatus: "deny",
	})
	require.NoError(t, err)

	payment, err := repo.GetPaymentByID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, domain.FailureReasonDeclined, *payment.FailureReason)
	assert.Equal(t, 1, producer.countByType(dto.EventPaymentFailed))
}

func TestDirectPaymentNeedsAdminConfirmation(t *testing.T) {
	repo, _, svc := newPaymentServiceForTest(&fakeGateway{}, &fakeVerifier{valid: true})
	ctx := context.Background()

	orderID, paymentID := seedPendingPayment(repo, domain.PaymentMethodDirect, nil)

	_, err := svc.Confirm(ctx, paymentID, domain.PaymentStatusConfirmed, "")
	assert.ErrorIs(t, err, errs.ErrNoPermission)

	_, err = svc.ConfirmByAdmin(ctx, paymentID, clientActor)
	assert.ErrorIs(t, err, errs.ErrNoPermission)

	resp, err := svc.ConfirmByAdmin(ctx, paymentID, adminActor)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, resp.Status)

	order, err := repo.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, order.PaymentConfirmed)
}

func TestSweepExpiredPayments(t *testing.T) {
	repo, producer, svc := newPaymentServiceForTest(&fakeGateway{}, &fakeVerifier{valid: true})
	ctx := context.Background()

	stale := time.Now().Add(-time.Hour).Unix()
	_, stalePaymentID := seedPendingPayment(repo, domain.PaymentMethodMobileMoney, func(p *domain.Payment) {
		p.CreatedAt = stale
	})
	_, directPaymentID := seedPendingPayment(repo, domain.PaymentMethodDirect, func(p *domain.Payment) {
		p.Reference = "ref-direct"
		p.CreatedAt = stale
	})
	_, freshPaymentID := seedPendingPayment(repo, domain.PaymentMethodCard, func(p *domain.Payment) {
		p.Reference = "ref-fresh"
	})

	svc.SweepExpiredPayments()

	payment, err := repo.GetPaymentByID(ctx, stalePaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, domain.FailureReasonTimeout, *payment.FailureReason)

	// Direct payments wait for the administrator regardless of age.
	payment, err = repo.GetPaymentByID(ctx, directPaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)

	payment, err = repo.GetPaymentByID(ctx, freshPaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)

	assert.Equal(t, 1, producer.countByType(dto.EventPaymentFailed))
}
