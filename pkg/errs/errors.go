package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CodeInvalidState         = "INVALID_STATE"
	CodeSubmissionIncomplete = "SUBMISSION_INCOMPLETE"
	CodePaymentRequired      = "PAYMENT_REQUIRED"
	CodeAmountMismatch       = "AMOUNT_MISMATCH"
	CodeAmountBelowMinimum   = "AMOUNT_BELOW_MINIMUM"
	CodeUnknownService       = "UNKNOWN_SERVICE"
	CodeGatewayError         = "GATEWAY_ERROR"
	CodeTimeout              = "TIMEOUT"
)

var (
	ErrInternalServer   = errors.New("Internal server error")
	ErrClient           = errors.New("Bad request")
	ErrNotLoggedIn      = errors.New("Unauthorized access")
	ErrNoPermission     = errors.New("Forbidden access")
	ErrNotFound         = errors.New("Resource not found")
	ErrConflict         = errors.New("Conflicting record found")
	ErrUnknownService   = errors.New("Unknown service catalog key")
	ErrAmountMismatch   = errors.New("Payment amount does not match the order amount")
	ErrPaymentRequired  = errors.New("Payment must be confirmed before the order can be approved")
	ErrPaymentTerminal  = errors.New("Payment is already in a terminal state")
	ErrGateway          = errors.New("Payment gateway rejected the charge request")
	ErrPaymentTimeout   = errors.New("No payment confirmation arrived within the configured window")
	ErrInvalidSignature = errors.New("Webhook signature verification failed")
)

// TransitionError rejects an order event that is not legal from the order's
// current status. Carries both so the caller can render a precise message.
type TransitionError struct {
	CurrentState   string
	AttemptedEvent string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not allowed while the order is %q", e.AttemptedEvent, e.CurrentState)
}

// SubmissionIncompleteError lists every deliverable still missing from the
// freelancer's package, one entry per unmet requirement.
type SubmissionIncompleteError struct {
	Missing []string
}

func (e *SubmissionIncompleteError) Error() string {
	return fmt.Sprintf("submission is incomplete, missing: %s", strings.Join(e.Missing, ", "))
}

// AmountBelowMinimumError rejects a custom amount below the catalog-computed
// minimum; the minimum is included for display.
type AmountBelowMinimumError struct {
	Minimum decimal.Decimal
}

func (e *AmountBelowMinimumError) Error() string {
	return fmt.Sprintf("amount is below the computed minimum of %s", e.Minimum.StringFixed(2))
}

var errorMap = map[error]int{
	ErrInternalServer:   http.StatusInternalServerError,
	ErrClient:           http.StatusBadRequest,
	ErrNotLoggedIn:      http.StatusUnauthorized,
	ErrNoPermission:     http.StatusForbidden,
	ErrNotFound:         http.StatusNotFound,
	ErrConflict:         http.StatusConflict,
	ErrUnknownService:   http.StatusBadRequest,
	ErrAmountMismatch:   http.StatusUnprocessableEntity,
	ErrPaymentRequired:  http.StatusPaymentRequired,
	ErrPaymentTerminal:  http.StatusConflict,
	ErrGateway:          http.StatusBadGateway,
	ErrPaymentTimeout:   http.StatusGatewayTimeout,
	ErrInvalidSignature: http.StatusForbidden,
}

func GetErrorStatusCode(err error) int {
	var transitionErr *TransitionError
	var submissionErr *SubmissionIncompleteError
	var belowMinErr *AmountBelowMinimumError

	switch {
	case errors.As(err, &transitionErr):
		return http.StatusConflict
	case errors.As(err, &submissionErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &belowMinErr):
		return http.StatusUnprocessableEntity
	}

	for sentinel, statusCode := range errorMap {
		if errors.Is(err, sentinel) {
			return statusCode
		}
	}

	return http.StatusInternalServerError
}

// GetErrorCode maps an error to the stable machine-readable code exposed in
// responses and events.
func GetErrorCode(err error) string {
	var transitionErr *TransitionError
	var submissionErr *SubmissionIncompleteError
	var belowMinErr *AmountBelowMinimumError

	switch {
	case errors.As(err, &transitionErr):
		return CodeInvalidState
	case errors.As(err, &submissionErr):
		return CodeSubmissionIncomplete
	case errors.As(err, &belowMinErr):
		return CodeAmountBelowMinimum
	case errors.Is(err, ErrPaymentRequired):
		return CodePaymentRequired
	case errors.Is(err, ErrAmountMismatch):
		return CodeAmountMismatch
	case errors.Is(err, ErrUnknownService):
		return CodeUnknownService
	case errors.Is(err, ErrGateway):
		return CodeGatewayError
	case errors.Is(err, ErrPaymentTimeout):
		return CodeTimeout
	}

	return ""
}
