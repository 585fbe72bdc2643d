package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUserNotFound              = errors.New("user not found")
	ErrUserAlreadyExists         = errors.New("user already exists")
	ErrNilUser                   = errors.New("user is nil")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrSessionNotFound           = errors.New("session not found or revoked")
	ErrBookNotFound              = errors.New("book not found")
	ErrNilBook                   = errors.New("book is nil")
	ErrNotBookOwner              = errors.New("caller does not own the book")
	ErrBookUnavailable           = errors.New("book is not available")
	ErrNilTransaction            = errors.New("transaction is nil")
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrInvalidTransactionType    = errors.New("invalid transaction type")
	ErrInvalidTransactionStatus  = errors.New("invalid transaction status")
	ErrNotParticipant            = errors.New("caller is not a participant of the transaction")
	ErrNotLender                 = errors.New("only the lender can accept or reject a request")
	ErrSelfTransaction           = errors.New("cannot borrow or exchange your own book")
	ErrInvalidDateRange          = errors.New("end date must be after start date")
	ErrOverlappingRental         = errors.New("book already has a rental in that period")
	ErrNilPayment                = errors.New("payment is nil")
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrInvalidPaymentStatus      = errors.New("invalid payment status")
	ErrPaymentAlreadyProcessed   = errors.New("payment already processed")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrAmountMismatch            = errors.New("payment amount does not match")
	ErrRequestAlreadyProcessed   = errors.New("request already processed")
	ErrNotificationNotFound      = errors.New("notification not found")
	ErrConversationNotFound      = errors.New("conversation not found")
	ErrMessageNotFound           = errors.New("message not found")
	ErrInvalidInput              = errors.New("invalid input")
	ErrInternal                  = fmt.Errorf("internal error")
)

// ValidationError carries per-field messages. It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// FieldError is a shortcut for a single-field validation failure.
func FieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
