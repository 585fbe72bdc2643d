package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicTransactions = "transactions"
	TopicPayments     = "payments"
)

type EventType string

const (
	EventTransactionRequested     EventType = "transaction.requested"
	EventTransactionStatusChanged EventType = "transaction.status_changed"
	EventPaymentCompleted         EventType = "payment.completed"
	EventPaymentFailed            EventType = "payment.failed"
)

// Event is the payload published to Kafka for every state change other
// parties may want to hear about.
type Event struct {
	Type            EventType        `json:"type"`
	TransactionID   string           `json:"transaction_id,omitempty"`
	TransactionType TransactionType  `json:"transaction_type,omitempty"`
	PaymentID       string           `json:"payment_id,omitempty"`
	BookID          string           `json:"book_id"`
	BorrowerID      string           `json:"borrower_id"`
	LenderID        string           `json:"lender_id"`
	ActorID         string           `json:"actor_id,omitempty"`
	Status          string           `json:"status"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// Key is the Kafka message key; events about one entity stay ordered.
func (e Event) Key() string {
	if e.TransactionID != "" {
		return e.TransactionID
	}
	return e.PaymentID
}
