package models

import (
	"strings"
	"time"
)

type Transaction struct {
	ID            string            `json:"id"`
	Type          TransactionType   `json:"type"`
	BookID        string            `json:"book_id"`
	OfferedBookID *string           `json:"offered_book_id,omitempty"`
	BorrowerID    string            `json:"borrower_id"`
	LenderID      string            `json:"lender_id"`
	StartDate     *time.Time        `json:"start_date,omitempty"`
	EndDate       *time.Time        `json:"end_date,omitempty"`
	Status        TransactionStatus `json:"status"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsParticipant reports whether userID is the borrower or the lender.
func (t *Transaction) IsParticipant(userID string) bool {
	return userID != "" && (t.BorrowerID == userID || t.LenderID == userID)
}

// Counterparty returns the other side of the transaction for userID.
func (t *Transaction) Counterparty(userID string) string {
	if t.BorrowerID == userID {
		return t.LenderID
	}
	return t.BorrowerID
}

type TransactionType string

const (
	TypeRental   TransactionType = "rental"
	TypeExchange TransactionType = "exchange"
)

func (t TransactionType) Valid() bool {
	return t == TypeRental || t == TypeExchange
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusAccepted  TransactionStatus = "accepted"
	StatusRejected  TransactionStatus = "rejected"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ParseTransactionStatus accepts the enum values plus the legacy "approved" spelling.
func ParseTransactionStatus(raw string) (TransactionStatus, bool) {
	s := TransactionStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "approved" {
		return StatusAccepted, true
	}
	return s, s.Valid()
}

type TransactionDirection string

const (
	DirectionAll      TransactionDirection = "all"
	DirectionIncoming TransactionDirection = "incoming"
	DirectionOutgoing TransactionDirection = "outgoing"
)

// TransactionFilter selects transactions for one user.
type TransactionFilter struct {
	UserID    string
	Direction TransactionDirection
	Status    TransactionStatus
	Type      TransactionType
}
