package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const PaymentMethodEsewa = "esewa"

type Payment struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	BookID        string          `json:"book_id"`
	BorrowerID    string          `json:"borrower_id"`
	LenderID      string          `json:"lender_id"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	Status        PaymentStatus   `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	RefID         string          `json:"ref_id,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// CheckoutForm is what the browser posts to the gateway's hosted payment page.
type CheckoutForm struct {
	Action string            `json:"action"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields"`
}

type PaymentCheckout struct {
	Payment *Payment     `json:"payment"`
	Form    CheckoutForm `json:"form"`
}
