package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTransactionStatus(t *testing.T) {
	tests := []struct {
		raw    string
		want   TransactionStatus
		wantOK bool
	}{
		{"pending", StatusPending, true},
		{"accepted", StatusAccepted, true},
		{"approved", StatusAccepted, true},
		{" Rejected ", StatusRejected, true},
		{"completed", StatusCompleted, true},
		{"cancelled", StatusCancelled, true},
		{"returned", TransactionStatus("returned"), false},
		{"", TransactionStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseTransactionStatus(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTransaction_Participants(t *testing.T) {
	tx := &Transaction{BorrowerID: "b", LenderID: "l"}

	assert.True(t, tx.IsParticipant("b"))
	assert.True(t, tx.IsParticipant("l"))
	assert.False(t, tx.IsParticipant("x"))
	assert.False(t, tx.IsParticipant(""))
	assert.Equal(t, "l", tx.Counterparty("b"))
	assert.Equal(t, "b", tx.Counterparty("l"))
}

func TestEnums(t *testing.T) {
	assert.True(t, ConditionLikeNew.Valid())
	assert.False(t, BookCondition("mint").Valid())
	assert.True(t, BookBorrowed.Valid())
	assert.False(t, BookStatus("lost").Valid())
	assert.True(t, PaymentRefunded.Valid())
	assert.False(t, PaymentStatus("void").Valid())
}

func TestEvent_Key(t *testing.T) {
	assert.Equal(t, "tx-1", Event{TransactionID: "tx-1", PaymentID: "p-1"}.Key())
	assert.Equal(t, "p-1", Event{PaymentID: "p-1"}.Key())
}
