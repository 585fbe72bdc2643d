package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/BookShareService/internal/models"
	repository "github.com/honeynil/BookShareService/internal/repository/postgres"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const paymentID = "5b4a3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d"

func TestPostgresPaymentRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPaymentRepository(db)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	newPayment := func() *models.Payment {
		return &models.Payment{
			Amount:        decimal.NewFromInt(35),
			BookID:        bookID,
			BorrowerID:    borrowerID,
			LenderID:      ownerID,
			StartDate:     start,
			EndDate:       start.AddDate(0, 0, 7),
			Status:        models.PaymentPending,
			PaymentMethod: models.PaymentMethodEsewa,
		}
	}

	t.Run("NilPayment", func(t *testing.T) {
		assert.ErrorIs(t, repo.Create(ctx, nil), pkgerrors.ErrNilPayment)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		p := newPayment()
		p.Status = "settled"
		assert.ErrorIs(t, repo.Create(ctx, p), pkgerrors.ErrInvalidPaymentStatus)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		p := newPayment()
		p.Amount = decimal.Zero
		err := repo.Create(ctx, p)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "amount must be positive")
	})

	t.Run("Success", func(t *testing.T) {
		p := newPayment()
		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO payments (amount, book_id, borrower_id, lender_id, start_date, end_date, status, payment_method) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`)).
			WithArgs("35", bookID, borrowerID, ownerID, p.StartDate, p.EndDate, models.PaymentPending, "esewa").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(paymentID, now, now))

		assert.NoError(t, repo.Create(ctx, p))
		assert.Equal(t, paymentID, p.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresPaymentRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPaymentRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT id, amount, book_id, borrower_id, lender_id, start_date, end_date, status, payment_method, ref_id, error_message, created_at, updated_at FROM payments WHERE id = $1`)
	columns := []string{"id", "amount", "book_id", "borrower_id", "lender_id", "start_date", "end_date", "status", "payment_method", "ref_id", "error_message", "created_at", "updated_at"}

	t.Run("Success", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs(paymentID).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(paymentID, "35.00", bookID, borrowerID, ownerID, now, now.AddDate(0, 0, 7), "completed", "esewa", "0001TS9", "", now, now))

		p, err := repo.GetByID(ctx, paymentID)
		assert.NoError(t, err)
		assert.True(t, p.Amount.Equal(decimal.NewFromInt(35)))
		assert.Equal(t, models.PaymentCompleted, p.Status)
		assert.Equal(t, "0001TS9", p.RefID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(paymentID).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, paymentID)
		assert.ErrorIs(t, err, pkgerrors.ErrPaymentNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresPaymentRepository_Mark(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPaymentRepository(db)
	ctx := context.Background()

	complete := regexp.QuoteMeta(`UPDATE payments SET status = 'completed', ref_id = $1, updated_at = NOW() WHERE id = $2 AND status = 'pending'`)
	failed := regexp.QuoteMeta(`UPDATE payments SET status = 'failed', error_message = $1, updated_at = NOW() WHERE id = $2 AND status = 'pending'`)

	t.Run("CompletePending", func(t *testing.T) {
		mock.ExpectExec(complete).WithArgs("0001TS9", paymentID).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.MarkCompleted(ctx, paymentID, "0001TS9"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CompleteAlreadyProcessed", func(t *testing.T) {
		mock.ExpectExec(complete).WithArgs("0001TS9", paymentID).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.MarkCompleted(ctx, paymentID, "0001TS9"), pkgerrors.ErrPaymentAlreadyProcessed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FailPending", func(t *testing.T) {
		mock.ExpectExec(failed).WithArgs("Payment verification failed", paymentID).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.MarkFailed(ctx, paymentID, "Payment verification failed"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FailAlreadyProcessed", func(t *testing.T) {
		mock.ExpectExec(failed).WithArgs("Payment verification failed", paymentID).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.MarkFailed(ctx, paymentID, "Payment verification failed"), pkgerrors.ErrPaymentAlreadyProcessed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
