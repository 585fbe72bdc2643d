package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/BookShareService/internal/models"
	repository "github.com/honeynil/BookShareService/internal/repository/postgres"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/stretchr/testify/assert"
)

const (
	txID       = "1e2d3c4b-5a6f-4e7d-8c9b-0a1f2e3d4c5b"
	bookID     = "3c9f1e2d-4b5a-4c6d-8e7f-9a0b1c2d3e4f"
	ownerID    = "6f1c2a4e-8a57-4c43-9d0e-0d1b2a3c4d5e"
	borrowerID = "0b8e7d6c-5a4b-4c3d-8e2f-1a0b9c8d7e6f"
)

var transactionColumns = []string{"id", "type", "book_id", "offered_book_id", "borrower_id", "lender_id", "start_date", "end_date", "status", "notes", "created_at", "updated_at"}

func newRental() *models.Transaction {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	return &models.Transaction{
		Type:       models.TypeRental,
		BookID:     bookID,
		BorrowerID: borrowerID,
		LenderID:   ownerID,
		StartDate:  &start,
		EndDate:    &end,
		Status:     models.StatusPending,
	}
}

func TestPostgresTransactionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	insert := regexp.QuoteMeta(`INSERT INTO transactions (type, book_id, offered_book_id, borrower_id, lender_id, start_date, end_date, status, notes) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`)

	t.Run("NilTransaction", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilTransaction)
	})

	t.Run("InvalidType", func(t *testing.T) {
		tx := newRental()
		tx.Type = "sale"
		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionType)
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		tx := newRental()
		tx.Status = "approved"
		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionStatus)
	})

	t.Run("Success", func(t *testing.T) {
		tx := newRental()
		createdAt := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).
			WithArgs(tx.Type, tx.BookID, nil, tx.BorrowerID, tx.LenderID, *tx.StartDate, *tx.EndDate, tx.Status, "").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(txID, createdAt, createdAt))
		mock.ExpectCommit()

		err := repo.Create(ctx, tx)
		assert.NoError(t, err)
		assert.Equal(t, txID, tx.ID)
		assert.WithinDuration(t, createdAt, tx.CreatedAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExchangeWithoutDates", func(t *testing.T) {
		offered := "7d6c5b4a-3e2f-4a1b-9c0d-8e7f6a5b4c3d"
		tx := &models.Transaction{
			Type:          models.TypeExchange,
			BookID:        bookID,
			OfferedBookID: &offered,
			BorrowerID:    borrowerID,
			LenderID:      ownerID,
			Status:        models.StatusPending,
			Notes:         "swap?",
		}
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).
			WithArgs(tx.Type, tx.BookID, offered, tx.BorrowerID, tx.LenderID, nil, nil, tx.Status, "swap?").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(txID, now, now))
		mock.ExpectCommit()

		assert.NoError(t, repo.Create(ctx, tx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		tx := newRental()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.Create(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackError", func(t *testing.T) {
		tx := newRental()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback().WillReturnError(fmt.Errorf("rollback error"))

		err := repo.Create(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rollback failed")
		assert.Contains(t, err.Error(), "database error")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitError", func(t *testing.T) {
		tx := newRental()
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(txID, now, now))
		mock.ExpectCommit().WillReturnError(fmt.Errorf("commit error"))

		err := repo.Create(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT id, type, book_id, offered_book_id, borrower_id, lender_id, start_date, end_date, status, notes, created_at, updated_at FROM transactions WHERE id = $1`)

	t.Run("Success", func(t *testing.T) {
		start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs(txID).
			WillReturnRows(sqlmock.NewRows(transactionColumns).
				AddRow(txID, "rental", bookID, nil, borrowerID, ownerID, start, start.AddDate(0, 0, 7), "accepted", "", now, now))

		tx, err := repo.GetByID(ctx, txID)
		assert.NoError(t, err)
		assert.Equal(t, models.TypeRental, tx.Type)
		assert.Equal(t, models.StatusAccepted, tx.Status)
		assert.Nil(t, tx.OfferedBookID)
		assert.Equal(t, start, *tx.StartDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(txID).WillReturnError(sql.ErrNoRows)

		tx, err := repo.GetByID(ctx, txID)
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	t.Run("IncomingPending", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE lender_id = $1 AND status = $2 ORDER BY created_at DESC`)).
			WithArgs(ownerID, models.StatusPending).
			WillReturnRows(sqlmock.NewRows(transactionColumns).
				AddRow(txID, "rental", bookID, nil, borrowerID, ownerID, now, now.Add(time.Hour), "pending", "", now, now))

		txs, err := repo.List(ctx, models.TransactionFilter{UserID: ownerID, Direction: models.DirectionIncoming, Status: models.StatusPending})
		assert.NoError(t, err)
		assert.Len(t, txs, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AllExchanges", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE (borrower_id = $1 OR lender_id = $1) AND type = $2 ORDER BY created_at DESC`)).
			WithArgs(borrowerID, models.TypeExchange).
			WillReturnRows(sqlmock.NewRows(transactionColumns))

		txs, err := repo.List(ctx, models.TransactionFilter{UserID: borrowerID, Type: models.TypeExchange})
		assert.NoError(t, err)
		assert.Empty(t, txs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	updateTx := regexp.QuoteMeta(`UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`)
	updateBook := regexp.QuoteMeta(`UPDATE books SET status = $1, updated_at = NOW() WHERE id = $2`)

	t.Run("AcceptMarksBookBorrowed", func(t *testing.T) {
		borrowed := models.BookBorrowed
		mock.ExpectBegin()
		mock.ExpectExec(updateTx).WithArgs(models.StatusAccepted, txID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(updateBook).WithArgs(models.BookBorrowed, bookID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, txID, models.StatusAccepted, bookID, &borrowed)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StatusOnly", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(updateTx).WithArgs(models.StatusCancelled, txID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, txID, models.StatusCancelled, bookID, nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TransactionNotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(updateTx).WithArgs(models.StatusRejected, txID).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.UpdateStatus(ctx, txID, models.StatusRejected, bookID, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BookUpdateFailsRollsBack", func(t *testing.T) {
		available := models.BookAvailable
		mock.ExpectBegin()
		mock.ExpectExec(updateTx).WithArgs(models.StatusCompleted, txID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(updateBook).WithArgs(models.BookAvailable, bookID).WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.UpdateStatus(ctx, txID, models.StatusCompleted, bookID, &available)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update book status")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, txID, "approved", bookID, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionStatus)
	})
}

func TestPostgresTransactionRepository_CountOverlapping(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM transactions WHERE book_id = $1 AND type = 'rental' AND status IN ('pending', 'accepted') AND start_date < $3 AND end_date > $2`)).
		WithArgs(bookID, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountOverlapping(context.Background(), bookID, start, end)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
