package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	transactionTracer  = "transaction-repository"
	transactionColumns = `id, type, book_id, offered_book_id, borrower_id, lender_id, start_date, end_date, status, notes, created_at, updated_at`
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, finish := observe(ctx, transactionTracer, "CreateTransaction")
	defer func() { finish(err) }()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return err
	}

	if !tx.Type.Valid() {
		err = pkgerrors.ErrInvalidTransactionType
		slog.Error("invalid transaction type", "method", "Create", "type", tx.Type, "error", err)
		return err
	}

	if !tx.Status.Valid() {
		err = pkgerrors.ErrInvalidTransactionStatus
		slog.Error("invalid transaction status", "method", "Create", "status", tx.Status, "error", err)
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT INTO transactions (type, book_id, offered_book_id, borrower_id, lender_id, start_date, end_date, status, notes) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`
	err = dbTx.QueryRowContext(ctx, query,
		tx.Type, tx.BookID, nullString(tx.OfferedBookID), tx.BorrowerID, tx.LenderID,
		nullTime(tx.StartDate), nullTime(tx.EndDate), tx.Status, tx.Notes,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		err = rollback(dbTx, "Create", err)
		slog.Error("failed to create transaction", "method", "Create", "book_id", tx.BookID, "borrower_id", tx.BorrowerID, "type", tx.Type, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("transaction created", "method", "Create", "id", tx.ID, "book_id", tx.BookID, "borrower_id", tx.BorrowerID, "lender_id", tx.LenderID, "type", tx.Type)
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (_ *models.Transaction, err error) {
	ctx, finish := observe(ctx, transactionTracer, "GetTransactionByID", attribute.String("transaction_id", id))
	defer func() { finish(err) }()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("transaction not found", "method", "GetByID", "transaction_id", id)
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}

	slog.Debug("transaction retrieved", "method", "GetByID", "transaction_id", id, "type", tx.Type, "status", tx.Status)
	return tx, nil
}

func (r *PostgresTransactionRepository) List(ctx context.Context, filter models.TransactionFilter) (_ []models.Transaction, err error) {
	ctx, finish := observe(ctx, transactionTracer, "ListTransactions", attribute.String("user_id", filter.UserID))
	defer func() { finish(err) }()

	args := []any{filter.UserID}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE `
	switch filter.Direction {
	case models.DirectionIncoming:
		query += `lender_id = $1`
	case models.DirectionOutgoing:
		query += `borrower_id = $1`
	default:
		query += `(borrower_id = $1 OR lender_id = $1)`
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("failed to list transactions", "method", "List", "user_id", filter.UserID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *PostgresTransactionRepository) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus, bookID string, bookStatus *models.BookStatus) (err error) {
	ctx, finish := observe(ctx, transactionTracer, "UpdateTransactionStatus",
		attribute.String("transaction_id", id), attribute.String("status", string(status)))
	defer func() { finish(err) }()

	if !status.Valid() {
		err = pkgerrors.ErrInvalidTransactionStatus
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "UpdateStatus", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		err = rollback(dbTx, "UpdateStatus", err)
		slog.Error("failed to update transaction status", "method", "UpdateStatus", "transaction_id", id, "error", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = rollback(dbTx, "UpdateStatus", pkgerrors.ErrTransactionNotFound)
		return err
	}

	if bookStatus != nil {
		res, err = dbTx.ExecContext(ctx, `UPDATE books SET status = $1, updated_at = NOW() WHERE id = $2`, *bookStatus, bookID)
		if err != nil {
			err = rollback(dbTx, "UpdateStatus", err)
			slog.Error("failed to update book status", "method", "UpdateStatus", "book_id", bookID, "error", err)
			return fmt.Errorf("failed to update book status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			err = rollback(dbTx, "UpdateStatus", pkgerrors.ErrBookNotFound)
			return err
		}
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "UpdateStatus", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("transaction status updated", "method", "UpdateStatus", "transaction_id", id, "status", status, "book_id", bookID)
	return nil
}

func (r *PostgresTransactionRepository) CountOverlapping(ctx context.Context, bookID string, start, end time.Time) (_ int, err error) {
	ctx, finish := observe(ctx, transactionTracer, "CountOverlappingRentals", attribute.String("book_id", bookID))
	defer func() { finish(err) }()

	query := `SELECT COUNT(*) FROM transactions WHERE book_id = $1 AND type = 'rental' AND status IN ('pending', 'accepted') AND start_date < $3 AND end_date > $2`
	var count int
	if err = r.db.QueryRowContext(ctx, query, bookID, start, end).Scan(&count); err != nil {
		slog.Error("failed to count overlapping rentals", "method", "CountOverlapping", "book_id", bookID, "error", err)
		return 0, fmt.Errorf("failed to count overlapping rentals: %w", err)
	}
	return count, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx      models.Transaction
		offered sql.NullString
		start   sql.NullTime
		end     sql.NullTime
	)
	err := row.Scan(&tx.ID, &tx.Type, &tx.BookID, &offered, &tx.BorrowerID, &tx.LenderID,
		&start, &end, &tx.Status, &tx.Notes, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if offered.Valid {
		tx.OfferedBookID = &offered.String
	}
	if start.Valid {
		tx.StartDate = &start.Time
	}
	if end.Valid {
		tx.EndDate = &end.Time
	}
	return &tx, nil
}
