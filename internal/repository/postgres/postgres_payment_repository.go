package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentTracer  = "payment-repository"
	paymentColumns = `id, amount, book_id, borrower_id, lender_id, start_date, end_date, status, payment_method, ref_id, error_message, created_at, updated_at`
)

type PostgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

func (r *PostgresPaymentRepository) Create(ctx context.Context, p *models.Payment) (err error) {
	ctx, finish := observe(ctx, paymentTracer, "CreatePayment")
	defer func() { finish(err) }()

	if p == nil {
		err = pkgerrors.ErrNilPayment
		slog.Error("failed to create payment", "method", "Create", "error", err)
		return err
	}
	if !p.Status.Valid() {
		err = pkgerrors.ErrInvalidPaymentStatus
		return err
	}
	if !p.Amount.IsPositive() {
		err = fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidInput)
		slog.Error("amount must be positive", "method", "Create", "amount", p.Amount.String(), "error", err)
		return err
	}

	query := `INSERT INTO payments (amount, book_id, borrower_id, lender_id, start_date, end_date, status, payment_method) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		p.Amount, p.BookID, p.BorrowerID, p.LenderID, p.StartDate, p.EndDate, p.Status, p.PaymentMethod,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		slog.Error("failed to create payment", "method", "Create", "book_id", p.BookID, "borrower_id", p.BorrowerID, "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	slog.Info("payment created", "method", "Create", "id", p.ID, "book_id", p.BookID, "amount", p.Amount.String())
	return nil
}

func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id string) (_ *models.Payment, err error) {
	ctx, finish := observe(ctx, paymentTracer, "GetPaymentByID", attribute.String("payment_id", id))
	defer func() { finish(err) }()

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("payment not found", "method", "GetByID", "payment_id", id)
		return nil, pkgerrors.ErrPaymentNotFound
	}
	if err != nil {
		slog.Error("failed to get payment by id", "method", "GetByID", "payment_id", id, "error", err)
		return nil, fmt.Errorf("failed to get payment by id: %w", err)
	}
	return p, nil
}

func (r *PostgresPaymentRepository) ListByUser(ctx context.Context, userID string) (_ []models.Payment, err error) {
	ctx, finish := observe(ctx, paymentTracer, "ListPayments", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE borrower_id = $1 OR lender_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Error("failed to list payments", "method", "ListByUser", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		p, scanErr := scanPayment(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func (r *PostgresPaymentRepository) MarkCompleted(ctx context.Context, id, refID string) (err error) {
	ctx, finish := observe(ctx, paymentTracer, "MarkPaymentCompleted", attribute.String("payment_id", id))
	defer func() { finish(err) }()

	query := `UPDATE payments SET status = 'completed', ref_id = $1, updated_at = NOW() WHERE id = $2 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, refID, id)
	if err != nil {
		slog.Error("failed to complete payment", "method", "MarkCompleted", "payment_id", id, "error", err)
		return fmt.Errorf("failed to complete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = pkgerrors.ErrPaymentAlreadyProcessed
		return err
	}

	slog.Info("payment completed", "method", "MarkCompleted", "payment_id", id, "ref_id", refID)
	return nil
}

func (r *PostgresPaymentRepository) MarkFailed(ctx context.Context, id, reason string) (err error) {
	ctx, finish := observe(ctx, paymentTracer, "MarkPaymentFailed", attribute.String("payment_id", id))
	defer func() { finish(err) }()

	query := `UPDATE payments SET status = 'failed', error_message = $1, updated_at = NOW() WHERE id = $2 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, reason, id)
	if err != nil {
		slog.Error("failed to mark payment failed", "method", "MarkFailed", "payment_id", id, "error", err)
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = pkgerrors.ErrPaymentAlreadyProcessed
		return err
	}

	slog.Info("payment failed", "method", "MarkFailed", "payment_id", id, "reason", reason)
	return nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.Amount, &p.BookID, &p.BorrowerID, &p.LenderID, &p.StartDate, &p.EndDate,
		&p.Status, &p.PaymentMethod, &p.RefID, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
