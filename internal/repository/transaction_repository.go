package repository

import (
	"context"
	"time"

	"github.com/honeynil/BookShareService/internal/models"
)

//go:generate mockgen -source=transaction_repository.go -destination=mocks/transaction_repository_mock.go -package=repositorymocks

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	// UpdateStatus writes the transaction status and, when bookStatus is not
	// nil, the book status in the same database transaction.
	UpdateStatus(ctx context.Context, id string, status models.TransactionStatus, bookID string, bookStatus *models.BookStatus) error
	CountOverlapping(ctx context.Context, bookID string, start, end time.Time) (int, error)
}
