package repository

import (
	"context"

	"github.com/honeynil/BookShareService/internal/models"
)

//go:generate mockgen -source=payment_repository.go -destination=mocks/payment_repository_mock.go -package=repositorymocks

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
	// MarkCompleted and MarkFailed only touch pending rows and return
	// ErrPaymentAlreadyProcessed otherwise.
	MarkCompleted(ctx context.Context, id, refID string) error
	MarkFailed(ctx context.Context, id, reason string) error
}
