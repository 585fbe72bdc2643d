package repository

import (
	"context"

	"github.com/honeynil/BookShareService/internal/models"
)

//go:generate mockgen -source=book_repository.go -destination=mocks/book_repository_mock.go -package=repositorymocks

type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id string) (*models.Book, error)
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	UpdateStatus(ctx context.Context, id string, status models.BookStatus) error
}
