package repository

import (
	"context"

	"github.com/honeynil/BookShareService/internal/models"
)

//go:generate mockgen -source=user_repository.go -destination=mocks/user_repository_mock.go -package=repositorymocks

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}
