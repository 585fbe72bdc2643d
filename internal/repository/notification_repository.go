package repository

import (
	"context"

	"github.com/honeynil/BookShareService/internal/models"
)

//go:generate mockgen -source=notification_repository.go -destination=mocks/notification_repository_mock.go -package=repositorymocks

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
}
