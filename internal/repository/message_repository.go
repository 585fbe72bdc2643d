package repository

import (
	"context"

	"github.com/honeynil/BookShareService/internal/models"
)

//go:generate mockgen -source=message_repository.go -destination=mocks/message_repository_mock.go -package=repositorymocks

type MessageRepository interface {
	FindOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	// Create inserts the message and bumps the conversation's last_message_at atomically.
	Create(ctx context.Context, msg *models.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	MarkRead(ctx context.Context, id, receiverID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}
