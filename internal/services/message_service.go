package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	"github.com/honeynil/BookShareService/internal/models"
	"github.com/honeynil/BookShareService/internal/repository"
	"github.com/honeynil/BookShareService/internal/validation"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type SendMessageInput struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
	Content    string `json:"content" validate:"required,max=5000"`
}

//go:generate mockgen -source=message_service.go -destination=mocks/message_service_mock.go -package=servicemocks

type MessageService interface {
	Send(ctx context.Context, session models.Session, in SendMessageInput) (*models.Message, error)
	Conversations(ctx context.Context, session models.Session) ([]models.Conversation, error)
	Messages(ctx context.Context, session models.Session, conversationID string) ([]models.Message, error)
	MarkRead(ctx context.Context, session models.Session, id string) error
}

type messageService struct {
	messageRepo   repository.MessageRepository
	userRepo      repository.UserRepository
	notifications NotificationService
	redisClient   redis.RedisClient
	validator     *validation.Validator
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	notifications NotificationService,
	redisClient redis.RedisClient,
	validator *validation.Validator,
) *messageService {
	return &messageService{
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		notifications: notifications,
		redisClient:   redisClient,
		validator:     validator,
	}
}

func (s *messageService) Send(ctx context.Context, session models.Session, in SendMessageInput) (*models.Message, error) {
	tracer := otel.Tracer("message-service")
	ctx, span := tracer.Start(ctx, "SendMessage")
	span.SetAttributes(attribute.String("sender_id", session.UserID), attribute.String("receiver_id", in.ReceiverID))
	defer span.End()

	in.Content = strings.TrimSpace(in.Content)
	if err := s.validator.Validate(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}
	if in.ReceiverID == session.UserID {
		span.SetStatus(codes.Error, "message to self")
		return nil, pkgerrors.FieldError("receiver_id", "cannot message yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, in.ReceiverID); err != nil {
		fail(span, err, "receiver lookup failed")
		return nil, err
	}

	conv, err := s.messageRepo.FindOrCreateConversation(ctx, session.UserID, in.ReceiverID)
	if err != nil {
		fail(span, err, "conversation lookup failed")
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       session.UserID,
		ReceiverID:     in.ReceiverID,
		Content:        in.Content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		fail(span, err, "message creation failed")
		return nil, err
	}

	err = s.notifications.Notify(ctx, &models.Notification{
		UserID:    in.ReceiverID,
		Type:      models.NotificationMessage,
		Title:     "New message",
		Message:   preview(msg.Content, 80),
		ActionURL: "/messages/" + conv.ID,
		Metadata:  map[string]string{"conversation_id": conv.ID, "sender_id": session.UserID},
	})
	if err != nil {
		slog.Error("failed to notify receiver", "message_id", msg.ID, "error", err)
	}

	return msg, nil
}

func (s *messageService) Conversations(ctx context.Context, session models.Session) ([]models.Conversation, error) {
	tracer := otel.Tracer("message-service")
	ctx, span := tracer.Start(ctx, "ListConversations")
	defer span.End()

	convs, err := s.messageRepo.ListConversations(ctx, session.UserID)
	if err != nil {
		fail(span, err, "conversation listing failed")
		return nil, err
	}
	return convs, nil
}

func (s *messageService) Messages(ctx context.Context, session models.Session, conversationID string) ([]models.Message, error) {
	tracer := otel.Tracer("message-service")
	ctx, span := tracer.Start(ctx, "ListMessages")
	span.SetAttributes(attribute.String("conversation_id", conversationID))
	defer span.End()

	conversationID, err := parseID("id", conversationID)
	if err != nil {
		return nil, err
	}

	conv, err := s.messageRepo.GetConversation(ctx, conversationID)
	if err != nil {
		fail(span, err, "conversation lookup failed")
		return nil, err
	}
	if !conv.HasParticipant(session.UserID) {
		span.SetStatus(codes.Error, "not participant")
		return nil, pkgerrors.ErrNotParticipant
	}

	msgs, err := s.messageRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		fail(span, err, "message listing failed")
		return nil, err
	}
	return msgs, nil
}

func (s *messageService) MarkRead(ctx context.Context, session models.Session, id string) error {
	tracer := otel.Tracer("message-service")
	ctx, span := tracer.Start(ctx, "MarkMessageRead")
	defer span.End()

	id, err := parseID("id", id)
	if err != nil {
		return err
	}
	if err := s.messageRepo.MarkRead(ctx, id, session.UserID); err != nil {
		fail(span, err, "mark read failed")
		return err
	}
	invalidateUnread(ctx, s.redisClient, session.UserID)
	return nil
}

func preview(content string, limit int) string {
	r := []rune(content)
	if len(r) <= limit {
		return content
	}
	return string(r[:limit]) + "..."
}
