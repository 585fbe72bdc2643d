package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	"github.com/honeynil/BookShareService/internal/models"
	"github.com/honeynil/BookShareService/internal/repository"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	unreadCountsTTL      = 30 * time.Second
	defaultNotifications = 50
	maxNotifications     = 200
)

//go:generate mockgen -source=notification_service.go -destination=mocks/notification_service_mock.go -package=servicemocks

type NotificationService interface {
	List(ctx context.Context, session models.Session, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCounts(ctx context.Context, session models.Session) (*models.UnreadCounts, error)
	MarkRead(ctx context.Context, session models.Session, id string) error
	MarkAllRead(ctx context.Context, session models.Session) (int64, error)
	Delete(ctx context.Context, session models.Session, id string) error
	Notify(ctx context.Context, n *models.Notification) error
	HandleEvent(ctx context.Context, event models.Event) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	messageRepo      repository.MessageRepository
	redisClient      redis.RedisClient
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	messageRepo repository.MessageRepository,
	redisClient redis.RedisClient,
) *notificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		messageRepo:      messageRepo,
		redisClient:      redisClient,
	}
}

func (s *notificationService) List(ctx context.Context, session models.Session, unreadOnly bool, limit int) ([]models.Notification, error) {
	tracer := otel.Tracer("notification-service")
	ctx, span := tracer.Start(ctx, "ListNotifications")
	defer span.End()

	if limit <= 0 {
		limit = defaultNotifications
	}
	if limit > maxNotifications {
		limit = maxNotifications
	}

	list, err := s.notificationRepo.ListByUser(ctx, session.UserID, unreadOnly, limit)
	if err != nil {
		fail(span, err, "notification listing failed")
		return nil, err
	}
	return list, nil
}

// UnreadCounts backs the header badge; it is cached briefly and dropped on
// every change to the user's notifications or messages.
func (s *notificationService) UnreadCounts(ctx context.Context, session models.Session) (*models.UnreadCounts, error) {
	tracer := otel.Tracer("notification-service")
	ctx, span := tracer.Start(ctx, "UnreadCounts")
	defer span.End()

	key := unreadCacheKey(session.UserID)
	cached, err := s.redisClient.Get(ctx, key)
	if err == nil {
		var counts models.UnreadCounts
		if err := json.Unmarshal([]byte(cached), &counts); err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return &counts, nil
		}
		slog.Warn("dropping malformed unread counts", "key", key)
	} else if !errors.Is(err, redis.ErrKeyNotFound) {
		slog.Error("failed to read unread counts from cache", "key", key, "error", err)
	}

	notifications, err := s.notificationRepo.CountUnread(ctx, session.UserID)
	if err != nil {
		fail(span, err, "notification count failed")
		return nil, err
	}
	messages, err := s.messageRepo.CountUnread(ctx, session.UserID)
	if err != nil {
		fail(span, err, "message count failed")
		return nil, err
	}
	counts := &models.UnreadCounts{Messages: messages, Notifications: notifications}

	if data, err := json.Marshal(counts); err == nil {
		if err := s.redisClient.Set(ctx, key, data, unreadCountsTTL); err != nil {
			slog.Error("failed to cache unread counts", "key", key, "error", err)
		}
	}
	return counts, nil
}

func (s *notificationService) MarkRead(ctx context.Context, session models.Session, id string) error {
	tracer := otel.Tracer("notification-service")
	ctx, span := tracer.Start(ctx, "MarkNotificationRead")
	defer span.End()

	id, err := parseID("id", id)
	if err != nil {
		return err
	}
	if err := s.notificationRepo.MarkRead(ctx, id, session.UserID); err != nil {
		fail(span, err, "mark read failed")
		return err
	}
	invalidateUnread(ctx, s.redisClient, session.UserID)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, session models.Session) (int64, error) {
	tracer := otel.Tracer("notification-service")
	ctx, span := tracer.Start(ctx, "MarkAllNotificationsRead")
	defer span.End()

	n, err := s.notificationRepo.MarkAllRead(ctx, session.UserID)
	if err != nil {
		fail(span, err, "mark all read failed")
		return 0, err
	}
	invalidateUnread(ctx, s.redisClient, session.UserID)
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, session models.Session, id string) error {
	tracer := otel.Tracer("notification-service")
	ctx, span := tracer.Start(ctx, "DeleteNotification")
	defer span.End()

	id, err := parseID("id", id)
	if err != nil {
		return err
	}
	if err := s.notificationRepo.Delete(ctx, id, session.UserID); err != nil {
		fail(span, err, "delete failed")
		return err
	}
	invalidateUnread(ctx, s.redisClient, session.UserID)
	return nil
}

func (s *notificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n == nil || n.UserID == "" {
		return pkgerrors.FieldError("user_id", "is required")
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	invalidateUnread(ctx, s.redisClient, n.UserID)
	return nil
}

// HandleEvent turns domain events from Kafka into notifications for the
// party that did not cause them. Unknown event types are ignored.
func (s *notificationService) HandleEvent(ctx context.Context, event models.Event) error {
	tracer := otel.Tracer("notification-service")
	ctx, span := tracer.Start(ctx, "HandleEvent")
	span.SetAttributes(attribute.String("event_type", string(event.Type)), attribute.String("key", event.Key()))
	defer span.End()

	n := notificationFor(event)
	if n == nil {
		slog.Debug("ignoring event", "type", event.Type)
		return nil
	}
	if err := s.Notify(ctx, n); err != nil {
		fail(span, err, "notify failed")
		return err
	}
	return nil
}

func notificationFor(event models.Event) *models.Notification {
	meta := map[string]string{"book_id": event.BookID}

	switch event.Type {
	case models.EventTransactionRequested:
		meta["transaction_id"] = event.TransactionID
		title, msg := "New rental request", "Someone wants to borrow your book."
		if event.TransactionType == models.TypeExchange {
			title, msg = "New exchange proposal", "Someone offered a book in exchange for yours."
		}
		return &models.Notification{
			UserID:    event.LenderID,
			Type:      models.NotificationRentalRequest,
			Title:     title,
			Message:   msg,
			ActionURL: "/transactions/" + event.TransactionID,
			Metadata:  meta,
		}

	case models.EventTransactionStatusChanged:
		recipient := event.LenderID
		if event.ActorID == event.LenderID {
			recipient = event.BorrowerID
		}
		meta["transaction_id"] = event.TransactionID
		meta["status"] = event.Status
		return &models.Notification{
			UserID:    recipient,
			Type:      models.NotificationSystem,
			Title:     "Request updated",
			Message:   fmt.Sprintf("Your %s request is now %s.", event.TransactionType, event.Status),
			ActionURL: "/transactions/" + event.TransactionID,
			Metadata:  meta,
		}

	case models.EventPaymentCompleted:
		meta["payment_id"] = event.PaymentID
		msg := "A rental payment for your book was completed."
		if event.Amount != nil {
			msg = fmt.Sprintf("A rental payment of %s for your book was completed.", event.Amount.StringFixed(2))
		}
		return &models.Notification{
			UserID:   event.LenderID,
			Type:     models.NotificationSystem,
			Title:    "Payment received",
			Message:  msg,
			Metadata: meta,
		}

	case models.EventPaymentFailed:
		meta["payment_id"] = event.PaymentID
		return &models.Notification{
			UserID:    event.BorrowerID,
			Type:      models.NotificationSystem,
			Title:     "Payment failed",
			Message:   "Your rental payment could not be completed.",
			ActionURL: "/books/" + event.BookID,
			Metadata:  meta,
		}
	}
	return nil
}

func invalidateUnread(ctx context.Context, redisClient redis.RedisClient, userID string) {
	if err := redisClient.Del(ctx, unreadCacheKey(userID)); err != nil {
		slog.Error("failed to invalidate unread counts", "user_id", userID, "error", err)
	}
}
