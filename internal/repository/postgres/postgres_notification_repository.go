package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	notificationTracer  = "notification-repository"
	notificationColumns = `id, user_id, type, title, message, read, action_url, metadata, expires_at, created_at`

	defaultNotificationLimit = 50
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *models.Notification) (err error) {
	ctx, finish := observe(ctx, notificationTracer, "CreateNotification")
	defer func() { finish(err) }()

	if n == nil {
		err = fmt.Errorf("%w: notification is nil", pkgerrors.ErrInvalidInput)
		return err
	}

	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	query := `INSERT INTO notifications (user_id, type, title, message, action_url, metadata, expires_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, n.UserID, n.Type, n.Title, n.Message, n.ActionURL, metadata, nullTime(n.ExpiresAt)).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		slog.Error("failed to create notification", "method", "Create", "user_id", n.UserID, "type", n.Type, "error", err)
		return fmt.Errorf("failed to create notification: %w", err)
	}

	slog.Info("notification created", "method", "Create", "id", n.ID, "user_id", n.UserID, "type", n.Type)
	return nil
}

func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) (_ []models.Notification, err error) {
	ctx, finish := observe(ctx, notificationTracer, "ListNotifications", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	if limit <= 0 {
		limit = defaultNotificationLimit
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > NOW())`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		slog.Error("failed to list notifications", "method", "ListByUser", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	list := make([]models.Notification, 0)
	for rows.Next() {
		var (
			n         models.Notification
			metadata  []byte
			expiresAt sql.NullTime
		)
		if err = rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Read, &n.ActionURL, &metadata, &expiresAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(metadata) > 0 {
			if err = json.Unmarshal(metadata, &n.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode notification metadata: %w", err)
			}
		}
		if expiresAt.Valid {
			n.ExpiresAt = &expiresAt.Time
		}
		list = append(list, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return list, nil
}

func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, userID string) (_ int, err error) {
	ctx, finish := observe(ctx, notificationTracer, "CountUnreadNotifications", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE AND (expires_at IS NULL OR expires_at > NOW())`
	var count int
	if err = r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		slog.Error("failed to count unread notifications", "method", "CountUnread", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id, userID string) (err error) {
	ctx, finish := observe(ctx, notificationTracer, "MarkNotificationRead", attribute.String("notification_id", id))
	defer func() { finish(err) }()

	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		slog.Error("failed to mark notification read", "method", "MarkRead", "notification_id", id, "error", err)
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = pkgerrors.ErrNotificationNotFound
		return err
	}
	return nil
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID string) (_ int64, err error) {
	ctx, finish := observe(ctx, notificationTracer, "MarkAllNotificationsRead", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		slog.Error("failed to mark notifications read", "method", "MarkAllRead", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.Info("notifications marked read", "method", "MarkAllRead", "user_id", userID, "count", n)
	return n, nil
}

func (r *PostgresNotificationRepository) Delete(ctx context.Context, id, userID string) (err error) {
	ctx, finish := observe(ctx, notificationTracer, "DeleteNotification", attribute.String("notification_id", id))
	defer func() { finish(err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		slog.Error("failed to delete notification", "method", "Delete", "notification_id", id, "error", err)
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = pkgerrors.ErrNotificationNotFound
		return err
	}
	return nil
}
