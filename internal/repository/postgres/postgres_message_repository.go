package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

const (
	messageTracer       = "message-repository"
	conversationColumns = `id, participants, last_message_at, created_at`
	messageColumns      = `id, conversation_id, sender_id, receiver_id, content, read, created_at`
)

type PostgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// FindOrCreateConversation returns the two-party conversation between userA
// and userB. Participants are stored sorted so the unique index on the
// column identifies the pair regardless of who writes first.
func (r *PostgresMessageRepository) FindOrCreateConversation(ctx context.Context, userA, userB string) (_ *models.Conversation, err error) {
	ctx, finish := observe(ctx, messageTracer, "FindOrCreateConversation")
	defer func() { finish(err) }()

	participants := []string{userA, userB}
	sort.Strings(participants)

	query := `INSERT INTO conversations (participants) VALUES ($1) ON CONFLICT (participants) DO UPDATE SET participants = EXCLUDED.participants RETURNING ` + conversationColumns
	conv, err := scanConversation(r.db.QueryRowContext(ctx, query, pq.Array(participants)))
	if err != nil {
		slog.Error("failed to find or create conversation", "method", "FindOrCreateConversation", "error", err)
		return nil, fmt.Errorf("failed to find or create conversation: %w", err)
	}
	return conv, nil
}

func (r *PostgresMessageRepository) GetConversation(ctx context.Context, id string) (_ *models.Conversation, err error) {
	ctx, finish := observe(ctx, messageTracer, "GetConversation", attribute.String("conversation_id", id))
	defer func() { finish(err) }()

	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	conv, err := scanConversation(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrConversationNotFound
	}
	if err != nil {
		slog.Error("failed to get conversation", "method", "GetConversation", "conversation_id", id, "error", err)
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

func (r *PostgresMessageRepository) ListConversations(ctx context.Context, userID string) (_ []models.Conversation, err error) {
	ctx, finish := observe(ctx, messageTracer, "ListConversations", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE $1 = ANY(participants) ORDER BY last_message_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Error("failed to list conversations", "method", "ListConversations", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	list := make([]models.Conversation, 0)
	for rows.Next() {
		conv, scanErr := scanConversation(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		list = append(list, *conv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return list, nil
}

func (r *PostgresMessageRepository) Create(ctx context.Context, msg *models.Message) (err error) {
	ctx, finish := observe(ctx, messageTracer, "CreateMessage")
	defer func() { finish(err) }()

	if msg == nil {
		err = fmt.Errorf("%w: message is nil", pkgerrors.ErrInvalidInput)
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT INTO messages (conversation_id, sender_id, receiver_id, content) VALUES ($1, $2, $3, $4) RETURNING id, read, created_at`
	err = dbTx.QueryRowContext(ctx, query, msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Content).
		Scan(&msg.ID, &msg.Read, &msg.CreatedAt)
	if err != nil {
		err = rollback(dbTx, "Create", err)
		slog.Error("failed to create message", "method", "Create", "conversation_id", msg.ConversationID, "error", err)
		return fmt.Errorf("failed to create message: %w", err)
	}

	if _, err = dbTx.ExecContext(ctx, `UPDATE conversations SET last_message_at = $1 WHERE id = $2`, msg.CreatedAt, msg.ConversationID); err != nil {
		err = rollback(dbTx, "Create", err)
		slog.Error("failed to bump conversation", "method", "Create", "conversation_id", msg.ConversationID, "error", err)
		return fmt.Errorf("failed to bump conversation: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("message created", "method", "Create", "id", msg.ID, "conversation_id", msg.ConversationID)
	return nil
}

func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID string) (_ []models.Message, err error) {
	ctx, finish := observe(ctx, messageTracer, "ListMessages", attribute.String("conversation_id", conversationID))
	defer func() { finish(err) }()

	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		slog.Error("failed to list messages", "method", "ListByConversation", "conversation_id", conversationID, "error", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	list := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err = rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		list = append(list, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return list, nil
}

func (r *PostgresMessageRepository) MarkRead(ctx context.Context, id, receiverID string) (err error) {
	ctx, finish := observe(ctx, messageTracer, "MarkMessageRead", attribute.String("message_id", id))
	defer func() { finish(err) }()

	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read = TRUE WHERE id = $1 AND receiver_id = $2`, id, receiverID)
	if err != nil {
		slog.Error("failed to mark message read", "method", "MarkRead", "message_id", id, "error", err)
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = pkgerrors.ErrMessageNotFound
		return err
	}
	return nil
}

func (r *PostgresMessageRepository) CountUnread(ctx context.Context, userID string) (_ int, err error) {
	ctx, finish := observe(ctx, messageTracer, "CountUnreadMessages", attribute.String("user_id", userID))
	defer func() { finish(err) }()

	var count int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND read = FALSE`, userID).Scan(&count)
	if err != nil {
		slog.Error("failed to count unread messages", "method", "CountUnread", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var c models.Conversation
	if err := row.Scan(&c.ID, pq.Array(&c.Participants), &c.LastMessageAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
