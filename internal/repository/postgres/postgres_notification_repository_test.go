package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/BookShareService/internal/models"
	repository "github.com/honeynil/BookShareService/internal/repository/postgres"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/stretchr/testify/assert"
)

const notificationID = "2f3e4d5c-6b7a-4d8e-9f0a-1b2c3d4e5f6a"

func TestPostgresNotificationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresNotificationRepository(db)

	n := &models.Notification{
		UserID:   ownerID,
		Type:     models.NotificationRentalRequest,
		Title:    "New rental request",
		Message:  "Someone wants to borrow your book.",
		Metadata: map[string]string{"book_id": bookID},
	}
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO notifications (user_id, type, title, message, action_url, metadata, expires_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`)).
		WithArgs(ownerID, models.NotificationRentalRequest, n.Title, n.Message, "", []byte(`{"book_id":"`+bookID+`"}`), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(notificationID, now))

	assert.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, notificationID, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotificationRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresNotificationRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM notifications WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > NOW()) AND read = FALSE ORDER BY created_at DESC LIMIT $2`)).
		WithArgs(ownerID, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "read", "action_url", "metadata", "expires_at", "created_at"}).
			AddRow(notificationID, ownerID, "system", "Payment received", "done", false, "", []byte(`{"payment_id":"p1"}`), nil, now))

	list, err := repo.ListByUser(context.Background(), ownerID, true, 20)
	assert.NoError(t, err)
	if assert.Len(t, list, 1) {
		assert.Equal(t, models.NotificationSystem, list[0].Type)
		assert.Equal(t, "p1", list[0].Metadata["payment_id"])
		assert.Nil(t, list[0].ExpiresAt)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNotificationRepository_MarkRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresNotificationRepository(db)
	ctx := context.Background()

	markRead := regexp.QuoteMeta(`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`)

	t.Run("Owner", func(t *testing.T) {
		mock.ExpectExec(markRead).WithArgs(notificationID, ownerID).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.MarkRead(ctx, notificationID, ownerID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SomeoneElse", func(t *testing.T) {
		mock.ExpectExec(markRead).WithArgs(notificationID, borrowerID).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.MarkRead(ctx, notificationID, borrowerID), pkgerrors.ErrNotificationNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MarkAll", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`)).
			WithArgs(ownerID).WillReturnResult(sqlmock.NewResult(0, 4))
		n, err := repo.MarkAllRead(ctx, ownerID)
		assert.NoError(t, err)
		assert.Equal(t, int64(4), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
