package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/BookShareService/internal/models"
	repository "github.com/honeynil/BookShareService/internal/repository/postgres"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

var userColumns = []string{"id", "email", "password_hash", "name", "bio", "location", "avatar_url", "created_at", "updated_at"}

func TestPostgresUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	insert := regexp.QuoteMeta(`INSERT INTO profiles (email, password_hash, name) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`)

	t.Run("NilUser", func(t *testing.T) {
		assert.ErrorIs(t, repo.Create(ctx, nil), pkgerrors.ErrNilUser)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingPassword", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Email: "reader@example.com"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("UserAlreadyExists", func(t *testing.T) {
		user := &models.User{Email: "reader@example.com", PasswordHash: "hash", Name: "Paul"}
		mock.ExpectQuery(insert).
			WithArgs(user.Email, user.PasswordHash, user.Name).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		user := &models.User{Email: "reader@example.com", PasswordHash: "hash", Name: "Paul"}
		now := time.Now().UTC()
		mock.ExpectQuery(insert).
			WithArgs(user.Email, user.PasswordHash, user.Name).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(borrowerID, now, now))

		assert.NoError(t, repo.Create(ctx, user))
		assert.Equal(t, borrowerID, user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		user := &models.User{Email: "reader@example.com", PasswordHash: "hash"}
		mock.ExpectQuery(insert).WillReturnError(fmt.Errorf("database error"))

		err := repo.Create(ctx, user)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create user")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT id, email, password_hash, name, bio, location, avatar_url, created_at, updated_at FROM profiles WHERE email = $1`)

	t.Run("EmptyEmail", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("Success", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs("reader@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(borrowerID, "reader@example.com", "hash", "Paul", "", "Arrakeen", "", now, now))

		user, err := repo.GetByEmail(ctx, "reader@example.com")
		assert.NoError(t, err)
		assert.Equal(t, borrowerID, user.ID)
		assert.Equal(t, "Arrakeen", user.Location)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByEmail(ctx, "ghost@example.com")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_UpdateProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	update := regexp.QuoteMeta(`UPDATE profiles SET name = $1, bio = $2, location = $3, avatar_url = $4, updated_at = NOW() WHERE id = $5 RETURNING updated_at`)

	t.Run("Success", func(t *testing.T) {
		user := &models.User{ID: borrowerID, Name: "Paul", Bio: "reader"}
		now := time.Now().UTC()
		mock.ExpectQuery(update).WithArgs("Paul", "reader", "", "", borrowerID).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

		assert.NoError(t, repo.UpdateProfile(ctx, user))
		assert.WithinDuration(t, now, user.UpdatedAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		user := &models.User{ID: borrowerID}
		mock.ExpectQuery(update).WillReturnError(sql.ErrNoRows)

		assert.ErrorIs(t, repo.UpdateProfile(ctx, user), pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
