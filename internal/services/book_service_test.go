package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	redismocks "github.com/honeynil/BookShareService/internal/infrastructure/redis/mocks"
	"github.com/honeynil/BookShareService/internal/infrastructure/search"
	searchmocks "github.com/honeynil/BookShareService/internal/infrastructure/search/mocks"
	"github.com/honeynil/BookShareService/internal/models"
	repositorymocks "github.com/honeynil/BookShareService/internal/repository/mocks"
	"github.com/honeynil/BookShareService/internal/validation"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID    = "6f1c2a4e-8a57-4c43-9d0e-0d1b2a3c4d5e"
	borrowerID = "0b8e7d6c-5a4b-4c3d-8e2f-1a0b9c8d7e6f"
	strangerID = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f2a3b4c5d"
	bookID     = "3c9f1e2d-4b5a-4c6d-8e7f-9a0b1c2d3e4f"
	offeredID  = "7d6c5b4a-3e2f-4a1b-9c0d-8e7f6a5b4c3d"
	txID       = "1e2d3c4b-5a6f-4e7d-8c9b-0a1f2e3d4c5b"
	paymentID  = "5b4a3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d"
)

func sessionFor(userID string) models.Session {
	return models.Session{UserID: userID, Email: userID + "@example.com", TokenID: "jti-" + userID}
}

func duneInput() BookInput {
	return BookInput{
		Title:       "Dune",
		Author:      "Frank Herbert",
		Genre:       []string{"Science Fiction"},
		Condition:   models.ConditionGood,
		RentalPrice: decimal.NewFromInt(5),
	}
}

func TestBookService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bookRepo := repositorymocks.NewMockBookRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	index := searchmocks.NewMockBookIndex(ctrl)

	ctx := context.Background()
	service := NewBookService(bookRepo, redisClient, index, validation.New())

	t.Run("listed book shows up under my books as available", func(t *testing.T) {
		var stored models.Book
		bookRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *models.Book) error {
			b.ID = bookID
			stored = *b
			return nil
		})
		index.EXPECT().IndexBook(gomock.Any()).Return(nil)

		book, err := service.Create(ctx, sessionFor(ownerID), duneInput())
		require.NoError(t, err)
		assert.Equal(t, bookID, book.ID)
		assert.Equal(t, ownerID, book.OwnerID)
		assert.Equal(t, models.BookAvailable, book.Status)

		bookRepo.EXPECT().List(gomock.Any(), models.BookFilter{OwnerID: ownerID}).Return([]models.Book{stored}, nil)

		mine, err := service.MyBooks(ctx, sessionFor(ownerID))
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "Dune", mine[0].Title)
		assert.Equal(t, "Frank Herbert", mine[0].Author)
		assert.Equal(t, models.ConditionGood, mine[0].Condition)
		assert.True(t, mine[0].RentalPrice.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, models.BookAvailable, mine[0].Status)
	})

	t.Run("missing title and author", func(t *testing.T) {
		in := duneInput()
		in.Title = "  "
		in.Author = ""

		_, err := service.Create(ctx, sessionFor(ownerID), in)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

		var vErr *pkgerrors.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.Fields, "title")
		assert.Contains(t, vErr.Fields, "author")
	})

	t.Run("missing genre", func(t *testing.T) {
		in := duneInput()
		in.Genre = nil

		_, err := service.Create(ctx, sessionFor(ownerID), in)
		var vErr *pkgerrors.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.Fields, "genre")
	})

	t.Run("rental price out of range", func(t *testing.T) {
		for _, price := range []string{"-1", "10000.01", "25000"} {
			in := duneInput()
			in.RentalPrice = decimal.RequireFromString(price)

			_, err := service.Create(ctx, sessionFor(ownerID), in)
			var vErr *pkgerrors.ValidationError
			require.True(t, errors.As(err, &vErr), price)
			assert.Contains(t, vErr.Fields, "rental_price", price)
		}
	})

	t.Run("rental price bounds are inclusive", func(t *testing.T) {
		for _, price := range []int64{0, 10000} {
			in := duneInput()
			in.RentalPrice = decimal.NewFromInt(price)

			bookRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			index.EXPECT().IndexBook(gomock.Any()).Return(nil)

			_, err := service.Create(ctx, sessionFor(ownerID), in)
			assert.NoError(t, err)
		}
	})

	t.Run("bad cover image and condition", func(t *testing.T) {
		in := duneInput()
		in.CoverImage = "not a url"
		in.Condition = "mint"

		_, err := service.Create(ctx, sessionFor(ownerID), in)
		var vErr *pkgerrors.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.Fields, "cover_image")
		assert.Contains(t, vErr.Fields, "condition")
	})
}

func TestBookService_UpdateDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bookRepo := repositorymocks.NewMockBookRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	index := searchmocks.NewMockBookIndex(ctrl)

	ctx := context.Background()
	service := NewBookService(bookRepo, redisClient, index, validation.New())

	existing := func() *models.Book {
		return &models.Book{
			ID:          bookID,
			OwnerID:     ownerID,
			Title:       "Dune",
			Author:      "Frank Herbert",
			Genre:       []string{"Science Fiction"},
			Condition:   models.ConditionGood,
			RentalPrice: decimal.NewFromInt(5),
			Status:      models.BookAvailable,
		}
	}

	t.Run("owner updates price", func(t *testing.T) {
		price := decimal.NewFromInt(7)
		bookRepo.EXPECT().GetByID(gomock.Any(), bookID).Return(existing(), nil)
		bookRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		redisClient.EXPECT().Del(gomock.Any(), "book:"+bookID).Return(nil)
		index.EXPECT().IndexBook(gomock.Any()).Return(nil)

		book, err := service.Update(ctx, sessionFor(ownerID), bookID, BookPatch{RentalPrice: &price})
		require.NoError(t, err)
		assert.True(t, book.RentalPrice.Equal(price))
		assert.Equal(t, "Dune", book.Title)
	})

	t.Run("non-owner cannot update", func(t *testing.T) {
		title := "Mine now"
		bookRepo.EXPECT().GetByID(gomock.Any(), bookID).Return(existing(), nil)

		_, err := service.Update(ctx, sessionFor(strangerID), bookID, BookPatch{Title: &title})
		assert.ErrorIs(t, err, pkgerrors.ErrNotBookOwner)
	})

	t.Run("patch is validated", func(t *testing.T) {
		price := decimal.NewFromInt(20000)
		bookRepo.EXPECT().GetByID(gomock.Any(), bookID).Return(existing(), nil)

		_, err := service.Update(ctx, sessionFor(ownerID), bookID, BookPatch{RentalPrice: &price})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("owner deletes", func(t *testing.T) {
		bookRepo.EXPECT().GetByID(gomock.Any(), bookID).Return(existing(), nil)
		bookRepo.EXPECT().Delete(gomock.Any(), bookID).Return(nil)
		redisClient.EXPECT().Del(gomock.Any(), "book:"+bookID).Return(nil)
		index.EXPECT().DeleteBook(bookID).Return(nil)

		assert.NoError(t, service.Delete(ctx, sessionFor(ownerID), bookID))
	})

	t.Run("non-owner cannot delete", func(t *testing.T) {
		bookRepo.EXPECT().GetByID(gomock.Any(), bookID).Return(existing(), nil)

		assert.ErrorIs(t, service.Delete(ctx, sessionFor(strangerID), bookID), pkgerrors.ErrNotBookOwner)
	})

	t.Run("malformed id", func(t *testing.T) {
		assert.ErrorIs(t, service.Delete(ctx, sessionFor(ownerID), "42"), pkgerrors.ErrInvalidInput)
	})
}

func TestBookService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bookRepo := repositorymocks.NewMockBookRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	index := searchmocks.NewMockBookIndex(ctrl)

	ctx := context.Background()
	service := NewBookService(bookRepo, redisClient, index, validation.New())
	book := &models.Book{ID: bookID, OwnerID: ownerID, Title: "Dune", Status: models.BookAvailable}
	key := "book:" + bookID

	t.Run("cache miss loads from repository", func(t *testing.T) {
		redisClient.EXPECT().Get(gomock.Any(), key).Return("", redis.ErrKeyNotFound)
		bookRepo.EXPECT().GetByID(gomock.Any(), bookID).Return(book, nil)
		bookJSON, _ := json.Marshal(book)
		redisClient.EXPECT().Set(gomock.Any(), key, string(bookJSON), 24*time.Hour).Return(nil)

		got, err := service.Get(ctx, bookID)
		require.NoError(t, err)
		assert.Equal(t, "Dune", got.Title)
	})

	t.Run("cache hit skips repository", func(t *testing.T) {
		bookJSON, _ := json.Marshal(book)
		redisClient.EXPECT().Get(gomock.Any(), key).Return(string(bookJSON), nil)

		got, err := service.Get(ctx, bookID)
		require.NoError(t, err)
		assert.Equal(t, bookID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		redisClient.EXPECT().Get(gomock.Any(), key).Return("", redis.ErrKeyNotFound)
		bookRepo.EXPECT().GetByID(gomock.Any(), bookID).Return(nil, pkgerrors.ErrBookNotFound)

		_, err := service.Get(ctx, bookID)
		assert.ErrorIs(t, err, pkgerrors.ErrBookNotFound)
	})
}

func TestBookService_Search(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bookRepo := repositorymocks.NewMockBookRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)
	index := searchmocks.NewMockBookIndex(ctrl)

	ctx := context.Background()
	service := NewBookService(bookRepo, redisClient, index, validation.New())

	book := &models.Book{ID: bookID, Title: "Dune"}
	bookJSON, _ := json.Marshal(book)

	index.EXPECT().Search(gomock.Any(), "dune", 20).Return([]search.Hit{{ID: bookID, Score: 2}, {ID: offeredID, Score: 1}}, nil)
	redisClient.EXPECT().Get(gomock.Any(), "book:"+bookID).Return(string(bookJSON), nil)
	redisClient.EXPECT().Get(gomock.Any(), "book:"+offeredID).Return("", redis.ErrKeyNotFound)
	bookRepo.EXPECT().GetByID(gomock.Any(), offeredID).Return(nil, pkgerrors.ErrBookNotFound)
	index.EXPECT().DeleteBook(offeredID).Return(nil)

	books, err := service.Search(ctx, "dune", 0)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, bookID, books[0].ID)
}

func TestBookService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bookRepo := repositorymocks.NewMockBookRepository(ctrl)
	service := NewBookService(bookRepo, redismocks.NewMockRedisClient(ctrl), searchmocks.NewMockBookIndex(ctrl), validation.New())
	ctx := context.Background()

	t.Run("defaults the page size", func(t *testing.T) {
		bookRepo.EXPECT().List(gomock.Any(), models.BookFilter{Status: models.BookAvailable, Search: "dune", Limit: 50}).Return(nil, nil)

		_, err := service.List(ctx, models.BookFilter{Status: models.BookAvailable, Search: " dune "})
		assert.NoError(t, err)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := service.List(ctx, models.BookFilter{Status: "lost"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}
