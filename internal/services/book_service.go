package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	"github.com/honeynil/BookShareService/internal/infrastructure/search"
	"github.com/honeynil/BookShareService/internal/models"
	"github.com/honeynil/BookShareService/internal/repository"
	"github.com/honeynil/BookShareService/internal/validation"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const bookCacheTTL = 24 * time.Hour

type BookInput struct {
	Title         string               `json:"title" validate:"required,min=1,max=100"`
	Author        string               `json:"author" validate:"required,min=1,max=100"`
	Description   string               `json:"description" validate:"max=2000"`
	ISBN          string               `json:"isbn" validate:"max=20"`
	CoverImage    string               `json:"cover_image" validate:"omitempty,url"`
	Genre         []string             `json:"genre" validate:"min=1,max=10,dive,required,max=50"`
	Condition     models.BookCondition `json:"condition" validate:"required,oneof=new like_new good fair poor"`
	RentalPrice   decimal.Decimal      `json:"rental_price" validate:"gte=0,lte=10000"`
	Status        models.BookStatus    `json:"status" validate:"omitempty,oneof=available borrowed unavailable"`
	Location      string               `json:"location" validate:"max=100"`
	Pages         *int32               `json:"pages" validate:"omitempty,gt=0"`
	PublishedYear *int32               `json:"published_year" validate:"omitempty,gt=0,lte=2100"`
}

// BookPatch changes only the fields that are set.
type BookPatch struct {
	Title         *string               `json:"title"`
	Author        *string               `json:"author"`
	Description   *string               `json:"description"`
	ISBN          *string               `json:"isbn"`
	CoverImage    *string               `json:"cover_image"`
	Genre         []string              `json:"genre"`
	Condition     *models.BookCondition `json:"condition"`
	RentalPrice   *decimal.Decimal      `json:"rental_price"`
	Status        *models.BookStatus    `json:"status"`
	Location      *string               `json:"location"`
	Pages         *int32                `json:"pages"`
	PublishedYear *int32                `json:"published_year"`
}

//go:generate mockgen -source=book_service.go -destination=mocks/book_service_mock.go -package=servicemocks

type BookService interface {
	Create(ctx context.Context, session models.Session, in BookInput) (*models.Book, error)
	Update(ctx context.Context, session models.Session, id string, patch BookPatch) (*models.Book, error)
	Delete(ctx context.Context, session models.Session, id string) error
	Get(ctx context.Context, id string) (*models.Book, error)
	List(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	Search(ctx context.Context, q string, limit int) ([]models.Book, error)
	MyBooks(ctx context.Context, session models.Session) ([]models.Book, error)
	RebuildIndex(ctx context.Context) (int, error)
}

type bookService struct {
	bookRepo    repository.BookRepository
	redisClient redis.RedisClient
	index       search.BookIndex
	validator   *validation.Validator
}

func NewBookService(
	bookRepo repository.BookRepository,
	redisClient redis.RedisClient,
	index search.BookIndex,
	validator *validation.Validator,
) *bookService {
	return &bookService{
		bookRepo:    bookRepo,
		redisClient: redisClient,
		index:       index,
		validator:   validator,
	}
}

func normalizeBookInput(in *BookInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	in.Location = strings.TrimSpace(in.Location)

	seen := make(map[string]struct{}, len(in.Genre))
	genre := make([]string, 0, len(in.Genre))
	for _, g := range in.Genre {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if _, dup := seen[key]; dup && g != "" {
			continue
		}
		seen[key] = struct{}{}
		genre = append(genre, g)
	}
	in.Genre = genre
}

func (in BookInput) apply(b *models.Book) {
	b.Title = in.Title
	b.Author = in.Author
	b.Description = in.Description
	b.ISBN = in.ISBN
	b.CoverImage = in.CoverImage
	b.Genre = in.Genre
	b.Condition = in.Condition
	b.RentalPrice = in.RentalPrice
	b.Status = in.Status
	b.Location = in.Location
	b.Pages = in.Pages
	b.PublishedYear = in.PublishedYear
}

func inputFromBook(b *models.Book) BookInput {
	return BookInput{
		Title:         b.Title,
		Author:        b.Author,
		Description:   b.Description,
		ISBN:          b.ISBN,
		CoverImage:    b.CoverImage,
		Genre:         append([]string(nil), b.Genre...),
		Condition:     b.Condition,
		RentalPrice:   b.RentalPrice,
		Status:        b.Status,
		Location:      b.Location,
		Pages:         b.Pages,
		PublishedYear: b.PublishedYear,
	}
}

func (p BookPatch) merge(in *BookInput) {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Author != nil {
		in.Author = *p.Author
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.ISBN != nil {
		in.ISBN = *p.ISBN
	}
	if p.CoverImage != nil {
		in.CoverImage = *p.CoverImage
	}
	if p.Genre != nil {
		in.Genre = p.Genre
	}
	if p.Condition != nil {
		in.Condition = *p.Condition
	}
	if p.RentalPrice != nil {
		in.RentalPrice = *p.RentalPrice
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.Location != nil {
		in.Location = *p.Location
	}
	if p.Pages != nil {
		in.Pages = p.Pages
	}
	if p.PublishedYear != nil {
		in.PublishedYear = p.PublishedYear
	}
}

func (s *bookService) Create(ctx context.Context, session models.Session, in BookInput) (*models.Book, error) {
	tracer := otel.Tracer("book-service")
	ctx, span := tracer.Start(ctx, "CreateBook")
	defer span.End()

	normalizeBookInput(&in)
	if err := s.validator.Validate(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.BookAvailable
	}

	book := &models.Book{OwnerID: session.UserID}
	in.apply(book)

	if err := s.bookRepo.Create(ctx, book); err != nil {
		fail(span, err, "book creation failed")
		return nil, err
	}

	s.reindex(book)
	slog.Info("book listed", "book_id", book.ID, "owner_id", book.OwnerID, "title", book.Title)
	return book, nil
}

func (s *bookService) Update(ctx context.Context, session models.Session, id string, patch BookPatch) (*models.Book, error) {
	tracer := otel.Tracer("book-service")
	ctx, span := tracer.Start(ctx, "UpdateBook")
	span.SetAttributes(attribute.String("book_id", id))
	defer span.End()

	id, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		fail(span, err, "book lookup failed")
		return nil, err
	}
	if book.OwnerID != session.UserID {
		span.SetStatus(codes.Error, "not owner")
		return nil, pkgerrors.ErrNotBookOwner
	}

	in := inputFromBook(book)
	patch.merge(&in)
	normalizeBookInput(&in)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	in.apply(book)

	if err := s.bookRepo.Update(ctx, book); err != nil {
		fail(span, err, "book update failed")
		return nil, err
	}

	s.invalidate(ctx, book.ID)
	s.reindex(book)
	slog.Info("book updated", "book_id", book.ID, "owner_id", book.OwnerID)
	return book, nil
}

func (s *bookService) Delete(ctx context.Context, session models.Session, id string) error {
	tracer := otel.Tracer("book-service")
	ctx, span := tracer.Start(ctx, "DeleteBook")
	span.SetAttributes(attribute.String("book_id", id))
	defer span.End()

	id, err := parseID("id", id)
	if err != nil {
		return err
	}

	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		fail(span, err, "book lookup failed")
		return err
	}
	if book.OwnerID != session.UserID {
		span.SetStatus(codes.Error, "not owner")
		return pkgerrors.ErrNotBookOwner
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		fail(span, err, "book deletion failed")
		return err
	}

	s.invalidate(ctx, id)
	if err := s.index.DeleteBook(id); err != nil {
		slog.Error("failed to remove book from search index", "book_id", id, "error", err)
	}
	slog.Info("book deleted", "book_id", id, "owner_id", session.UserID)
	return nil
}

// Get reads through the Redis cache.
func (s *bookService) Get(ctx context.Context, id string) (*models.Book, error) {
	tracer := otel.Tracer("book-service")
	ctx, span := tracer.Start(ctx, "GetBook")
	span.SetAttributes(attribute.String("book_id", id))
	defer span.End()

	id, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	key := bookCacheKey(id)
	cached, err := s.redisClient.Get(ctx, key)
	if err == nil {
		var book models.Book
		if err := json.Unmarshal([]byte(cached), &book); err == nil {
			return &book, nil
		}
		slog.Warn("dropping undecodable cached book", "book_id", id)
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Error("failed to get book from Redis", "book_id", id, "error", err)
	}

	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		fail(span, err, "book lookup failed")
		return nil, err
	}

	if data, err := json.Marshal(book); err == nil {
		if err := s.redisClient.Set(ctx, key, string(data), bookCacheTTL); err != nil {
			slog.Error("failed to cache book", "book_id", id, "error", err)
		}
	}
	return book, nil
}

func (s *bookService) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	tracer := otel.Tracer("book-service")
	ctx, span := tracer.Start(ctx, "ListBooks")
	defer span.End()

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, pkgerrors.FieldError("status", "must be one of: available borrowed unavailable")
	}
	if filter.OwnerID != "" {
		ownerID, err := parseID("owner_id", filter.OwnerID)
		if err != nil {
			return nil, err
		}
		filter.OwnerID = ownerID
	}
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	books, err := s.bookRepo.List(ctx, filter)
	if err != nil {
		fail(span, err, "book listing failed")
		return nil, err
	}
	return books, nil
}

// Search resolves index hits to current rows; hits for deleted books are
// dropped from the index.
func (s *bookService) Search(ctx context.Context, q string, limit int) ([]models.Book, error) {
	tracer := otel.Tracer("book-service")
	ctx, span := tracer.Start(ctx, "SearchBooks")
	span.SetAttributes(attribute.String("query", q))
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	hits, err := s.index.Search(ctx, q, limit)
	if err != nil {
		fail(span, err, "search failed")
		return nil, fmt.Errorf("%w: search failed", pkgerrors.ErrInternal)
	}

	books := make([]models.Book, 0, len(hits))
	for _, hit := range hits {
		book, err := s.Get(ctx, hit.ID)
		if stderrors.Is(err, pkgerrors.ErrBookNotFound) {
			_ = s.index.DeleteBook(hit.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, nil
}

func (s *bookService) MyBooks(ctx context.Context, session models.Session) ([]models.Book, error) {
	return s.bookRepo.List(ctx, models.BookFilter{OwnerID: session.UserID})
}

// RebuildIndex loads every book into the search index.
func (s *bookService) RebuildIndex(ctx context.Context) (int, error) {
	books, err := s.bookRepo.List(ctx, models.BookFilter{})
	if err != nil {
		return 0, err
	}
	if err := s.index.IndexBooks(books); err != nil {
		return 0, fmt.Errorf("failed to index books: %w", err)
	}
	slog.Info("search index rebuilt", "books", len(books))
	return len(books), nil
}

func (s *bookService) invalidate(ctx context.Context, id string) {
	if err := s.redisClient.Del(ctx, bookCacheKey(id)); err != nil {
		slog.Error("failed to invalidate cached book", "book_id", id, "error", err)
	}
}

func (s *bookService) reindex(book *models.Book) {
	if err := s.index.IndexBook(book); err != nil {
		slog.Error("failed to index book", "book_id", book.ID, "error", err)
	}
}
