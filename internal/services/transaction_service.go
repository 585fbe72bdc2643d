package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/honeynil/BookShareService/internal/infrastructure/kafka"
	"github.com/honeynil/BookShareService/internal/infrastructure/observability"
	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	"github.com/honeynil/BookShareService/internal/models"
	"github.com/honeynil/BookShareService/internal/repository"
	"github.com/honeynil/BookShareService/internal/validation"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type RentalRequestInput struct {
	BookID    string    `json:"book_id" validate:"required,uuid"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	Notes     string    `json:"notes" validate:"max=1000"`
}

type ExchangeInput struct {
	BookID        string `json:"book_id" validate:"required,uuid"`
	OfferedBookID string `json:"offered_book_id" validate:"required,uuid"`
	Notes         string `json:"notes" validate:"max=1000"`
}

type TransactionListFilter struct {
	Direction string
	Status    string
	Type      string
}

//go:generate mockgen -source=transaction_service.go -destination=mocks/transaction_service_mock.go -package=servicemocks

type TransactionService interface {
	RequestRental(ctx context.Context, session models.Session, in RentalRequestInput) (*models.Transaction, error)
	ProposeExchange(ctx context.Context, session models.Session, in ExchangeInput) (*models.Transaction, error)
	Get(ctx context.Context, session models.Session, id string) (*models.Transaction, error)
	List(ctx context.Context, session models.Session, filter TransactionListFilter) ([]models.Transaction, error)
	UpdateStatus(ctx context.Context, session models.Session, id, status string) (*models.Transaction, error)
}

type TransactionOptions struct {
	RejectOverlappingRentals bool
}

type transactionService struct {
	transactionRepo repository.TransactionRepository
	bookRepo        repository.BookRepository
	redisClient     redis.RedisClient
	producer        kafka.KafkaProducer
	validator       *validation.Validator
	opts            TransactionOptions
}

func NewTransactionService(
	transactionRepo repository.TransactionRepository,
	bookRepo repository.BookRepository,
	redisClient redis.RedisClient,
	producer kafka.KafkaProducer,
	validator *validation.Validator,
	opts TransactionOptions,
) *transactionService {
	return &transactionService{
		transactionRepo: transactionRepo,
		bookRepo:        bookRepo,
		redisClient:     redisClient,
		producer:        producer,
		validator:       validator,
		opts:            opts,
	}
}

func (s *transactionService) RequestRental(ctx context.Context, session models.Session, in RentalRequestInput) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "RequestRental")
	span.SetAttributes(attribute.String("book_id", in.BookID), attribute.String("borrower_id", session.UserID))
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}
	if !in.EndDate.After(in.StartDate) {
		span.SetStatus(codes.Error, "invalid date range")
		return nil, pkgerrors.ErrInvalidDateRange
	}

	book, err := s.bookRepo.GetByID(ctx, in.BookID)
	if err != nil {
		fail(span, err, "book lookup failed")
		return nil, err
	}
	if book.OwnerID == session.UserID {
		span.SetStatus(codes.Error, "own book")
		return nil, pkgerrors.ErrSelfTransaction
	}
	if book.Status == models.BookUnavailable {
		span.SetStatus(codes.Error, "book unavailable")
		return nil, pkgerrors.ErrBookUnavailable
	}

	if s.opts.RejectOverlappingRentals {
		n, err := s.transactionRepo.CountOverlapping(ctx, book.ID, in.StartDate, in.EndDate)
		if err != nil {
			fail(span, err, "overlap check failed")
			return nil, err
		}
		if n > 0 {
			span.SetStatus(codes.Error, "overlapping rental")
			return nil, pkgerrors.ErrOverlappingRental
		}
	}

	start, end := in.StartDate.UTC(), in.EndDate.UTC()
	tx := &models.Transaction{
		Type:       models.TypeRental,
		BookID:     book.ID,
		BorrowerID: session.UserID,
		LenderID:   book.OwnerID,
		StartDate:  &start,
		EndDate:    &end,
		Status:     models.StatusPending,
		Notes:      strings.TrimSpace(in.Notes),
	}
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		fail(span, err, "transaction creation failed")
		return nil, err
	}

	s.requested(ctx, tx)
	slog.Info("rental requested", "transaction_id", tx.ID, "book_id", tx.BookID, "borrower_id", tx.BorrowerID)
	return tx, nil
}

func (s *transactionService) ProposeExchange(ctx context.Context, session models.Session, in ExchangeInput) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "ProposeExchange")
	span.SetAttributes(attribute.String("book_id", in.BookID), attribute.String("offered_book_id", in.OfferedBookID))
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	offered, err := s.bookRepo.GetByID(ctx, in.OfferedBookID)
	if err != nil {
		fail(span, err, "offered book lookup failed")
		return nil, err
	}
	if offered.OwnerID != session.UserID {
		span.SetStatus(codes.Error, "offered book not owned")
		return nil, pkgerrors.ErrNotBookOwner
	}

	requested, err := s.bookRepo.GetByID(ctx, in.BookID)
	if err != nil {
		fail(span, err, "requested book lookup failed")
		return nil, err
	}
	if requested.OwnerID == session.UserID {
		span.SetStatus(codes.Error, "own book")
		return nil, pkgerrors.ErrSelfTransaction
	}
	if requested.Status == models.BookUnavailable {
		span.SetStatus(codes.Error, "book unavailable")
		return nil, pkgerrors.ErrBookUnavailable
	}

	offeredID := offered.ID
	tx := &models.Transaction{
		Type:          models.TypeExchange,
		BookID:        requested.ID,
		OfferedBookID: &offeredID,
		BorrowerID:    session.UserID,
		LenderID:      requested.OwnerID,
		Status:        models.StatusPending,
		Notes:         strings.TrimSpace(in.Notes),
	}
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		fail(span, err, "transaction creation failed")
		return nil, err
	}

	s.requested(ctx, tx)
	slog.Info("exchange proposed", "transaction_id", tx.ID, "book_id", tx.BookID, "offered_book_id", offeredID)
	return tx, nil
}

func (s *transactionService) requested(ctx context.Context, tx *models.Transaction) {
	observability.TransactionTransitions.WithLabelValues(string(tx.Type), "", string(tx.Status)).Inc()
	publish(ctx, s.producer, models.TopicTransactions, models.Event{
		Type:            models.EventTransactionRequested,
		TransactionID:   tx.ID,
		TransactionType: tx.Type,
		BookID:          tx.BookID,
		BorrowerID:      tx.BorrowerID,
		LenderID:        tx.LenderID,
		ActorID:         tx.BorrowerID,
		Status:          string(tx.Status),
	})
}

func (s *transactionService) Get(ctx context.Context, session models.Session, id string) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "GetTransaction")
	span.SetAttributes(attribute.String("transaction_id", id))
	defer span.End()

	id, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	tx, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		fail(span, err, "transaction lookup failed")
		return nil, err
	}
	if !tx.IsParticipant(session.UserID) {
		span.SetStatus(codes.Error, "not participant")
		return nil, pkgerrors.ErrNotParticipant
	}
	return tx, nil
}

func (s *transactionService) List(ctx context.Context, session models.Session, filter TransactionListFilter) ([]models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "ListTransactions")
	defer span.End()

	repoFilter := models.TransactionFilter{UserID: session.UserID, Direction: models.DirectionAll}

	switch dir := models.TransactionDirection(strings.ToLower(filter.Direction)); dir {
	case "", models.DirectionAll:
	case models.DirectionIncoming, models.DirectionOutgoing:
		repoFilter.Direction = dir
	default:
		return nil, pkgerrors.FieldError("direction", "must be one of: all incoming outgoing")
	}

	if filter.Status != "" {
		status, ok := models.ParseTransactionStatus(filter.Status)
		if !ok {
			return nil, pkgerrors.ErrInvalidTransactionStatus
		}
		repoFilter.Status = status
	}
	if filter.Type != "" {
		t := models.TransactionType(strings.ToLower(filter.Type))
		if !t.Valid() {
			return nil, pkgerrors.ErrInvalidTransactionType
		}
		repoFilter.Type = t
	}

	txs, err := s.transactionRepo.List(ctx, repoFilter)
	if err != nil {
		fail(span, err, "transaction listing failed")
		return nil, err
	}
	return txs, nil
}

// UpdateStatus moves a transaction to any status. Only the lender may accept
// or reject; there is no ordering between statuses. For rentals the book
// follows the transaction: accepted marks it borrowed and leaving accepted
// makes it available again.
func (s *transactionService) UpdateStatus(ctx context.Context, session models.Session, id, status string) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "UpdateTransactionStatus")
	span.SetAttributes(attribute.String("transaction_id", id), attribute.String("status", status))
	defer span.End()

	next, ok := models.ParseTransactionStatus(status)
	if !ok {
		span.SetStatus(codes.Error, "invalid status")
		return nil, pkgerrors.ErrInvalidTransactionStatus
	}

	id, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	tx, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		fail(span, err, "transaction lookup failed")
		return nil, err
	}
	if !tx.IsParticipant(session.UserID) {
		span.SetStatus(codes.Error, "not participant")
		return nil, pkgerrors.ErrNotParticipant
	}
	if (next == models.StatusAccepted || next == models.StatusRejected) && tx.LenderID != session.UserID {
		span.SetStatus(codes.Error, "not lender")
		return nil, pkgerrors.ErrNotLender
	}

	prev := tx.Status
	var bookStatus *models.BookStatus
	if tx.Type == models.TypeRental {
		switch {
		case next == models.StatusAccepted:
			st := models.BookBorrowed
			bookStatus = &st
		case prev == models.StatusAccepted:
			st := models.BookAvailable
			bookStatus = &st
		}
	}

	if err := s.transactionRepo.UpdateStatus(ctx, tx.ID, next, tx.BookID, bookStatus); err != nil {
		fail(span, err, "status update failed")
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	tx.Status = next
	tx.UpdatedAt = time.Now().UTC()

	if bookStatus != nil {
		if err := s.redisClient.Del(ctx, bookCacheKey(tx.BookID)); err != nil {
			slog.Error("failed to invalidate cached book", "book_id", tx.BookID, "error", err)
		}
	}

	observability.TransactionTransitions.WithLabelValues(string(tx.Type), string(prev), string(next)).Inc()
	publish(ctx, s.producer, models.TopicTransactions, models.Event{
		Type:            models.EventTransactionStatusChanged,
		TransactionID:   tx.ID,
		TransactionType: tx.Type,
		BookID:          tx.BookID,
		BorrowerID:      tx.BorrowerID,
		LenderID:        tx.LenderID,
		ActorID:         session.UserID,
		Status:          string(next),
	})

	slog.Info("transaction status changed", "transaction_id", tx.ID, "from", prev, "to", next, "actor_id", session.UserID)
	return tx, nil
}
