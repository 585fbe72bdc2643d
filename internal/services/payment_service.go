package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/honeynil/BookShareService/internal/infrastructure/esewa"
	"github.com/honeynil/BookShareService/internal/infrastructure/kafka"
	"github.com/honeynil/BookShareService/internal/infrastructure/observability"
	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	"github.com/honeynil/BookShareService/internal/models"
	"github.com/honeynil/BookShareService/internal/repository"
	"github.com/honeynil/BookShareService/internal/validation"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	paymentRequestTTL = 24 * time.Hour

	reasonAmountMismatch   = "Payment amount mismatch"
	reasonVerificationFail = "Payment verification failed"
	reasonGatewayCancelled = "Payment cancelled or failed at gateway"
)

type InitiatePaymentInput struct {
	BookID    string    `json:"book_id" validate:"required,uuid"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	RequestID string    `json:"request_id" validate:"omitempty,max=128"`
}

// VerifyPaymentInput mirrors the gateway's success redirect parameters.
type VerifyPaymentInput struct {
	ProductID string           `json:"pid" validate:"required"`
	RefID     string           `json:"refId" validate:"required,max=128"`
	Amount    *decimal.Decimal `json:"amt"`
}

type RentalQuote struct {
	BookID      string          `json:"book_id"`
	Days        int64           `json:"days"`
	RentalPrice decimal.Decimal `json:"rental_price"`
	Amount      decimal.Decimal `json:"amount"`
}

//go:generate mockgen -source=payment_service.go -destination=mocks/payment_service_mock.go -package=servicemocks

type PaymentService interface {
	QuoteRental(ctx context.Context, bookID string, start, end time.Time) (*RentalQuote, error)
	Initiate(ctx context.Context, session models.Session, in InitiatePaymentInput) (*models.PaymentCheckout, error)
	Verify(ctx context.Context, in VerifyPaymentInput) (*models.Payment, error)
	MarkFailed(ctx context.Context, productID, reason string) (*models.Payment, error)
	List(ctx context.Context, session models.Session) ([]models.Payment, error)
}

// RentalDays counts started days between start and end.
func RentalDays(start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, pkgerrors.ErrInvalidDateRange
	}
	return int64(math.Ceil(end.Sub(start).Hours() / 24)), nil
}

// CalculateRentalAmount is the rental price times the number of started days.
func CalculateRentalAmount(price decimal.Decimal, start, end time.Time) (decimal.Decimal, error) {
	days, err := RentalDays(start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(decimal.NewFromInt(days)), nil
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	bookRepo    repository.BookRepository
	redisClient redis.RedisClient
	gateway     esewa.Gateway
	producer    kafka.KafkaProducer
	validator   *validation.Validator
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	bookRepo repository.BookRepository,
	redisClient redis.RedisClient,
	gateway esewa.Gateway,
	producer kafka.KafkaProducer,
	validator *validation.Validator,
) *paymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		bookRepo:    bookRepo,
		redisClient: redisClient,
		gateway:     gateway,
		producer:    producer,
		validator:   validator,
	}
}

func (s *paymentService) QuoteRental(ctx context.Context, bookID string, start, end time.Time) (*RentalQuote, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "QuoteRental")
	span.SetAttributes(attribute.String("book_id", bookID))
	defer span.End()

	bookID, err := parseID("book_id", bookID)
	if err != nil {
		return nil, err
	}
	days, err := RentalDays(start, end)
	if err != nil {
		return nil, err
	}

	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		fail(span, err, "book lookup failed")
		return nil, err
	}

	return &RentalQuote{
		BookID:      book.ID,
		Days:        days,
		RentalPrice: book.RentalPrice,
		Amount:      book.RentalPrice.Mul(decimal.NewFromInt(days)),
	}, nil
}

func (s *paymentService) Initiate(ctx context.Context, session models.Session, in InitiatePaymentInput) (*models.PaymentCheckout, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "InitiatePayment")
	span.SetAttributes(attribute.String("book_id", in.BookID), attribute.String("borrower_id", session.UserID))
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
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
	if book.Status != models.BookAvailable {
		span.SetStatus(codes.Error, "book unavailable")
		return nil, pkgerrors.ErrBookUnavailable
	}

	amount, err := CalculateRentalAmount(book.RentalPrice, in.StartDate, in.EndDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid date range")
		return nil, err
	}
	if !amount.IsPositive() {
		span.SetStatus(codes.Error, "nothing to pay")
		return nil, pkgerrors.FieldError("amount", "must be greater than 0")
	}

	var requestKey string
	if rid := strings.TrimSpace(in.RequestID); rid != "" {
		requestKey = paymentRequestKey(rid)
		fresh, err := s.redisClient.SetNX(ctx, requestKey, session.UserID, paymentRequestTTL)
		if err != nil {
			fail(span, err, "idempotency check failed")
			return nil, fmt.Errorf("failed to check request id: %w", err)
		}
		if !fresh {
			span.SetStatus(codes.Error, "duplicate request")
			return nil, pkgerrors.ErrRequestAlreadyProcessed
		}
	}

	payment := &models.Payment{
		Amount:        amount,
		BookID:        book.ID,
		BorrowerID:    session.UserID,
		LenderID:      book.OwnerID,
		StartDate:     in.StartDate.UTC(),
		EndDate:       in.EndDate.UTC(),
		Status:        models.PaymentPending,
		PaymentMethod: models.PaymentMethodEsewa,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if requestKey != "" {
			if delErr := s.redisClient.Del(ctx, requestKey); delErr != nil {
				slog.Error("failed to release request id", "key", requestKey, "error", delErr)
			}
		}
		fail(span, err, "payment creation failed")
		return nil, err
	}

	observability.Payments.WithLabelValues(string(models.PaymentPending)).Inc()
	slog.Info("payment initiated", "payment_id", payment.ID, "book_id", payment.BookID, "amount", payment.Amount.String())

	return &models.PaymentCheckout{
		Payment: payment,
		Form:    s.gateway.CheckoutForm(payment.ID, payment.Amount),
	}, nil
}

func (s *paymentService) Verify(ctx context.Context, in VerifyPaymentInput) (*models.Payment, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "VerifyPayment")
	span.SetAttributes(attribute.String("pid", in.ProductID), attribute.String("ref_id", in.RefID))
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	paymentID, err := esewa.ParsePaymentID(in.ProductID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid product id")
		return nil, err
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		fail(span, err, "payment lookup failed")
		return nil, err
	}
	switch payment.Status {
	case models.PaymentCompleted:
		return payment, nil
	case models.PaymentPending:
	default:
		span.SetStatus(codes.Error, "payment already processed")
		return nil, pkgerrors.ErrPaymentAlreadyProcessed
	}

	if in.Amount != nil && !in.Amount.Equal(payment.Amount) {
		s.markFailed(ctx, payment, reasonAmountMismatch)
		span.SetStatus(codes.Error, "amount mismatch")
		return nil, pkgerrors.ErrAmountMismatch
	}

	ok, err := s.gateway.Verify(ctx, esewa.VerifyRequest{
		Amount:    payment.Amount,
		RefID:     in.RefID,
		ProductID: in.ProductID,
	})
	if err != nil || !ok {
		if err != nil {
			span.RecordError(err)
			slog.Error("gateway verification error", "payment_id", payment.ID, "error", err)
		}
		s.markFailed(ctx, payment, reasonVerificationFail)
		span.SetStatus(codes.Error, "verification failed")
		return nil, pkgerrors.ErrPaymentVerificationFailed
	}

	if err := s.paymentRepo.MarkCompleted(ctx, payment.ID, in.RefID); err != nil {
		if !errors.Is(err, pkgerrors.ErrPaymentAlreadyProcessed) {
			fail(span, err, "payment completion failed")
			return nil, err
		}
		// A concurrent verification got there first.
		current, getErr := s.paymentRepo.GetByID(ctx, payment.ID)
		if getErr != nil {
			fail(span, getErr, "payment reload failed")
			return nil, getErr
		}
		if current.Status == models.PaymentCompleted {
			return current, nil
		}
		span.SetStatus(codes.Error, "payment already processed")
		return nil, err
	}

	payment.Status = models.PaymentCompleted
	payment.RefID = in.RefID
	payment.UpdatedAt = time.Now().UTC()

	observability.Payments.WithLabelValues(string(models.PaymentCompleted)).Inc()
	s.publishPayment(ctx, models.EventPaymentCompleted, payment)
	slog.Info("payment completed", "payment_id", payment.ID, "ref_id", payment.RefID)
	return payment, nil
}

func (s *paymentService) MarkFailed(ctx context.Context, productID, reason string) (*models.Payment, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "MarkPaymentFailed")
	span.SetAttributes(attribute.String("pid", productID))
	defer span.End()

	paymentID, err := esewa.ParsePaymentID(productID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid product id")
		return nil, err
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		fail(span, err, "payment lookup failed")
		return nil, err
	}
	switch payment.Status {
	case models.PaymentFailed:
		return payment, nil
	case models.PaymentPending:
	default:
		span.SetStatus(codes.Error, "payment already processed")
		return nil, pkgerrors.ErrPaymentAlreadyProcessed
	}

	if strings.TrimSpace(reason) == "" {
		reason = reasonGatewayCancelled
	}
	if err := s.paymentRepo.MarkFailed(ctx, payment.ID, reason); err != nil {
		fail(span, err, "marking payment failed")
		return nil, err
	}
	payment.Status = models.PaymentFailed
	payment.ErrorMessage = reason

	observability.Payments.WithLabelValues(string(models.PaymentFailed)).Inc()
	s.publishPayment(ctx, models.EventPaymentFailed, payment)
	return payment, nil
}

// markFailed is best effort: the caller already has an error to return.
func (s *paymentService) markFailed(ctx context.Context, payment *models.Payment, reason string) {
	if err := s.paymentRepo.MarkFailed(ctx, payment.ID, reason); err != nil {
		slog.Error("failed to mark payment failed", "payment_id", payment.ID, "error", err)
		return
	}
	payment.Status = models.PaymentFailed
	payment.ErrorMessage = reason
	observability.Payments.WithLabelValues(string(models.PaymentFailed)).Inc()
	s.publishPayment(ctx, models.EventPaymentFailed, payment)
	slog.Warn("payment failed", "payment_id", payment.ID, "reason", reason)
}

func (s *paymentService) publishPayment(ctx context.Context, eventType models.EventType, payment *models.Payment) {
	amount := payment.Amount
	publish(ctx, s.producer, models.TopicPayments, models.Event{
		Type:       eventType,
		PaymentID:  payment.ID,
		BookID:     payment.BookID,
		BorrowerID: payment.BorrowerID,
		LenderID:   payment.LenderID,
		Status:     string(payment.Status),
		Amount:     &amount,
	})
}

func (s *paymentService) List(ctx context.Context, session models.Session) ([]models.Payment, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "ListPayments")
	defer span.End()

	payments, err := s.paymentRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		fail(span, err, "payment listing failed")
		return nil, err
	}
	return payments, nil
}
