package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/honeynil/BookShareService/internal/infrastructure/auth"
	"github.com/honeynil/BookShareService/internal/models"
	service "github.com/honeynil/BookShareService/internal/services"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	users         service.UserService
	books         service.BookService
	transactions  service.TransactionService
	payments      service.PaymentService
	notifications service.NotificationService
	messages      service.MessageService
	appURL        string
}

func NewHandler(
	users service.UserService,
	books service.BookService,
	transactions service.TransactionService,
	payments service.PaymentService,
	notifications service.NotificationService,
	messages service.MessageService,
	appURL string,
) *Handler {
	return &Handler{
		users:         users,
		books:         books,
		transactions:  transactions,
		payments:      payments,
		notifications: notifications,
		messages:      messages,
		appURL:        appURL,
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/books", h.ListBooks).Methods(http.MethodGet)
	r.HandleFunc("/books/search", h.SearchBooks).Methods(http.MethodGet)
	r.HandleFunc("/books/{id}", h.GetBook).Methods(http.MethodGet)
	r.HandleFunc("/books/{id}/quote", h.QuoteRental).Methods(http.MethodGet)
}

// RegisterAuthRoutes wires sign-up and sign-in, usually behind a rate limiter.
func (h *Handler) RegisterAuthRoutes(r *mux.Router) {
	r.HandleFunc("/sign-up", h.SignUp).Methods(http.MethodPost)
	r.HandleFunc("/sign-in", h.SignIn).Methods(http.MethodPost)
}

// RegisterPaymentCallbacks wires the gateway redirects. They live outside /api.
func (h *Handler) RegisterPaymentCallbacks(r *mux.Router) {
	r.HandleFunc("/payment/success", h.PaymentSuccess).Methods(http.MethodGet)
	r.HandleFunc("/payment/failure", h.PaymentFailure).Methods(http.MethodGet)
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/auth/session", h.CurrentSession).Methods(http.MethodGet)
	r.HandleFunc("/auth/sign-out", h.SignOut).Methods(http.MethodPost)
	r.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
	r.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPatch)

	r.HandleFunc("/my-books", h.MyBooks).Methods(http.MethodGet)
	r.HandleFunc("/books", h.CreateBook).Methods(http.MethodPost)
	r.HandleFunc("/books/{id}", h.UpdateBook).Methods(http.MethodPatch)
	r.HandleFunc("/books/{id}", h.DeleteBook).Methods(http.MethodDelete)

	r.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/rentals", h.RequestRental).Methods(http.MethodPost)
	r.HandleFunc("/transactions/exchanges", h.ProposeExchange).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id}/status", h.UpdateTransactionStatus).Methods(http.MethodPatch)

	r.HandleFunc("/payments", h.InitiatePayment).Methods(http.MethodPost)
	r.HandleFunc("/payments", h.ListPayments).Methods(http.MethodGet)
	r.HandleFunc("/payments/verify", h.VerifyPayment).Methods(http.MethodPost)

	r.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)
	r.HandleFunc("/notifications/unread-count", h.UnreadCounts).Methods(http.MethodGet)
	r.HandleFunc("/notifications/read-all", h.MarkAllNotificationsRead).Methods(http.MethodPost)
	r.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost)
	r.HandleFunc("/notifications/{id}", h.DeleteNotification).Methods(http.MethodDelete)

	r.HandleFunc("/conversations", h.ListConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages", h.ListMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages", h.SendMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/{id}/read", h.MarkMessageRead).Methods(http.MethodPost)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var vErr *pkgerrors.ValidationError
	if errors.As(err, &vErr) {
		resp.Error = pkgerrors.ErrInvalidInput.Error()
		resp.Fields = vErr.Fields
	}
	h.writeJSON(w, status, resp)
}

// fail maps a service error onto a status code. Unknown errors are logged and hidden.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.writeError(w, status, pkgerrors.ErrInternal)
		return
	}
	h.writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrInvalidDateRange),
		errors.Is(err, pkgerrors.ErrInvalidTransactionStatus),
		errors.Is(err, pkgerrors.ErrInvalidTransactionType),
		errors.Is(err, pkgerrors.ErrSelfTransaction),
		errors.Is(err, pkgerrors.ErrAmountMismatch):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrInvalidCredentials),
		errors.Is(err, pkgerrors.ErrUnauthorized),
		errors.Is(err, pkgerrors.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrPaymentVerificationFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, pkgerrors.ErrNotBookOwner),
		errors.Is(err, pkgerrors.ErrNotParticipant),
		errors.Is(err, pkgerrors.ErrNotLender):
		return http.StatusForbidden
	case errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrBookNotFound),
		errors.Is(err, pkgerrors.ErrTransactionNotFound),
		errors.Is(err, pkgerrors.ErrPaymentNotFound),
		errors.Is(err, pkgerrors.ErrNotificationNotFound),
		errors.Is(err, pkgerrors.ErrConversationNotFound),
		errors.Is(err, pkgerrors.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrUserAlreadyExists),
		errors.Is(err, pkgerrors.ErrRequestAlreadyProcessed),
		errors.Is(err, pkgerrors.ErrPaymentAlreadyProcessed),
		errors.Is(err, pkgerrors.ErrOverlappingRental),
		errors.Is(err, pkgerrors.ErrBookUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, pkgerrors.FieldError("body", "must be valid JSON"))
		return false
	}
	return true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, pkgerrors.ErrUnauthorized)
	}
	return session, ok
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, pkgerrors.FieldError(key, "must be a non-negative integer")
	}
	return n, nil
}
