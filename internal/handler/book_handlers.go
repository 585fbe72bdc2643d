package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/BookShareService/internal/models"
	service "github.com/honeynil/BookShareService/internal/services"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
)

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	books, err := h.books.List(r.Context(), models.BookFilter{
		OwnerID: q.Get("owner_id"),
		Status:  models.BookStatus(q.Get("status")),
		Genre:   q.Get("genre"),
		Search:  q.Get("search"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, books)
}

func (h *Handler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.fail(w, r, pkgerrors.FieldError("q", "is required"))
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	books, err := h.books.Search(r.Context(), q, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, books)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, book)
}

// QuoteRental prices a rental before the borrower is sent to the gateway.
func (h *Handler) QuoteRental(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := queryDate(r, "end_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	quote, err := h.payments.QuoteRental(r.Context(), mux.Vars(r)["id"], start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) MyBooks(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	books, err := h.books.MyBooks(r.Context(), session)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, books)
}

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req service.BookInput
	if !h.decode(w, r, &req) {
		return
	}

	book, err := h.books.Create(r.Context(), session, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req service.BookPatch
	if !h.decode(w, r, &req) {
		return
	}

	book, err := h.books.Update(r.Context(), session, mux.Vars(r)["id"], req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, book)
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.books.Delete(r.Context(), session, mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryDate accepts RFC 3339 timestamps and plain dates.
func queryDate(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, pkgerrors.FieldError(key, "is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, pkgerrors.FieldError(key, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return t, nil
}
