package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	service "github.com/honeynil/BookShareService/internal/services"
)

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	transactions, err := h.transactions.List(r.Context(), session, service.TransactionListFilter{
		Direction: q.Get("direction"),
		Status:    q.Get("status"),
		Type:      q.Get("type"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transactions)
}

func (h *Handler) RequestRental(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req service.RentalRequestInput
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.transactions.RequestRental(r.Context(), session, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) ProposeExchange(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req service.ExchangeInput
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.transactions.ProposeExchange(r.Context(), session, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	tx, err := h.transactions.Get(r.Context(), session, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.transactions.UpdateStatus(r.Context(), session, mux.Vars(r)["id"], req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}
