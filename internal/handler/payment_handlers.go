package handler

import (
	"log/slog"
	"net/http"

	service "github.com/honeynil/BookShareService/internal/services"
	"github.com/shopspring/decimal"
)

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req service.InitiatePaymentInput
	if !h.decode(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("Idempotency-Key")
	}

	checkout, err := h.payments.Initiate(r.Context(), session, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, checkout)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	payments, err := h.payments.List(r.Context(), session)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, payments)
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req service.VerifyPaymentInput
	if !h.decode(w, r, &req) {
		return
	}

	payment, err := h.payments.Verify(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, payment)
}

// PaymentSuccess handles the gateway's success redirect and sends the browser back to the app.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := service.VerifyPaymentInput{
		ProductID: q.Get("pid"),
		RefID:     q.Get("refId"),
	}

	outcome := "success"
	if amt := q.Get("amt"); amt != "" {
		amount, err := decimal.NewFromString(amt)
		if err != nil {
			slog.Warn("invalid amount in payment callback", "pid", in.ProductID, "amt", amt)
			outcome = "failed"
		} else {
			in.Amount = &amount
		}
	}
	if outcome == "success" {
		if _, err := h.payments.Verify(r.Context(), in); err != nil {
			slog.Warn("payment verification failed", "pid", in.ProductID, "error", err)
			outcome = "failed"
		}
	}
	http.Redirect(w, r, h.appURL+"/books?payment="+outcome, http.StatusSeeOther)
}

func (h *Handler) PaymentFailure(w http.ResponseWriter, r *http.Request) {
	pid := r.URL.Query().Get("pid")
	if pid == "" {
		slog.Warn("payment failure callback without pid")
	} else if _, err := h.payments.MarkFailed(r.Context(), pid, ""); err != nil {
		level := slog.LevelError
		if statusFor(err) != http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "failed to mark payment failed", "pid", pid, "error", err)
	}
	http.Redirect(w, r, h.appURL+"/books?payment=failed", http.StatusSeeOther)
}
