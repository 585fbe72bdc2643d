package handler

import (
	"net/http"

	service "github.com/honeynil/BookShareService/internal/services"
)

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpInput
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.users.SignUp(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, token)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInInput
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.users.SignIn(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, token)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.users.SignOut(r.Context(), session); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	user, err := h.users.Profile(r.Context(), session)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req service.UpdateProfileInput
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), session, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}
