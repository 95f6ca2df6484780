package handler

import (
	"net/http"

	"problem_solver/internal/api/middleware"
	"problem_solver/internal/app/service"
	"problem_solver/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	authService *service.AuthService
	quota       *service.QuotaTracker
}

func NewUserHandler(authService *service.AuthService, quota *service.QuotaTracker) *UserHandler {
	return &UserHandler{authService: authService, quota: quota}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/me", h.me)
	r.Get("/me/quota", h.myQuota)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.authService.CurrentUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) myQuota(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.authService.CurrentUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, h.quota.Status(user))
}
