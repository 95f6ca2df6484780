package handler

import (
	"net/http"

	"problem_solver/internal/api/middleware"
	"problem_solver/internal/app/service"
	"problem_solver/internal/common"

	"github.com/go-chi/chi/v5"
)

type ExecutionHandler struct {
	execService *service.ExecutionService
	limiter     *middleware.IPRateLimiter
}

func NewExecutionHandler(execService *service.ExecutionService, limiter *middleware.IPRateLimiter) *ExecutionHandler {
	return &ExecutionHandler{execService: execService, limiter: limiter}
}

func (h *ExecutionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.languages)

	r.Group(func(run chi.Router) {
		run.Use(middleware.Authenticator)
		if h.limiter != nil {
			run.Use(h.limiter.Middleware)
		}
		run.Post("/", h.run)
	})
}

func (h *ExecutionHandler) languages(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, h.execService.Languages())
}

func (h *ExecutionHandler) run(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.ExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.execService.Run(r.Context(), userID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
