package handler

import (
	"net/http"

	"problem_solver/internal/api/middleware"
	"problem_solver/internal/app/service"
	"problem_solver/internal/common"

	"github.com/go-chi/chi/v5"
)

type SolutionHandler struct {
	solver *service.SolverService
}

func NewSolutionHandler(solver *service.SolverService) *SolutionHandler {
	return &SolutionHandler{solver: solver}
}

func (h *SolutionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/{solutionID}/feedback", h.submitFeedback)
}

func (h *SolutionHandler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	solution, err := h.solver.SubmitFeedback(r.Context(), userID, role, chi.URLParam(r, "solutionID"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, solution)
}
