package handler

import (
	"net/http"
	"strconv"

	"problem_solver/internal/api/middleware"
	"problem_solver/internal/app/service"
	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
	"problem_solver/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	solver  *service.SolverService
	limiter *middleware.IPRateLimiter
}

func NewProblemHandler(solver *service.SolverService, limiter *middleware.IPRateLimiter) *ProblemHandler {
	return &ProblemHandler{solver: solver, limiter: limiter}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Group(func(solve chi.Router) {
		if h.limiter != nil {
			solve.Use(h.limiter.Middleware)
		}
		solve.Post("/", h.solve)            // POST /api/v1/problems
		solve.Post("/async", h.submitAsync) // POST /api/v1/problems/async
	})

	r.Get("/", h.listProblems)
	r.Get("/{problemID}", h.getProblem)
	r.Patch("/{problemID}/bookmark", h.toggleBookmark)
	r.Delete("/{problemID}", h.deleteProblem)
}

func (h *ProblemHandler) solve(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.SolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.solver.Solve(r.Context(), userID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, res)
}

func (h *ProblemHandler) submitAsync(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.SolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	problem, err := h.solver.Submit(r.Context(), userID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, problem)
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	filter := repository.ProblemFilter{
		Status:   model.ProblemStatus(q.Get("status")),
		Category: model.ProblemCategory(q.Get("category")),
	}

	resp, err := h.solver.ListProblems(r.Context(), userID, page, pageSize, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := h.solver.GetProblem(r.Context(), userID, role, chi.URLParam(r, "problemID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *ProblemHandler) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requireUser(w, r)
	if !ok {
		return
	}
	bookmarked, err := h.solver.ToggleBookmark(r.Context(), userID, role, chi.URLParam(r, "problemID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]bool{"is_bookmarked": bookmarked})
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.solver.DeleteProblem(r.Context(), userID, role, chi.URLParam(r, "problemID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
