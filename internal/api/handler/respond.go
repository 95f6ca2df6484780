package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"problem_solver/internal/api/middleware"
	"problem_solver/internal/common"
	"problem_solver/internal/platform/logger"
)

// respondError writes err with the status its kind maps to. Field errors
// carry per-field details; 500s hide the underlying cause.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var fields common.FieldErrors
	if errors.As(err, &fields) {
		common.RespondWithValidationError(w, "Invalid request", fields)
		return
	}
	status := common.HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		common.RespondWithError(w, status, "Internal server error")
		return
	}
	common.RespondWithError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (userID, role string, ok bool) {
	userID, ok = middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return "", "", false
	}
	role, _ = middleware.GetUserRoleFromContext(r.Context())
	return userID, role, true
}
