package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "projectgraph/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps a DomainError onto an HTTP status.
func respondDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNoActiveGraph), apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsValidation(err), apperrors.IsUnsupported(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
	}

	resp := errorResponse{Error: err.Error()}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		resp.Error = de.Message
		resp.Code = de.Code
	}
	respondJSON(w, status, resp)
}
