package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"tunegrab/internal/catalog"
	"tunegrab/internal/download"
	"tunegrab/internal/job"
	"tunegrab/internal/source"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("failed to encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var verr *download.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, job.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, job.ErrUnknown), errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrUnavailable), errors.Is(err, source.ErrUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Errorf("request failed: %v", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
