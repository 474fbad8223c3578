package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"neothink/pkg/types"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// writeError maps err onto the error taxonomy. Store and internal failures
// never leak their cause to the client.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Message: err.Error()}
	status := http.StatusInternalServerError

	var validation *types.ValidationError
	switch {
	case errors.As(err, &validation):
		status, resp.Error, resp.Fields = http.StatusBadRequest, "validation_error", validation.Fields
	case errors.Is(err, types.ErrValidation):
		status, resp.Error = http.StatusBadRequest, "validation_error"
	case errors.Is(err, types.ErrUnauthenticated):
		status, resp.Error = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, types.ErrForbidden):
		status, resp.Error = http.StatusForbidden, "forbidden"
	case errors.Is(err, types.ErrNotFound):
		status, resp.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrRateLimited):
		status, resp.Error = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, types.ErrStore):
		s.logger.WithError(err).Error("store failure")
		resp.Error, resp.Message = "store_error", "the request could not be completed"
	default:
		s.logger.WithError(err).Error("unhandled error")
		resp.Error, resp.Message = "internal_error", "the request could not be completed"
	}

	s.writeJSON(w, status, resp)
}

func (s *Service) writeRateLimited(w http.ResponseWriter, waitMillis int64, retryAfter int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	s.writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":    "Too many requests. Please try again later.",
		"waitTime": waitMillis,
	})
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	s.writeError(w, types.ErrInternal)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, 1<<20)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return types.NewValidationError("body", fmt.Sprintf("invalid JSON body: %s", err))
	}
	return nil
}
