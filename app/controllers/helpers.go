package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"postboard/app/middleware"
	"postboard/app/services"
	"postboard/logger"
)

const (
	msgInternalError = "internal server error"
	maxBodyBytes     = 1 << 20
)

// encodeJSON renders data the way every API response is written
func encodeJSON(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := encodeJSON(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"` + msgInternalError + `"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, map[string]string{"error": message})
}

// sendServiceError maps service errors onto HTTP statuses. Anything that is
// not a client mistake is logged and hidden behind a generic 500.
func sendServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		log.Debugw("Rejected request", "path", r.URL.Path, "reason", validationErr.Message)
		sendError(w, validationErr.Message, http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		sendError(w, services.MsgPostNotFound, http.StatusNotFound)
	default:
		log.Errorw("Request failed",
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err.Error(),
		)
		sendError(w, msgInternalError, http.StatusInternalServerError)
	}
}

// decodeBody reads a JSON request body into a T. A missing, oversized or
// malformed body yields the zero T so validation reports the missing fields.
func decodeBody[T any](r *http.Request) T {
	var zero, v T
	if r.Body == nil {
		return zero
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil || len(data) > maxBodyBytes {
		return zero
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return zero
	}
	return v
}
