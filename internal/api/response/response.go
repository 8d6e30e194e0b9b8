// Package response renders the API's JSON envelopes. Success payloads ride
// under "data", list payloads add a pagination "meta" block, and failures
// carry a machine-readable code under "error" so clients can branch without
// parsing messages.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// PaginationMeta describes the page window of a Collection response.
type PaginationMeta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type pagedEnvelope struct {
	Data any            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data in the success envelope with a 200.
func JSON(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, dataEnvelope{Data: data})
}

// Created writes data in the success envelope with a 201.
func Created(w http.ResponseWriter, data any) {
	write(w, http.StatusCreated, dataEnvelope{Data: data})
}

// Accepted writes data in the success envelope with a 202. Used for job
// submissions, where the work happens after the response.
func Accepted(w http.ResponseWriter, data any) {
	write(w, http.StatusAccepted, dataEnvelope{Data: data})
}

// Collection writes a page of results plus its pagination metadata.
func Collection(w http.ResponseWriter, data any, meta PaginationMeta) {
	write(w, http.StatusOK, pagedEnvelope{Data: data, Meta: meta})
}

// Error writes the error envelope. code is a stable identifier like
// JOB_NOT_FOUND; message is for humans; details is optional structure such as
// per-field validation errors.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	write(w, status, errorEnvelope{Error: apiError{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// write marshals before touching the ResponseWriter so an encoding failure
// still produces a well-formed error body instead of a torn response.
func write(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("response encoding failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"response encoding failed"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
