package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	blinkapi "github.com/nerrad567/gray-logic-blink/internal/blink"
	blinkbridge "github.com/nerrad567/gray-logic-blink/internal/bridges/blink"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeUpstream     = "upstream_error"
	ErrCodeTimeout      = "timeout"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceUnavailable writes a 503 error response.
func writeServiceUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeBridgeError maps a bridge or Blink error to an HTTP response.
//
//   - unknown command: 400
//   - no networks, index out of range: 404
//   - bridge not ready, session not authenticated: 503
//   - login rejected, transport failure, malformed reply: 502
//   - deadline exceeded: 504
func writeBridgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "blink did not respond in time")
		return
	case errors.Is(err, blinkbridge.ErrInvalidCommand):
		writeBadRequest(w, err.Error())
		return
	case errors.Is(err, blinkbridge.ErrNotReady):
		writeServiceUnavailable(w, "network list not loaded yet")
		return
	}

	kind, ok := blinkapi.KindOf(err)
	if !ok {
		writeInternalError(w, "internal error")
		return
	}
	switch kind {
	case blinkapi.KindNoNetworks, blinkapi.KindNetworkIndexOutOfRange:
		writeNotFound(w, err.Error())
	case blinkapi.KindNotAuthenticated:
		writeServiceUnavailable(w, "blink session not authenticated")
	case blinkapi.KindAuthentication, blinkapi.KindTransport, blinkapi.KindMalformedResponse:
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
	default:
		writeInternalError(w, "internal error")
	}
}
