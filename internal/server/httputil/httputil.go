// Package httputil holds the JSON request/response helpers shared by all handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// FieldMessage is one entry of an error response body.
type FieldMessage struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

// ErrorResult is the error response body: a list of per-field messages.
type ErrorResult struct {
	ErrorsMessages []FieldMessage `json:"errorsMessages"`
}

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteFieldErrors writes an ErrorResult with the given messages.
func WriteFieldErrors(w http.ResponseWriter, status int, messages []FieldMessage) {
	WriteJSON(w, status, ErrorResult{ErrorsMessages: messages})
}

// WriteError writes an ErrorResult with a single message and no field.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteFieldErrors(w, status, []FieldMessage{{Message: message}})
}

// ParseJSON decodes the request body into dst, rejecting unknown fields.
func ParseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// ClientIP returns the originating client address, honoring X-Forwarded-For
// set by a fronting proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
