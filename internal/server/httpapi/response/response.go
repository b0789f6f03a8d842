// Package response writes the JSON envelope shared by every API endpoint.
// Clients that ask for application/problem+json receive RFC 7807 bodies for
// errors instead.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Error codes used in the envelope and as the problem type suffix.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeValidation   = "VALIDATION_FAILED"
	CodeInvalidToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeUnverified   = "EMAIL_UNVERIFIED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

type problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
	Errors    any    `json:"errors,omitempty"`
}

// now is replaced in tests.
var now = time.Now

// JSON writes data inside a success envelope.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Meta: buildMeta(r)})
}

// Error writes an error envelope, or a problem document when the client
// prefers one. details is typically a field->message map.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	m := buildMeta(r)

	if PrefersProblem(r) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(problem{
			Type:      "urn:problem:stavros:" + strings.ReplaceAll(strings.ToLower(code), "_", "-"),
			Title:     title(status),
			Status:    status,
			Detail:    message,
			Instance:  r.URL.Path,
			Code:      code,
			RequestID: m.RequestID,
			Errors:    details,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Error: &apiError{Code: code, Message: message, Details: details},
		Meta:  m,
	})
}

// PrefersProblem reports whether the Accept header lists
// application/problem+json with a non-zero quality.
func PrefersProblem(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}
	for _, item := range strings.Split(accept, ",") {
		mediaType, params, _ := strings.Cut(strings.TrimSpace(item), ";")
		if !strings.EqualFold(strings.TrimSpace(mediaType), "application/problem+json") {
			continue
		}
		q := 1.0
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if ok && strings.EqualFold(k, "q") {
				if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = f
				}
			}
		}
		if q > 0 {
			return true
		}
	}
	return false
}

func title(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Error"
}

func buildMeta(r *http.Request) meta {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get(chimiddleware.RequestIDHeader)
	}
	if id == "" {
		id = "req-unknown"
	}
	return meta{RequestID: id, Timestamp: now().UTC()}
}
