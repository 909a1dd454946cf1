package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"taskboard/apperrors"
	"taskboard/utilities"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utilities.LogError(err, "encode JSON response")
	}
}

// writeError maps err to its status and JSON envelope. Internal causes are
// logged, never sent.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		utilities.LogError(err, "request failed")
	}
	body := ErrorResponse{Error: apperrors.Message(err), Kind: apperrors.KindOf(err).String()}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body.Field = appErr.Field
	}
	writeJSON(w, status, body)
}

func methodNotAllowed(w http.ResponseWriter, allow ...string) {
	w.Header().Set("Allow", strings.Join(allow, ", "))
	writeError(w, apperrors.E(apperrors.KindMethodNotAllowed, "", nil))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Invalid(op, "body", "Request body must be valid JSON.")
	}
	return nil
}

// requireJSON rejects bodies not declared as application/json. Browsers can
// send other content types cross-site without a preflight.
func requireJSON(r *http.Request, op string) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return apperrors.Invalid(op, "content_type", "Request body must be sent as application/json.")
	}
	return nil
}

// wantsJSON reports whether the caller is an API client rather than a
// browser form.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
