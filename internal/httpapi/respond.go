package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/qinshuxiang/server/internal/apperr"
	"github.com/qinshuxiang/server/internal/audit"
)

// Every response uses one envelope so clients can branch on success alone.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Success: true, Data: data, Message: "ok"})
}

// respondError translates a taxonomy error into its wire form. Storage and
// internal failures are logged with their cause and collapse to a generic
// client message.
func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindStorage || appErr.Kind == apperr.KindInternal {
		a.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", audit.RequestIDFromContext(r.Context())),
			zap.Error(appErr),
		)
	}
	env := envelope{
		Success:   false,
		Message:   appErr.ClientMessage(),
		ErrorCode: appErr.Code(),
	}
	if len(appErr.FieldErrors) > 0 {
		env.Details = map[string]any{"fieldErrors": appErr.FieldErrors}
	}
	writeJSON(w, appErr.HTTPStatus(), env)
}

// decodeJSON reads a request body into dst, rejecting unknown fields and
// trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validationf("body", "invalid JSON payload: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validationf("body", "unexpected trailing data")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeJSON(w, http.StatusMethodNotAllowed, envelope{
		Success:   false,
		Message:   "method not allowed",
		ErrorCode: "METHOD_NOT_ALLOWED",
	})
}
