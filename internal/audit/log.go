// Package audit emits structured audit events for every state-changing
// administrative action, enriched with the request id and acting principal.
package audit

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/qinshuxiang/server/internal/auth"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id, empty when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Log writes one audit event. The acting principal is taken from the request
// context when present so handlers never pass it explicitly.
func Log(ctx context.Context, logger *zap.Logger, event string, fields ...zap.Field) {
	if logger == nil || strings.TrimSpace(event) == "" {
		return
	}
	entry := []zap.Field{zap.String("type", "audit"), zap.String("event", event)}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry = append(entry, zap.String("request_id", rid))
	}
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		entry = append(entry, zap.Int64("principal_id", claims.PrincipalID))
	}
	entry = append(entry, fields...)
	logger.Info("audit", entry...)
}
