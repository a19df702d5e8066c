package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qinshuxiang/server/internal/auth"
)

func TestLogEnrichesWithRequestAndPrincipal(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.ContextWithClaims(ctx, &auth.Claims{PrincipalID: 7})

	Log(ctx, logger, "case.create", zap.Int64("case_id", 12))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "audit", fields["type"])
	require.Equal(t, "case.create", fields["event"])
	require.Equal(t, "req-123", fields["request_id"])
	require.Equal(t, int64(7), fields["principal_id"])
	require.Equal(t, int64(12), fields["case_id"])
}

func TestLogSkipsEmptyEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Log(context.Background(), zap.New(core), "  ")
	require.Zero(t, logs.Len())
}

func TestRequestIDRoundTrip(t *testing.T) {
	require.Empty(t, RequestIDFromContext(context.Background()))
	ctx := WithRequestID(context.Background(), " req-9 ")
	require.Equal(t, "req-9", RequestIDFromContext(ctx))
}
