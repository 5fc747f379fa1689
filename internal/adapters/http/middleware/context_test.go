package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDContext(t *testing.T) {
	tests := []struct {
		name            string
		build           func(context.Context) context.Context
		wantRequest     string
		wantCorrelation string
	}{
		{
			name:  "nothing stored",
			build: func(ctx context.Context) context.Context { return ctx },
		},
		{
			name: "request ID only",
			build: func(ctx context.Context) context.Context {
				return ContextWithRequestID(ctx, "req-sync-1")
			},
			wantRequest: "req-sync-1",
		},
		{
			name: "both IDs are independent",
			build: func(ctx context.Context) context.Context {
				ctx = ContextWithRequestID(ctx, "req-import-7")
				return ContextWithCorrelationID(ctx, "corr-import-7")
			},
			wantRequest:     "req-import-7",
			wantCorrelation: "corr-import-7",
		},
		{
			name: "latest value wins",
			build: func(ctx context.Context) context.Context {
				ctx = ContextWithCorrelationID(ctx, "corr-old")
				return ContextWithCorrelationID(ctx, "corr-new")
			},
			wantCorrelation: "corr-new",
		},
		{
			name: "plain string keys do not collide",
			build: func(ctx context.Context) context.Context {
				return context.WithValue(ctx, ContextKeyRequestID, "spoofed") //nolint:staticcheck // collision check
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.build(context.Background())

			assert.Equal(t, tt.wantRequest, RequestIDFromContext(ctx))
			assert.Equal(t, tt.wantCorrelation, CorrelationIDFromContext(ctx))
		})
	}
}

func TestIDContext_NilContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(nil))     //nolint:staticcheck // nil guard
	assert.Empty(t, CorrelationIDFromContext(nil)) //nolint:staticcheck // nil guard
}
