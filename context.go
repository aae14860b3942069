package goAuthClient

import (
	"context"

	"github.com/google/uuid"
)

type flowIDContextKey struct{}

// WithFlowID attaches a correlation id to ctx. Engine calls made with this
// ctx report it in their audit events and log lines instead of generating
// their own.
func WithFlowID(ctx context.Context, flowID string) context.Context {
	return context.WithValue(ctx, flowIDContextKey{}, flowID)
}

func flowIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(flowIDContextKey{}).(string)
	return id
}

// ensureFlowID returns ctx carrying a flow id, generating one if absent.
func ensureFlowID(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if id := flowIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithFlowID(ctx, id), id
}
