package http

import (
	"context"
	"strings"
)

type contextKey string

const resourceIDContextKey contextKey = "resource_id"

// ContextWithResourceID stores the identifier resolved from the request path.
func ContextWithResourceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, resourceIDContextKey, id)
}

// ResourceIDFromContext returns the identifier stored by ContextWithResourceID.
func ResourceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(resourceIDContextKey).(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}
