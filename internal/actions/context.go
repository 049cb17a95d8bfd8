package actions

import (
	"context"
	"strings"

	"github.com/example/pool-backoffice/internal/application"
)

type principalKey struct{}

// ContextWithPrincipal attaches the authenticated admin to ctx.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the admin attached by ContextWithPrincipal.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	if ctx == nil {
		return application.Principal{}, false
	}
	principal, ok := ctx.Value(principalKey{}).(application.Principal)
	if !ok || strings.TrimSpace(principal.AdminID) == "" {
		return application.Principal{}, false
	}
	return principal, true
}
