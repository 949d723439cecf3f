package mcp

import (
	"context"
	"net/http"

	"github.com/Strob0t/missioncontrol/internal/middleware"
)

// authenticate requires a bearer API token. With no validator every request
// is rejected.
func authenticate(tokens middleware.TokenValidator, next http.Handler) http.Handler {
	if tokens == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "mcp authentication not configured", http.StatusServiceUnavailable)
		})
	}
	return middleware.BearerAuth(tokens)(next)
}

// tenantFromRequest carries the authenticated tenant into tool handlers.
func tenantFromRequest(ctx context.Context, r *http.Request) context.Context {
	if id := middleware.TenantIDFromContext(r.Context()); id != "" {
		return middleware.WithTenantID(ctx, id)
	}
	return ctx
}
