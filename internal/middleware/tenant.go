package middleware

import "context"

type tenantCtxKey struct{}

// WithTenantID returns a context scoped to the given tenant.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenantID)
}

// TenantIDFromContext returns the tenant ID stored in ctx, or "" if absent.
func TenantIDFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(tenantCtxKey{}).(string)
	return tid
}
