package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
)

type tokenCtxKey struct{}

// unauthorizedBody is returned for every rejected credential so callers
// cannot tell a missing token from a revoked one.
const unauthorizedBody = `{"error":"Unauthorized"}`

// TokenValidator resolves a plaintext bearer token to its stored record.
type TokenValidator interface {
	ValidateToken(ctx context.Context, plain string) (*apitoken.Token, error)
}

// BearerAuth returns middleware that requires an "Authorization: Bearer"
// API token. On success the token and its tenant are stored in the context.
// WebSocket upgrades may pass the token as the ?token= query parameter.
func BearerAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plain := bearerToken(r)
			if plain == "" {
				writeUnauthorized(w)
				return
			}

			tok, err := v.ValidateToken(r.Context(), plain)
			if err != nil {
				slog.DebugContext(r.Context(), "bearer token rejected", "error", err)
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), tokenCtxKey{}, tok)
			if tok.TenantID != "" {
				ctx = WithTenantID(ctx, tok.TenantID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromContext returns the authenticated API token, or nil.
func TokenFromContext(ctx context.Context) *apitoken.Token {
	tok, _ := ctx.Value(tokenCtxKey{}).(*apitoken.Token)
	return tok
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}
