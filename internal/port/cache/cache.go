// Package cache defines the port for caching resolved API tokens.
package cache

import (
	"context"

	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
)

// TokenCache caches token lookups by hash. It is best-effort: failures are
// reported as misses and never block authentication.
type TokenCache interface {
	Get(ctx context.Context, hash string) (*apitoken.Token, bool)
	Set(ctx context.Context, hash string, t *apitoken.Token)
	Delete(ctx context.Context, hash string)
}
