package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/missioncontrol/internal/domain"
	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
	"github.com/Strob0t/missioncontrol/internal/middleware"
	"github.com/Strob0t/missioncontrol/internal/port/cache"
	"github.com/Strob0t/missioncontrol/internal/port/database"
)

// ErrInvalidToken is returned for unknown, malformed or revoked tokens.
var ErrInvalidToken = errors.New("invalid api token")

// touchInterval throttles last-used updates for busy tokens.
const touchInterval = time.Minute

// AuthService mints, validates and revokes API tokens.
type AuthService struct {
	store database.Store
	cache cache.TokenCache
	now   func() time.Time
}

// NewAuthService creates an AuthService. c may be nil to disable caching.
func NewAuthService(store database.Store, c cache.TokenCache) *AuthService {
	return &AuthService{store: store, cache: c, now: time.Now}
}

// ValidateToken resolves a plaintext bearer token by exact hash lookup.
// Validated tokens are cached; revocation evicts them.
func (s *AuthService) ValidateToken(ctx context.Context, plain string) (*apitoken.Token, error) {
	if !strings.HasPrefix(plain, apitoken.Prefix) {
		return nil, ErrInvalidToken
	}
	hash := apitoken.Hash(plain)

	if s.cache != nil {
		if t, ok := s.cache.Get(ctx, hash); ok && t.Active() {
			return t, nil
		}
	}

	t, err := s.store.GetAPITokenByHash(ctx, hash)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api token: %w", err)
	}
	if !t.Active() {
		return nil, ErrInvalidToken
	}

	s.touch(ctx, t)
	if s.cache != nil {
		s.cache.Set(ctx, hash, t)
	}
	return t, nil
}

func (s *AuthService) touch(ctx context.Context, t *apitoken.Token) {
	now := s.now()
	if t.LastUsedAt != nil && now.Sub(*t.LastUsedAt) < touchInterval {
		return
	}
	if err := s.store.TouchAPIToken(ctx, t.ID, now); err != nil {
		slog.WarnContext(ctx, "failed to record token use", "token_id", t.ID, "error", err)
		return
	}
	t.LastUsedAt = &now
}

// CreateToken mints a token for the request tenant, or the tenant in ctx.
// The plaintext is only returned here.
func (s *AuthService) CreateToken(ctx context.Context, req apitoken.CreateRequest) (*apitoken.Created, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = middleware.TenantIDFromContext(ctx)
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, fmt.Errorf("%w: tenant id must be a uuid", domain.ErrValidation)
	}

	plain, prefix, err := apitoken.Generate()
	if err != nil {
		return nil, err
	}
	t := &apitoken.Token{
		TenantID:  tenantID,
		Name:      strings.TrimSpace(req.Name),
		Prefix:    prefix,
		TokenHash: apitoken.Hash(plain),
	}
	if err := s.store.CreateAPIToken(middleware.WithTenantID(ctx, tenantID), t); err != nil {
		return nil, fmt.Errorf("create api token: %w", err)
	}
	slog.InfoContext(ctx, "api token created", "token_id", t.ID, "tenant_id", tenantID, "prefix", prefix)
	return &apitoken.Created{Token: *t, Plain: plain}, nil
}

// ListTokens returns the tenant's tokens without their hashes.
func (s *AuthService) ListTokens(ctx context.Context) ([]apitoken.Token, error) {
	return s.store.ListAPITokens(ctx)
}

// RevokeToken revokes a token and evicts it from the cache.
func (s *AuthService) RevokeToken(ctx context.Context, id string) (*apitoken.Token, error) {
	t, err := s.store.RevokeAPIToken(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, t.TokenHash)
	}
	slog.InfoContext(ctx, "api token revoked", "token_id", t.ID)
	return t, nil
}
