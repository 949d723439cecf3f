package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain/apitoken"
)

const tokenColumns = `id, tenant_id, name, prefix, token_hash, created_at, last_used_at, revoked_at`

func scanToken(row scannable) (apitoken.Token, error) {
	var t apitoken.Token
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Prefix, &t.TokenHash, &t.CreatedAt, &t.LastUsedAt, &t.RevokedAt)
	return t, err
}

// CreateAPIToken stores t under its own TenantID and fills ID and CreatedAt.
func (s *Store) CreateAPIToken(ctx context.Context, t *apitoken.Token) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO api_tokens (tenant_id, name, prefix, token_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		t.TenantID, t.Name, t.Prefix, t.TokenHash,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api token: %w", err)
	}
	return nil
}

func (s *Store) GetAPITokenByHash(ctx context.Context, hash string) (*apitoken.Token, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE token_hash = $1`, hash)
	t, err := scanToken(row)
	if err != nil {
		return nil, notFoundWrap(err, "get api token")
	}
	return &t, nil
}

func (s *Store) ListAPITokens(ctx context.Context) ([]apitoken.Token, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenColumns+` FROM api_tokens WHERE tenant_id = $1 ORDER BY created_at`, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []apitoken.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return orEmpty(tokens), rows.Err()
}

// RevokeAPIToken marks the token revoked; revoking twice keeps the first timestamp.
func (s *Store) RevokeAPIToken(ctx context.Context, id string) (*apitoken.Token, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE api_tokens SET revoked_at = COALESCE(revoked_at, now())
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+tokenColumns, id, tenantFromCtx(ctx))
	t, err := scanToken(row)
	if err != nil {
		return nil, notFoundWrap(err, "revoke api token %s", id)
	}
	return &t, nil
}

func (s *Store) TouchAPIToken(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`, id, at)
	return execExpectOne(tag, err, "touch api token %s", id)
}
