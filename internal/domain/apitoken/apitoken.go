// Package apitoken defines bearer tokens used by the ingestion endpoints.
package apitoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/missioncontrol/internal/domain"
)

// Prefix is prepended to generated tokens for identification.
const Prefix = "oc_"

// Token is a stored API token. The plaintext is never persisted.
type Token struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	TokenHash  string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the token may still authenticate.
func (t *Token) Active() bool {
	return t.RevokedAt == nil
}

// CreateRequest is the input for minting a token.
type CreateRequest struct {
	Name     string `json:"name"`
	TenantID string `json:"tenant_id,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	return nil
}

// Created is returned once after minting; Plain is not recoverable later.
type Created struct {
	Token Token  `json:"token"`
	Plain string `json:"plain_token"`
}

// Generate returns a new plaintext token and its 8-character display prefix.
func Generate() (plain, prefix string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	secret := hex.EncodeToString(buf)
	return Prefix + secret, secret[:8], nil
}

// Hash returns the lowercase hex SHA-256 of the full plaintext token.
func Hash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
