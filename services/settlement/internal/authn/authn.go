// Package authn identifies callers from bearer tokens. Tokens are random,
// shown once at registration and stored only as sha256 hashes.
package authn

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/store"
)

const tokenPrefix = "dxs_live_"

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewToken mints a fresh bearer token and its storable hash.
func NewToken() (token, tokenHash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	token = tokenPrefix + hex.EncodeToString(raw)
	return token, HashToken(token), nil
}

func parseBearer(authorization string) (string, bool) {
	const scheme = "Bearer "
	if !strings.HasPrefix(authorization, scheme) {
		return "", false
	}
	token := strings.TrimSpace(authorization[len(scheme):])
	return token, token != ""
}

// Identify resolves the Authorization header to a wallet address.
func Identify(ctx context.Context, ledger store.Ledger, authorization string) (domain.Address, error) {
	token, ok := parseBearer(authorization)
	if !ok {
		return domain.ZeroAddress, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}
	var actor domain.Address
	err := ledger.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		actor, err = tx.ActorForToken(ctx, HashToken(token))
		return err
	})
	if err != nil {
		return domain.ZeroAddress, fmt.Errorf("%w: unknown token", domain.ErrUnauthorized)
	}
	return actor, nil
}

// Register issues a token for a wallet address and stores its hash. The
// plaintext token is returned once and never retrievable again.
func Register(ctx context.Context, ledger store.Ledger, actor domain.Address) (string, error) {
	if actor.IsZero() {
		return "", fmt.Errorf("%w: wallet address required", domain.ErrInvalidSettings)
	}
	token, tokenHash, err := NewToken()
	if err != nil {
		return "", err
	}
	err = ledger.WithinTx(ctx, func(tx store.Tx) error {
		return tx.PutToken(ctx, tokenHash, actor)
	})
	if err != nil {
		return "", err
	}
	return token, nil
}
