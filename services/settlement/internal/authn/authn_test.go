package authn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/store"
)

func TestRegisterAndIdentify(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	wallet := domain.Address("wallet:alice")

	token, err := Register(ctx, mem, wallet)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.HasPrefix(token, tokenPrefix) {
		t.Fatalf("token %q missing prefix", token)
	}

	got, err := Identify(ctx, mem, "Bearer "+token)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if got != wallet {
		t.Fatalf("identified %s, want %s", got, wallet)
	}
}

func TestIdentifyRejects(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	cases := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"unknown token", "Bearer dxs_live_deadbeef"},
	}
	for _, tc := range cases {
		if _, err := Identify(ctx, mem, tc.header); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: err = %v, want ErrUnauthorized", tc.name, err)
		}
	}
}

func TestRegisterRequiresWallet(t *testing.T) {
	mem := store.NewMemory()
	if _, err := Register(context.Background(), mem, domain.ZeroAddress); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("register zero wallet: err = %v, want ErrInvalidSettings", err)
	}
}
