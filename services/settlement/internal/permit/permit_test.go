package permit

import (
	"context"
	"errors"
	"testing"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/store"
)

const testNow = uint64(1_700_000_000)

const (
	owner    = domain.Address("wallet:owner")
	operator = domain.Address("wallet:operator")
	stranger = domain.Address("wallet:stranger")
)

func ownedBy(who domain.Address) OwnershipFunc {
	return func(_ context.Context, _ store.Tx, principal domain.Address, _ uint64, _ uint64) (bool, error) {
		return principal == who, nil
	}
}

func putGrant(t *testing.T, mem *store.Memory, g domain.OperatorGrant) {
	t.Helper()
	ctx := context.Background()
	if err := mem.WithinTx(ctx, func(tx store.Tx) error {
		return tx.PutGrant(ctx, g)
	}); err != nil {
		t.Fatalf("put grant: %v", err)
	}
}

func allow(t *testing.T, mem *store.Memory, r *Resolver, principal domain.Address, action Action) error {
	t.Helper()
	var out error
	ctx := context.Background()
	if err := mem.WithinTx(ctx, func(tx store.Tx) error {
		out = r.Allow(ctx, tx, principal, 1, testNow, action)
		return nil
	}); err != nil {
		t.Fatalf("tx: %v", err)
	}
	return out
}

func TestOwnerTier(t *testing.T) {
	mem := store.NewMemory()
	r := New(ownedBy(owner))
	if err := allow(t, mem, r, owner, ActionManageOperators); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	if err := allow(t, mem, r, stranger, ActionAsset); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stranger: err = %v, want ErrUnauthorized", err)
	}
}

func TestGrantTierRoles(t *testing.T) {
	mem := store.NewMemory()
	r := New(ownedBy(owner))
	putGrant(t, mem, domain.OperatorGrant{
		Operator: operator, AssetID: 1,
		AccessExpires: testNow + 100, Role: domain.RoleNormal,
	})

	if err := allow(t, mem, r, operator, ActionAsset); err != nil {
		t.Fatalf("normal operator denied asset action: %v", err)
	}
	if err := allow(t, mem, r, operator, ActionManageOperators); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("normal operator managing operators: err = %v, want ErrUnauthorized", err)
	}

	putGrant(t, mem, domain.OperatorGrant{
		Operator: operator, AssetID: 1,
		AccessExpires: testNow + 100, Role: domain.RoleSuper,
	})
	if err := allow(t, mem, r, operator, ActionManageOperators); err != nil {
		t.Fatalf("super operator denied: %v", err)
	}
}

func TestExpiredGrantReadsAsAbsent(t *testing.T) {
	mem := store.NewMemory()
	r := New(ownedBy(owner))
	putGrant(t, mem, domain.OperatorGrant{
		Operator: operator, AssetID: 1,
		AccessExpires: testNow, Role: domain.RoleSuper, // boundary: expired
	})
	if err := allow(t, mem, r, operator, ActionAsset); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expired grant: err = %v, want ErrUnauthorized", err)
	}
}

func TestFallbackTier(t *testing.T) {
	mem := store.NewMemory()
	r := New(ownedBy(owner))
	r.Fallback = func(principal domain.Address, _ uint64) bool {
		return principal == stranger
	}
	if err := allow(t, mem, r, stranger, ActionManageOperators); err != nil {
		t.Fatalf("fallback-approved principal denied: %v", err)
	}
	if err := allow(t, mem, r, operator, ActionAsset); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("default deny: err = %v, want ErrUnauthorized", err)
	}
}
