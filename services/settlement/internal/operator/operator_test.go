package operator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/permit"
	"dexsta/services/settlement/internal/registry"
	"dexsta/services/settlement/internal/store"
)

const testNow = uint64(1_700_000_000)

const (
	labelOwner = domain.Address("wallet:owner")
	opAddr     = domain.Address("wallet:operator")
	stranger   = domain.Address("wallet:stranger")
)

const labelID = uint64(1)

func newEngine(t *testing.T) (*Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	err := mem.WithinTx(ctx, func(tx store.Tx) error {
		return tx.PutAsset(ctx, domain.Asset{
			ID: labelID, Title: "studio", Type: domain.TypeLeadLabel,
			EditionSize: 1, ExpiresAt: testNow + 86400, Owner: labelOwner,
		})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	e := New(mem, permit.New(registry.LabelOwner), zerolog.Nop())
	e.Clock = func() time.Time { return time.Unix(int64(testNow), 0) }
	return e, mem
}

func TestGrantRequiresManagementRights(t *testing.T) {
	e, _ := newEngine(t)
	g := domain.OperatorGrant{
		Operator: opAddr, AssetID: labelID,
		License: 7, AccessExpires: testNow + 3600, Role: domain.RoleNormal,
		MaxWithdraw: 500, WithdrawEveryDays: 7,
	}
	if err := e.Grant(context.Background(), stranger, g); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stranger grant: err = %v, want ErrUnauthorized", err)
	}
	if err := e.Grant(context.Background(), labelOwner, g); err != nil {
		t.Fatalf("owner grant: %v", err)
	}

	st, err := e.IsGranted(context.Background(), opAddr, labelID)
	if err != nil {
		t.Fatalf("is granted: %v", err)
	}
	if !st.Granted || st.License != 7 || st.MaxWithdraw != 500 {
		t.Fatalf("status = %+v, want granted with license 7", st)
	}
}

func TestNormalOperatorCannotManage(t *testing.T) {
	e, _ := newEngine(t)
	if err := e.Grant(context.Background(), labelOwner, domain.OperatorGrant{
		Operator: opAddr, AssetID: labelID,
		AccessExpires: testNow + 3600, Role: domain.RoleNormal,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	err := e.Grant(context.Background(), opAddr, domain.OperatorGrant{
		Operator: stranger, AssetID: labelID, AccessExpires: testNow + 3600,
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("normal operator granting: err = %v, want ErrUnauthorized", err)
	}
}

func TestSuperOperatorCanManage(t *testing.T) {
	e, _ := newEngine(t)
	if err := e.Grant(context.Background(), labelOwner, domain.OperatorGrant{
		Operator: opAddr, AssetID: labelID,
		AccessExpires: testNow + 3600, Role: domain.RoleSuper,
	}); err != nil {
		t.Fatalf("grant super: %v", err)
	}
	if err := e.Grant(context.Background(), opAddr, domain.OperatorGrant{
		Operator: stranger, AssetID: labelID, AccessExpires: testNow + 3600,
	}); err != nil {
		t.Fatalf("super operator granting: %v", err)
	}
}

func TestRevokeKeepsWithdrawBookkeeping(t *testing.T) {
	e, mem := newEngine(t)
	if err := e.Grant(context.Background(), labelOwner, domain.OperatorGrant{
		Operator: opAddr, AssetID: labelID,
		License: 7, AccessExpires: testNow + 3600, Role: domain.RoleSuper,
		NextWithdraw: testNow + 100, MaxWithdraw: 500, WithdrawEveryDays: 7,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := e.Revoke(context.Background(), labelOwner, opAddr, labelID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	st, err := e.IsGranted(context.Background(), opAddr, labelID)
	if err != nil {
		t.Fatalf("is granted: %v", err)
	}
	if st.Granted {
		t.Fatalf("revoked operator still granted: %+v", st)
	}

	// Soft delete: the record survives with its cooldown fields intact.
	ctx := context.Background()
	err = mem.WithinTx(ctx, func(tx store.Tx) error {
		g, err := tx.GetGrant(ctx, opAddr, labelID)
		if err != nil {
			return err
		}
		if g.License != 0 || g.AccessExpires != 0 || g.Role != domain.RoleNormal {
			t.Fatalf("revoked grant = %+v, want license/expiry/role zeroed", g)
		}
		if g.NextWithdraw != testNow+100 || g.MaxWithdraw != 500 || g.WithdrawEveryDays != 7 {
			t.Fatalf("revoked grant = %+v, want withdraw fields retained", g)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
}

func TestIsGrantedExpired(t *testing.T) {
	e, _ := newEngine(t)
	if err := e.Grant(context.Background(), labelOwner, domain.OperatorGrant{
		Operator: opAddr, AssetID: labelID, AccessExpires: testNow, // boundary
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	st, err := e.IsGranted(context.Background(), opAddr, labelID)
	if err != nil {
		t.Fatalf("is granted: %v", err)
	}
	if st.Granted {
		t.Fatalf("expired grant reported granted")
	}
	if st, err = e.IsGranted(context.Background(), stranger, labelID); err != nil || st.Granted {
		t.Fatalf("missing grant: status %+v err %v, want not granted, no error", st, err)
	}
}

func TestEditWithdrawLimits(t *testing.T) {
	e, mem := newEngine(t)
	if err := e.Grant(context.Background(), labelOwner, domain.OperatorGrant{
		Operator: opAddr, AssetID: labelID,
		AccessExpires: testNow + 3600, MaxWithdraw: 100, WithdrawEveryDays: 1,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := e.EditWithdrawLimits(context.Background(), stranger, opAddr, labelID, 30, 9000); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stranger edit: err = %v, want ErrUnauthorized", err)
	}
	if err := e.EditWithdrawLimits(context.Background(), labelOwner, opAddr, labelID, 30, 9000); err != nil {
		t.Fatalf("edit: %v", err)
	}

	ctx := context.Background()
	err := mem.WithinTx(ctx, func(tx store.Tx) error {
		g, err := tx.GetGrant(ctx, opAddr, labelID)
		if err != nil {
			return err
		}
		if g.WithdrawEveryDays != 30 || g.MaxWithdraw != 9000 {
			t.Fatalf("grant after edit = %+v, want 30 days / 9000 max", g)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
}

func TestAdvanceCooldown(t *testing.T) {
	_, mem := newEngine(t)
	ctx := context.Background()
	err := mem.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.PutGrant(ctx, domain.OperatorGrant{
			Operator: opAddr, AssetID: labelID,
			AccessExpires: testNow + 3600, WithdrawEveryDays: 7,
		}); err != nil {
			return err
		}
		if err := AdvanceCooldown(ctx, tx, opAddr, labelID, testNow); err != nil {
			return err
		}
		g, err := tx.GetGrant(ctx, opAddr, labelID)
		if err != nil {
			return err
		}
		if want := testNow + 7*86400; g.NextWithdraw != want {
			t.Fatalf("next withdraw = %d, want %d", g.NextWithdraw, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if err := mem.WithinTx(ctx, func(tx store.Tx) error {
		return AdvanceCooldown(ctx, tx, stranger, labelID, testNow)
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("advance without grant: err = %v, want ErrNotFound", err)
	}
}
