package store

import (
	"context"
	"errors"
	"testing"

	"dexsta/pkg/domain"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.WithinTx(ctx, func(tx Tx) error {
		if err := tx.Deposit(ctx, domain.PayNative, "alice", 100); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	_ = m.WithinTx(ctx, func(tx Tx) error {
		bal, _ := tx.Balance(ctx, domain.PayNative, "alice")
		if bal != 0 {
			t.Fatalf("deposit should have rolled back, got %d", bal)
		}
		return nil
	})
}

func TestTransferFundsInsufficient(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	err := m.WithinTx(ctx, func(tx Tx) error {
		_ = tx.Deposit(ctx, domain.PayNative, "alice", 50)
		return tx.TransferFunds(ctx, domain.PayNative, "alice", "bob", 60)
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	// Whole unit aborted: alice keeps nothing, not 50.
	_ = m.WithinTx(ctx, func(tx Tx) error {
		bal, _ := tx.Balance(ctx, domain.PayNative, "alice")
		if bal != 0 {
			t.Fatalf("expected 0 after aborted unit, got %d", bal)
		}
		return nil
	})
}

func TestAssetIDsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var first, second uint64
	_ = m.WithinTx(ctx, func(tx Tx) error {
		first, _ = tx.NextAssetID(ctx)
		return nil
	})
	_ = m.WithinTx(ctx, func(tx Tx) error {
		second, _ = tx.NextAssetID(ctx)
		return nil
	})
	if second <= first {
		t.Fatalf("expected strictly increasing ids, got %d then %d", first, second)
	}
}

func TestClaimTitleConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	err := m.WithinTx(ctx, func(tx Tx) error {
		return tx.ClaimTitle(ctx, "MyLabel", 1)
	})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	err = m.WithinTx(ctx, func(tx Tx) error {
		return tx.ClaimTitle(ctx, "MyLabel", 2)
	})
	if !errors.Is(err, domain.ErrTitleAlreadyExists) {
		t.Fatalf("expected title conflict, got %v", err)
	}
}

func TestAssetChildrenIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.WithinTx(ctx, func(tx Tx) error {
		return tx.PutAsset(ctx, domain.Asset{ID: 1, Children: []uint64{2, 3}})
	})
	_ = m.WithinTx(ctx, func(tx Tx) error {
		a, _ := tx.GetAsset(ctx, 1)
		a.Children[0] = 99 // mutate the copy only
		return nil
	})
	_ = m.WithinTx(ctx, func(tx Tx) error {
		a, _ := tx.GetAsset(ctx, 1)
		if a.Children[0] != 2 {
			t.Fatalf("stored asset mutated through returned copy: %v", a.Children)
		}
		return nil
	})
}

func TestEventsFilterByAsset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.WithinTx(ctx, func(tx Tx) error {
		_ = tx.AppendEvent(ctx, domain.Event{ID: "a", Type: domain.EventAssetMinted, AssetID: 1})
		_ = tx.AppendEvent(ctx, domain.Event{ID: "b", Type: domain.EventAssetMinted, AssetID: 2})
		_ = tx.AppendEvent(ctx, domain.Event{ID: "c", Type: domain.EventVaultLocked, AssetID: 1})
		return nil
	})
	_ = m.WithinTx(ctx, func(tx Tx) error {
		evs, _ := tx.Events(ctx, 1)
		if len(evs) != 2 || evs[0].ID != "a" || evs[1].ID != "c" {
			t.Fatalf("unexpected events: %+v", evs)
		}
		return nil
	})
}
