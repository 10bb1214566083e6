// Package vault gates custodial withdrawals behind the vault's unlock time,
// the permission resolver and the operator cooldown/limit fields.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/operator"
	"dexsta/services/settlement/internal/permit"
	"dexsta/services/settlement/internal/store"
)

type Engine struct {
	Ledger  store.Ledger
	Permits *permit.Resolver
	Log     zerolog.Logger
	Clock   func() time.Time
}

func New(ledger store.Ledger, permits *permit.Resolver, log zerolog.Logger) *Engine {
	return &Engine{Ledger: ledger, Permits: permits, Log: log, Clock: time.Now}
}

func (e *Engine) now() uint64 { return uint64(e.Clock().Unix()) }

// Create provisions the custodial record for an asset minted without one.
// 1-of-1 mints get their vault at mint time; this covers editions whose
// custody is attached later. Requires label ownership except for ownerless
// asset types. Creating an existing vault is a no-op.
func (e *Engine) Create(ctx context.Context, caller domain.Address, assetID uint64) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		a, err := tx.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		if _, err := tx.GetVault(ctx, assetID); err == nil {
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if !a.Type.Ownerless() {
			owner, err := e.Permits.Owner(ctx, tx, caller, assetID, now)
			if err != nil {
				return err
			}
			if !owner {
				return fmt.Errorf("%w: only the label owner may create a vault for xft %d", domain.ErrUnauthorized, assetID)
			}
		}
		if err := tx.PutVault(ctx, domain.Vault{AssetID: assetID, AssetType: a.Type}); err != nil {
			return err
		}
		a.VaultAddress = domain.VaultAddress(assetID)
		if err := tx.PutAsset(ctx, a); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventVaultCreated,
			AssetID: assetID,
			Actor:   caller,
			At:      now,
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", assetID).Msg("vault created")
	return nil
}

// Lock sets the vault's unlock time. Requires label ownership except for
// ownerless asset types. The unlock time is taken as supplied; it is not
// forced to increase.
func (e *Engine) Lock(ctx context.Context, caller domain.Address, assetID uint64, unlockAt uint64) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		v, err := tx.GetVault(ctx, assetID)
		if err != nil {
			return err
		}
		if !v.AssetType.Ownerless() {
			owner, err := e.Permits.Owner(ctx, tx, caller, assetID, now)
			if err != nil {
				return err
			}
			if !owner {
				return fmt.Errorf("%w: only the label owner may lock xft %d", domain.ErrUnauthorized, assetID)
			}
		}
		v.UnlockAt = unlockAt
		if err := tx.PutVault(ctx, v); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventVaultLocked,
			AssetID: assetID,
			Actor:   caller,
			At:      now,
			Payload: map[string]any{"unlock_at": unlockAt},
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", assetID).Uint64("unlock_at", unlockAt).Msg("vault locked")
	return nil
}

// WithdrawNative pays out native funds from the vault's custody address.
func (e *Engine) WithdrawNative(ctx context.Context, caller domain.Address, assetID uint64, amount uint64) error {
	return e.withdraw(ctx, caller, assetID, amount, true, func(tx store.Tx) error {
		return tx.TransferFunds(ctx, domain.PayNative, domain.VaultAddress(assetID), caller, amount)
	}, map[string]any{"kind": "native", "amount": amount})
}

// WithdrawToken pays out platform-token funds. The per-operator max amount
// applies to native withdrawals only; unlock, grant and cooldown gating are
// identical.
func (e *Engine) WithdrawToken(ctx context.Context, caller domain.Address, assetID uint64, amount uint64) error {
	return e.withdraw(ctx, caller, assetID, amount, false, func(tx store.Tx) error {
		return tx.TransferFunds(ctx, domain.PayToken, domain.VaultAddress(assetID), caller, amount)
	}, map[string]any{"kind": "token", "amount": amount})
}

// WithdrawAsset releases units of another asset held in this vault's custody.
func (e *Engine) WithdrawAsset(ctx context.Context, caller domain.Address, assetID, heldAssetID, quantity uint64) error {
	return e.withdraw(ctx, caller, assetID, 0, false, func(tx store.Tx) error {
		return tx.TransferUnits(ctx, heldAssetID, domain.VaultAddress(assetID), caller, quantity)
	}, map[string]any{"kind": "asset", "held_xft_id": heldAssetID, "quantity": quantity})
}

func (e *Engine) withdraw(ctx context.Context, caller domain.Address, assetID, amount uint64, enforceMax bool, move func(store.Tx) error, payload map[string]any) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		v, err := tx.GetVault(ctx, assetID)
		if err != nil {
			return err
		}
		if v.LockedAt(now) {
			return fmt.Errorf("%w: vault unlocks at %d", domain.ErrWithdrawTooSoon, v.UnlockAt)
		}

		advanceCooldown := true
		if !v.AssetType.Ownerless() {
			owner, err := e.Permits.Owner(ctx, tx, caller, assetID, now)
			if err != nil {
				return err
			}
			if owner {
				advanceCooldown = false
			} else {
				g, err := tx.GetGrant(ctx, caller, assetID)
				if err != nil || !g.ValidAt(now) {
					return fmt.Errorf("%w: %s may not withdraw from xft %d", domain.ErrUnauthorized, caller, assetID)
				}
				if g.NextWithdraw >= now {
					return fmt.Errorf("%w: next withdrawal at %d", domain.ErrWithdrawTooSoon, g.NextWithdraw)
				}
				if enforceMax && g.MaxWithdraw < amount {
					return fmt.Errorf("%w: limit %d, requested %d", domain.ErrWithdrawTooMuch, g.MaxWithdraw, amount)
				}
			}
		}

		if err := move(tx); err != nil {
			return err
		}

		if advanceCooldown {
			// Open/wrapped vaults advance the cooldown best-effort; a
			// caller without any grant record has nothing to advance.
			if err := operator.AdvanceCooldown(ctx, tx, caller, assetID, now); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		payload["caller"] = caller
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventVaultWithdrawn,
			AssetID: assetID,
			Actor:   caller,
			At:      now,
			Payload: payload,
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", assetID).Str("actor", string(caller)).Msg("vault withdrawal")
	return nil
}

// Get returns the vault record.
func (e *Engine) Get(ctx context.Context, assetID uint64) (domain.Vault, error) {
	var v domain.Vault
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		v, err = tx.GetVault(ctx, assetID)
		return err
	})
	return v, err
}
