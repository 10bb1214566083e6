// Package operator maintains the per-(operator, asset) delegation ledger:
// grants, soft revocation, withdrawal limits and the cooldown the vault
// advances after each successful withdrawal.
package operator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dexsta/pkg/domain"
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

// Grant writes the full delegation record, overwriting any existing grant
// for the same (operator, asset) pair. The caller must be the label owner,
// an existing super operator, or pass the fallback.
func (e *Engine) Grant(ctx context.Context, caller domain.Address, g domain.OperatorGrant) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		if err := e.Permits.Allow(ctx, tx, caller, g.AssetID, now, permit.ActionManageOperators); err != nil {
			return err
		}
		if err := tx.PutGrant(ctx, g); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventOperatorAdded,
			AssetID: g.AssetID,
			Actor:   caller,
			At:      now,
			Payload: map[string]any{
				"operator": g.Operator,
				"role":     g.Role,
				"expires":  g.AccessExpires,
			},
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", g.AssetID).Str("operator", string(g.Operator)).Msg("operator added")
	return nil
}

// Revoke soft-deletes a grant: license, expiry and role are zeroed while the
// record itself (including next-withdraw and the limit fields) is retained.
func (e *Engine) Revoke(ctx context.Context, caller domain.Address, opAddr domain.Address, assetID uint64) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		if err := e.Permits.Allow(ctx, tx, caller, assetID, now, permit.ActionManageOperators); err != nil {
			return err
		}
		g, err := tx.GetGrant(ctx, opAddr, assetID)
		if err != nil {
			return err
		}
		g.License = 0
		g.AccessExpires = 0
		g.Role = domain.RoleNormal
		if err := tx.PutGrant(ctx, g); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventOperatorRemoved,
			AssetID: assetID,
			Actor:   caller,
			At:      now,
			Payload: map[string]any{"operator": opAddr},
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", assetID).Str("operator", string(opAddr)).Msg("operator removed")
	return nil
}

// EditWithdrawLimits updates the two cooldown-control fields of an existing
// grant under the same authorization as Grant.
func (e *Engine) EditWithdrawLimits(ctx context.Context, caller domain.Address, opAddr domain.Address, assetID uint64, frequencyDays, maxAmount uint64) error {
	return e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		if err := e.Permits.Allow(ctx, tx, caller, assetID, now, permit.ActionManageOperators); err != nil {
			return err
		}
		g, err := tx.GetGrant(ctx, opAddr, assetID)
		if err != nil {
			return err
		}
		g.WithdrawEveryDays = frequencyDays
		g.MaxWithdraw = maxAmount
		return tx.PutGrant(ctx, g)
	})
}

// GrantStatus is the isGranted read: valid only while unexpired.
type GrantStatus struct {
	Granted      bool             `json:"granted"`
	License      uint64           `json:"license"`
	Role         domain.GrantRole `json:"role"`
	NextWithdraw uint64           `json:"next_withdraw"`
	MaxWithdraw  uint64           `json:"max_withdraw"`
}

// IsGranted reports the grant state for (operator, asset) at the current
// time; an expired or missing grant reads as not granted.
func (e *Engine) IsGranted(ctx context.Context, opAddr domain.Address, assetID uint64) (GrantStatus, error) {
	var st GrantStatus
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		g, err := tx.GetGrant(ctx, opAddr, assetID)
		if err != nil {
			return nil // absent reads as not granted
		}
		if !g.ValidAt(e.now()) {
			return nil
		}
		st = GrantStatus{
			Granted:      true,
			License:      g.License,
			Role:         g.Role,
			NextWithdraw: g.NextWithdraw,
			MaxWithdraw:  g.MaxWithdraw,
		}
		return nil
	})
	return st, err
}

// AdvanceCooldown pushes the operator's next-allowed-withdrawal to
// now + frequency. It runs inside the vault's own atomic unit and is not
// exposed as an external operation: only the vault custody path calls it.
func AdvanceCooldown(ctx context.Context, tx store.Tx, opAddr domain.Address, assetID uint64, now uint64) error {
	g, err := tx.GetGrant(ctx, opAddr, assetID)
	if err != nil {
		return fmt.Errorf("advance cooldown: %w", err)
	}
	g.NextWithdraw = now + g.WithdrawEveryDays*86400
	return tx.PutGrant(ctx, g)
}
