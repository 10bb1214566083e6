// Package admin owns the platform fee schedule singleton.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/store"
)

type Engine struct {
	Ledger store.Ledger
	Log    zerolog.Logger
	Clock  func() time.Time
}

func New(ledger store.Ledger, log zerolog.Logger) *Engine {
	return &Engine{Ledger: ledger, Log: log, Clock: time.Now}
}

func (e *Engine) now() uint64 { return uint64(e.Clock().Unix()) }

// Initialize seeds the fee schedule. It may run only once; later calls fail
// and must go through SetFees.
func (e *Engine) Initialize(ctx context.Context, caller domain.Address, fees domain.FeeSchedule) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetFees(ctx); err == nil {
			return fmt.Errorf("%w: fee schedule already initialized", domain.ErrInvalidSettings)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := tx.PutFees(ctx, fees); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventFeesUpdated,
			AssetID: fees.PlatformAssetID,
			Actor:   caller,
			At:      e.now(),
			Payload: feePayload(fees),
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("platform_xft_id", fees.PlatformAssetID).Msg("fee schedule initialized")
	return nil
}

// SetFees replaces the fee rates. The caller must hold a live super-operator
// grant on the platform asset named by the current schedule.
func (e *Engine) SetFees(ctx context.Context, caller domain.Address, mintFeePerYear, nativeBps, tokenBps uint64) error {
	return e.update(ctx, caller, "fees updated", func(f *domain.FeeSchedule) {
		f.MintFeePerYear = mintFeePerYear
		f.MarketFeeNativeBps = nativeBps
		f.MarketFeeTokenBps = tokenBps
	})
}

// SetPayoutAddress repoints where marketplace fees are paid.
func (e *Engine) SetPayoutAddress(ctx context.Context, caller domain.Address, payout domain.Address) error {
	if payout.IsZero() {
		return fmt.Errorf("%w: payout address must be set", domain.ErrInvalidSettings)
	}
	return e.update(ctx, caller, "payout address updated", func(f *domain.FeeSchedule) {
		f.PayoutAddress = payout
	})
}

// SetTokenAuthority repoints the accepted token payment authority.
func (e *Engine) SetTokenAuthority(ctx context.Context, caller domain.Address, authority domain.Address) error {
	return e.update(ctx, caller, "token authority updated", func(f *domain.FeeSchedule) {
		f.TokenAuthority = authority
	})
}

func (e *Engine) update(ctx context.Context, caller domain.Address, msg string, apply func(*domain.FeeSchedule)) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		fees, err := tx.GetFees(ctx)
		if err != nil {
			return err
		}
		g, err := tx.GetGrant(ctx, caller, fees.PlatformAssetID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: no operator grant on platform asset", domain.ErrUnauthorized)
			}
			return err
		}
		if !g.ValidAt(now) || g.Role != domain.RoleSuper {
			return fmt.Errorf("%w: super operator grant required", domain.ErrUnauthorized)
		}
		apply(&fees)
		if err := tx.PutFees(ctx, fees); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventFeesUpdated,
			AssetID: fees.PlatformAssetID,
			Actor:   caller,
			At:      now,
			Payload: feePayload(fees),
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Str("actor", string(caller)).Msg(msg)
	return nil
}

// Get returns the current fee schedule.
func (e *Engine) Get(ctx context.Context) (domain.FeeSchedule, error) {
	var fees domain.FeeSchedule
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		fees, err = tx.GetFees(ctx)
		return err
	})
	return fees, err
}

func feePayload(f domain.FeeSchedule) map[string]any {
	return map[string]any{
		"mint_fee_per_year": f.MintFeePerYear,
		"native_bps":        f.MarketFeeNativeBps,
		"token_bps":         f.MarketFeeTokenBps,
		"payout_address":    f.PayoutAddress,
	}
}
