// Package registry owns asset records: minting, wrapping, transfer, the
// label-ownership proof, market-license validation and the parent/child slot
// table.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/permit"
	"dexsta/services/settlement/internal/store"
)

const secondsPerYear = 365 * 86400

// LabelOwner is the registry's ownership proof: false for ownerless types,
// for a principal other than the recorded label owner, and for expired
// registrations.
func LabelOwner(ctx context.Context, tx store.Tx, principal domain.Address, assetID uint64, now uint64) (bool, error) {
	a, err := tx.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if a.Type.Ownerless() {
		return false, nil
	}
	if a.Owner != principal {
		return false, nil
	}
	if a.ExpiresAt <= now {
		return false, nil
	}
	return true, nil
}

// MarketLicense validates a market license asset and resolves its parent
// label. Valid only while both the license and the parent registration are
// unexpired; returns the parent's id, vault identity and fee cut.
func MarketLicense(ctx context.Context, tx store.Tx, licenseID uint64, now uint64) (valid bool, parentID uint64, parentVault domain.Address, parentFeeBps uint64, err error) {
	lic, err := tx.GetAsset(ctx, licenseID)
	if err != nil {
		return false, 0, domain.ZeroAddress, 0, err
	}
	if lic.ExpiresAt <= now {
		return false, 0, domain.ZeroAddress, 0, nil
	}
	if lic.LabelID == 0 {
		return false, 0, domain.ZeroAddress, 0, nil
	}
	parent, err := tx.GetAsset(ctx, lic.LabelID)
	if err != nil {
		return false, 0, domain.ZeroAddress, 0, err
	}
	if parent.ExpiresAt <= now {
		return false, parent.ID, domain.ZeroAddress, 0, nil
	}
	return true, parent.ID, parent.VaultAddress, parent.LicenseFeeBps, nil
}

// AddChild records childID in the parent's first free slot, appending when
// the table is full.
func AddChild(ctx context.Context, tx store.Tx, parentID, childID uint64) error {
	parent, err := tx.GetAsset(ctx, parentID)
	if err != nil {
		return err
	}
	parent.AddChild(childID)
	return tx.PutAsset(ctx, parent)
}

// RemoveChild zeroes the first slot holding childID; ErrParentAccountMismatch
// when the child is not in the table.
func RemoveChild(ctx context.Context, tx store.Tx, parentID, childID uint64) error {
	parent, err := tx.GetAsset(ctx, parentID)
	if err != nil {
		return err
	}
	if err := parent.RemoveChild(childID); err != nil {
		return err
	}
	return tx.PutAsset(ctx, parent)
}

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

type MintRequest struct {
	Title             string           `json:"title"`
	MetadataRef       string           `json:"metadata_ref"`
	Type              domain.AssetType `json:"type"`
	LabelID           uint64           `json:"label_id"`
	RegistrationYears uint64           `json:"registration_years"`
	OperatorLicense   bool             `json:"operator_license"`
	LicenseTerm       uint64           `json:"license_term"`
	Flag              bool             `json:"flag"`
	EditionSize       uint64           `json:"edition_size"`
	ExpiresAt         uint64           `json:"expires_at"`
	LicenseFeeBps     uint64           `json:"license_fee_bps"`
	Transferable      bool             `json:"transferable"`
	WrapTarget        bool             `json:"wrap_target"`
}

// Mint validates the type/edition/label invariants, enforces title
// uniqueness, charges the per-year registration fee (open/wrapped types are
// exempt), allocates the id, seeds the edition into the minter's holding and
// creates the custodial vault for 1-of-1 editions.
func (e *Engine) Mint(ctx context.Context, caller domain.Address, req MintRequest) (uint64, error) {
	var id uint64
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()

		a := domain.Asset{
			Title:             req.Title,
			MetadataRef:       req.MetadataRef,
			Type:              req.Type,
			LabelID:           req.LabelID,
			RegistrationYears: req.RegistrationYears,
			OperatorLicense:   req.OperatorLicense,
			LicenseTerm:       req.LicenseTerm,
			Flag:              req.Flag,
			EditionSize:       req.EditionSize,
			ExpiresAt:         req.ExpiresAt,
			LicenseFeeBps:     req.LicenseFeeBps,
			Transferable:      req.Transferable,
			WrapTarget:        req.WrapTarget,
			Creator:           caller,
			Owner:             caller,
		}
		if a.ExpiresAt == 0 && a.RegistrationYears > 0 {
			a.ExpiresAt = now + a.RegistrationYears*secondsPerYear
		}
		if err := a.ValidateMint(); err != nil {
			return err
		}

		norm := domain.NormalizeTitle(req.Title)
		taken, err := tx.TitleTaken(ctx, norm)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", domain.ErrTitleAlreadyExists, req.Title)
		}

		if req.LabelID != 0 {
			if err := e.Permits.Allow(ctx, tx, caller, req.LabelID, now, permit.ActionAsset); err != nil {
				return err
			}
		}

		if !a.Type.Ownerless() {
			fees, err := tx.GetFees(ctx)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			fee, err := domain.MintFee(fees.MintFeePerYear, req.RegistrationYears)
			if err != nil {
				return err
			}
			if fee > 0 {
				if err := tx.TransferFunds(ctx, domain.PayNative, caller, fees.PayoutAddress, fee); err != nil {
					return err
				}
			}
		}

		id, err = tx.NextAssetID(ctx)
		if err != nil {
			return err
		}
		a.ID = id

		if a.EditionSize == 1 {
			a.VaultAddress = domain.VaultAddress(id)
			if err := tx.PutVault(ctx, domain.Vault{AssetID: id, AssetType: a.Type}); err != nil {
				return err
			}
		}
		if err := tx.DepositUnits(ctx, id, caller, a.EditionSize); err != nil {
			return err
		}
		if req.LabelID != 0 {
			if err := AddChild(ctx, tx, req.LabelID, id); err != nil {
				return err
			}
		}
		if err := tx.ClaimTitle(ctx, norm, id); err != nil {
			return err
		}
		if err := tx.PutAsset(ctx, a); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventAssetMinted,
			AssetID: id,
			Actor:   caller,
			At:      now,
			Payload: map[string]any{
				"title":        req.Title,
				"type":         req.Type,
				"edition_size": req.EditionSize,
				"label_id":     req.LabelID,
			},
		})
	})
	if err != nil {
		return 0, err
	}
	e.Log.Info().Uint64("xft_id", id).Str("actor", string(caller)).Msg("asset minted")
	return id, nil
}

// Wrap burns one unit of a wrap-eligible asset held by the caller and mints
// its 1-of-1 wrapped counterpart, recording the child link on the parent.
func (e *Engine) Wrap(ctx context.Context, caller domain.Address, parentAssetID uint64) (uint64, error) {
	var id uint64
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		parent, err := tx.GetAsset(ctx, parentAssetID)
		if err != nil {
			return err
		}
		if !parent.WrapTarget {
			return fmt.Errorf("%w: xft %d is not a wrap target", domain.ErrInvalidXftType, parentAssetID)
		}
		if parent.Type != domain.TypeChapterLabel && parent.Type != domain.TypeWrapped {
			return fmt.Errorf("%w: xft type %d cannot be wrapped", domain.ErrInvalidXftType, parent.Type)
		}

		// Burn the wrapping input out of the caller's holding.
		if err := tx.TransferUnits(ctx, parentAssetID, caller, domain.BurnAddress, 1); err != nil {
			return err
		}

		id, err = tx.NextAssetID(ctx)
		if err != nil {
			return err
		}
		wrapped := domain.Asset{
			ID:           id,
			Title:        fmt.Sprintf("%s wrapped #%d", parent.Title, id),
			MetadataRef:  parent.MetadataRef,
			Type:         domain.TypeWrapped,
			EditionSize:  1,
			ExpiresAt:    parent.ExpiresAt,
			Transferable: true,
			Creator:      caller,
			Owner:        caller,
			VaultAddress: domain.VaultAddress(id),
		}
		if err := tx.ClaimTitle(ctx, domain.NormalizeTitle(wrapped.Title), id); err != nil {
			return err
		}
		if err := tx.PutVault(ctx, domain.Vault{AssetID: id, AssetType: domain.TypeWrapped}); err != nil {
			return err
		}
		if err := tx.DepositUnits(ctx, id, caller, 1); err != nil {
			return err
		}
		if err := tx.PutAsset(ctx, wrapped); err != nil {
			return err
		}

		parent.WrappedChildID = id
		parent.AddChild(id)
		if err := tx.PutAsset(ctx, parent); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventAssetWrapped,
			AssetID: id,
			Actor:   caller,
			At:      now,
			Payload: map[string]any{"parent_xft_id": parentAssetID},
		})
	})
	if err != nil {
		return 0, err
	}
	e.Log.Info().Uint64("xft_id", id).Uint64("parent", parentAssetID).Msg("asset wrapped")
	return id, nil
}

// Transfer moves one unit of an asset to another principal. Non-transferable
// assets move freely only for the linked label's owner or operator; anyone
// else may only send them to the burn address. Single-unit open assets track
// their holder in the label-owner slot.
func (e *Engine) Transfer(ctx context.Context, caller domain.Address, assetID uint64, to domain.Address) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		a, err := tx.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		if !a.Transferable {
			authorized := false
			if a.LabelID != 0 {
				if err := e.Permits.Allow(ctx, tx, caller, a.LabelID, now, permit.ActionAsset); err == nil {
					authorized = true
				}
			}
			if !authorized && to != domain.BurnAddress {
				return fmt.Errorf("%w: xft %d is not transferable", domain.ErrUnauthorized, assetID)
			}
		}
		if err := tx.TransferUnits(ctx, assetID, caller, to, 1); err != nil {
			return err
		}
		if a.EditionSize == 1 && (a.Type == domain.TypeArt || a.Type == domain.TypeOpen) {
			a.Owner = to
			if err := tx.PutAsset(ctx, a); err != nil {
				return err
			}
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventAssetTransferred,
			AssetID: assetID,
			Actor:   caller,
			At:      now,
			Payload: map[string]any{"to": to},
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", assetID).Str("from", string(caller)).Str("to", string(to)).Msg("asset transferred")
	return nil
}

// Get returns an asset record outside of any mutation path.
func (e *Engine) Get(ctx context.Context, assetID uint64) (domain.Asset, error) {
	var a domain.Asset
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		a, err = tx.GetAsset(ctx, assetID)
		return err
	})
	return a, err
}

// History returns the asset's slice of the append-only journal.
func (e *Engine) History(ctx context.Context, assetID uint64) ([]domain.Event, error) {
	var evs []domain.Event
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		evs, err = tx.Events(ctx, assetID)
		return err
	})
	return evs, err
}
