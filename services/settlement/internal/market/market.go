// Package market runs the listing state machine: create, edit and cancel an
// escrowed listing, and settle purchases with the label and platform fee
// tiers.
package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/permit"
	"dexsta/services/settlement/internal/registry"
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

type SellRequest struct {
	AssetID   uint64             `json:"xft_id"`
	LabelID   uint64             `json:"label_id"`
	LicenseID uint64             `json:"license_id"`
	Price     uint64             `json:"price"`
	Quantity  uint64             `json:"quantity"`
	PriceType domain.PriceType   `json:"price_type"`
	Payment   domain.PaymentKind `json:"payment"`

	AuctionEnd          uint64 `json:"auction_end,omitempty"`
	AuctionStartPrice   uint64 `json:"auction_start_price,omitempty"`
	AuctionIncrementBps uint64 `json:"auction_increment_bps,omitempty"`
	AuctionMinPrice     uint64 `json:"auction_min_price,omitempty"`
	AuctionMaxPrice     uint64 `json:"auction_max_price,omitempty"`
	AuctionBuyNowPrice  uint64 `json:"auction_buy_now_price,omitempty"`

	SellerPayout domain.Address `json:"seller_payout"`
}

// Sell escrows the listed quantity and persists the listing (create or
// overwrite by asset id).
//
// Pricing context: a seller listing under a label with a market license must
// hold a valid license whose parent is that label; the listing then carries
// the parent's fee cut paid into the parent's vault on every purchase. A
// seller listing under their own label is screened by the permission
// resolver and pays no label cut.
func (e *Engine) Sell(ctx context.Context, caller domain.Address, req SellRequest) error {
	if req.Quantity == 0 {
		return fmt.Errorf("%w: listing quantity must be positive", domain.ErrInvalidQuantity)
	}
	if req.Price == 0 {
		return fmt.Errorf("%w: listing price must be positive", domain.ErrInvalidPrice)
	}
	if !req.PriceType.Valid() {
		return fmt.Errorf("%w: unknown price type %d", domain.ErrInvalidSettings, req.PriceType)
	}
	if !req.Payment.Valid() {
		return fmt.Errorf("%w: unknown payment kind %d", domain.ErrInvalidSettings, req.Payment)
	}

	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		l := domain.Listing{
			Seller:              caller,
			AssetID:             req.AssetID,
			LabelID:             req.LabelID,
			LicenseID:           req.LicenseID,
			Price:               req.Price,
			Quantity:            req.Quantity,
			PriceType:           req.PriceType,
			Active:              true,
			CreatedAt:           now,
			Payment:             req.Payment,
			AuctionEnd:          req.AuctionEnd,
			AuctionStartPrice:   req.AuctionStartPrice,
			AuctionIncrementBps: req.AuctionIncrementBps,
			AuctionMinPrice:     req.AuctionMinPrice,
			AuctionMaxPrice:     req.AuctionMaxPrice,
			AuctionBuyNowPrice:  req.AuctionBuyNowPrice,
			SellerPayout:        req.SellerPayout,
		}
		if l.SellerPayout.IsZero() {
			l.SellerPayout = caller
		}

		switch {
		case req.LabelID != 0 && req.LicenseID != 0:
			valid, parentID, parentVault, feeBps, err := registry.MarketLicense(ctx, tx, req.LicenseID, now)
			if err != nil {
				return err
			}
			if !valid || parentID != req.LabelID {
				return fmt.Errorf("%w: market license %d is not valid for label %d", domain.ErrUnauthorized, req.LicenseID, req.LabelID)
			}
			l.LabelFeeBps = feeBps
			l.LabelVault = parentVault
		case req.LabelID != 0:
			if err := e.Permits.Allow(ctx, tx, caller, req.LabelID, now, permit.ActionAsset); err != nil {
				return err
			}
		}

		// Escrow the listed quantity into the listing's custody.
		if err := tx.TransferUnits(ctx, req.AssetID, caller, domain.EscrowAddress(req.AssetID), req.Quantity); err != nil {
			return err
		}
		if req.LabelID != 0 {
			if err := registry.AddChild(ctx, tx, req.LabelID, req.AssetID); err != nil {
				return err
			}
		}
		if err := tx.PutListing(ctx, l); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventListingCreated,
			AssetID: req.AssetID,
			Actor:   caller,
			At:      now,
			Payload: map[string]any{
				"price":      req.Price,
				"quantity":   req.Quantity,
				"price_type": req.PriceType,
				"created_at": now,
			},
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", req.AssetID).Str("seller", string(caller)).Uint64("price", req.Price).Msg("listing created")
	return nil
}

// CancelSell deactivates the caller's own listing, unlinks it from the
// parent label and returns the escrowed units to the seller.
func (e *Engine) CancelSell(ctx context.Context, caller domain.Address, assetID uint64) error {
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		l, err := tx.GetListing(ctx, assetID)
		if err != nil {
			return err
		}
		if l.Seller != caller {
			return fmt.Errorf("%w: only the seller may cancel", domain.ErrUnauthorized)
		}
		l.Active = false
		if l.LabelID != 0 {
			if err := registry.RemoveChild(ctx, tx, l.LabelID, assetID); err != nil {
				return err
			}
		}
		if err := tx.TransferUnits(ctx, assetID, domain.EscrowAddress(assetID), l.Seller, l.Quantity); err != nil {
			return err
		}
		if err := tx.PutListing(ctx, l); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventListingCancelled,
			AssetID: assetID,
			Actor:   caller,
			At:      now,
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", assetID).Msg("listing cancelled")
	return nil
}

// EditSell rewrites the price and price-type fields of the caller's listing.
func (e *Engine) EditSell(ctx context.Context, caller domain.Address, assetID, newPrice uint64, newPriceType domain.PriceType) error {
	if newPrice == 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidPrice)
	}
	if !newPriceType.Valid() {
		return fmt.Errorf("%w: unknown price type %d", domain.ErrInvalidSettings, newPriceType)
	}
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		l, err := tx.GetListing(ctx, assetID)
		if err != nil {
			return err
		}
		if l.Seller != caller {
			return fmt.Errorf("%w: only the seller may edit", domain.ErrUnauthorized)
		}
		l.Price = newPrice
		l.PriceType = newPriceType
		if err := tx.PutListing(ctx, l); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventListingEdited,
			AssetID: assetID,
			Actor:   caller,
			At:      now,
			Payload: map[string]any{"new_price": newPrice, "quantity": l.Quantity},
		})
	})
	if err != nil {
		return err
	}
	e.Log.Info().Uint64("xft_id", assetID).Uint64("price", newPrice).Msg("listing edited")
	return nil
}

// Receipt reports how a purchase settled.
type Receipt struct {
	AssetID     uint64         `json:"xft_id"`
	Seller      domain.Address `json:"seller"`
	Quantity    uint64         `json:"quantity"`
	BaseCost    uint64         `json:"base_cost"`
	LabelFee    uint64         `json:"label_fee"`
	PlatformFee uint64         `json:"platform_fee"`
	TotalPaid   uint64         `json:"total_paid"`
}

// Buy settles a purchase. The buyer pays the base cost to the seller plus
// two independent surcharges, each charged at most once: the label cut
// (listings created under a market license) into the label's vault, and the
// platform marketplace fee into the admin payout address. The purchased
// units leave escrow for the buyer, and the listing deactivates when its
// quantity reaches zero.
func (e *Engine) Buy(ctx context.Context, buyer domain.Address, assetID, quantity uint64) (Receipt, error) {
	var rcpt Receipt
	if quantity == 0 {
		return rcpt, fmt.Errorf("%w: purchase quantity must be positive", domain.ErrInvalidQuantity)
	}
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		now := e.now()
		l, err := tx.GetListing(ctx, assetID)
		if err != nil {
			return err
		}
		if !l.IsActive() {
			return fmt.Errorf("%w: listing for xft %d", domain.ErrListingNotActive, assetID)
		}
		if l.Quantity < quantity {
			return fmt.Errorf("%w: %d listed, %d requested", domain.ErrInsufficientQuantity, l.Quantity, quantity)
		}
		fees, err := tx.GetFees(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		base, err := domain.TotalCost(l.Price, quantity)
		if err != nil {
			return err
		}
		total := base

		var labelFee uint64
		if l.LabelFeeBps > 0 && l.LicenseID > 0 {
			labelFee, err = domain.BasisPoints(base, l.LabelFeeBps)
			if err != nil {
				return err
			}
			if total, err = domain.AddCost(total, labelFee); err != nil {
				return err
			}
			if labelFee > 0 && !l.LabelVault.IsZero() {
				if err := tx.TransferFunds(ctx, l.Payment, buyer, l.LabelVault, labelFee); err != nil {
					return err
				}
			}
		}

		platformFee, err := domain.BasisPoints(total, fees.MarketFeeBps(l.Payment))
		if err != nil {
			return err
		}
		if platformFee > 0 {
			if err := tx.TransferFunds(ctx, l.Payment, buyer, fees.PayoutAddress, platformFee); err != nil {
				return err
			}
			if total, err = domain.AddCost(total, platformFee); err != nil {
				return err
			}
			l.PlatformPayout = fees.PayoutAddress
		}

		if err := tx.TransferFunds(ctx, l.Payment, buyer, l.SellerPayout, base); err != nil {
			return err
		}
		if err := tx.TransferUnits(ctx, assetID, domain.EscrowAddress(assetID), buyer, quantity); err != nil {
			return err
		}

		l.Quantity -= quantity
		if l.Quantity == 0 {
			l.Active = false
			if l.LabelID != 0 {
				if err := registry.RemoveChild(ctx, tx, l.LabelID, assetID); err != nil {
					return err
				}
			}
		}
		if err := tx.PutListing(ctx, l); err != nil {
			return err
		}

		rcpt = Receipt{
			AssetID:     assetID,
			Seller:      l.Seller,
			Quantity:    quantity,
			BaseCost:    base,
			LabelFee:    labelFee,
			PlatformFee: platformFee,
			TotalPaid:   total,
		}
		return tx.AppendEvent(ctx, domain.Event{
			ID:      uuid.NewString(),
			Type:    domain.EventPurchaseComplete,
			AssetID: assetID,
			Actor:   buyer,
			At:      now,
			Payload: map[string]any{
				"seller":     l.Seller,
				"quantity":   quantity,
				"total_cost": total,
			},
		})
	})
	if err != nil {
		return Receipt{}, err
	}
	e.Log.Info().
		Uint64("xft_id", assetID).
		Str("buyer", string(buyer)).
		Uint64("quantity", quantity).
		Uint64("total", rcpt.TotalPaid).
		Msg("purchase completed")
	return rcpt, nil
}

// Get returns the listing record.
func (e *Engine) Get(ctx context.Context, assetID uint64) (domain.Listing, error) {
	var l domain.Listing
	err := e.Ledger.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		l, err = tx.GetListing(ctx, assetID)
		return err
	})
	return l, err
}
