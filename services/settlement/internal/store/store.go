package store

import (
	"context"

	"dexsta/pkg/domain"
)

// Tx is one atomic unit over the ledger: every record read/write, fund move
// and event append inside it commits together or not at all. Engines never
// touch storage outside a Tx.
type Tx interface {
	// NextAssetID draws the next id from the strictly increasing
	// process-wide counter.
	NextAssetID(ctx context.Context) (uint64, error)

	GetAsset(ctx context.Context, id uint64) (domain.Asset, error)
	PutAsset(ctx context.Context, a domain.Asset) error
	TitleTaken(ctx context.Context, normTitle string) (bool, error)
	ClaimTitle(ctx context.Context, normTitle string, assetID uint64) error

	GetListing(ctx context.Context, assetID uint64) (domain.Listing, error)
	PutListing(ctx context.Context, l domain.Listing) error

	GetGrant(ctx context.Context, operator domain.Address, assetID uint64) (domain.OperatorGrant, error)
	PutGrant(ctx context.Context, g domain.OperatorGrant) error

	GetVault(ctx context.Context, assetID uint64) (domain.Vault, error)
	PutVault(ctx context.Context, v domain.Vault) error

	GetFees(ctx context.Context) (domain.FeeSchedule, error)
	PutFees(ctx context.Context, f domain.FeeSchedule) error

	// Fund bookkeeping for native and platform-token value. Transfer fails
	// with ErrInsufficientFunds and aborts the unit.
	Balance(ctx context.Context, kind domain.PaymentKind, owner domain.Address) (uint64, error)
	Deposit(ctx context.Context, kind domain.PaymentKind, owner domain.Address, amount uint64) error
	TransferFunds(ctx context.Context, kind domain.PaymentKind, from, to domain.Address, amount uint64) error

	// Per-asset unit holdings (edition custody, escrow, vault contents).
	Holding(ctx context.Context, assetID uint64, owner domain.Address) (uint64, error)
	DepositUnits(ctx context.Context, assetID uint64, owner domain.Address, quantity uint64) error
	TransferUnits(ctx context.Context, assetID uint64, from, to domain.Address, quantity uint64) error

	AppendEvent(ctx context.Context, e domain.Event) error
	Events(ctx context.Context, assetID uint64) ([]domain.Event, error)

	// Bearer-token identification of callers.
	ActorForToken(ctx context.Context, tokenHash string) (domain.Address, error)
	PutToken(ctx context.Context, tokenHash string, actor domain.Address) error
}

// Ledger runs a function inside one atomic unit.
type Ledger interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
}
