package store

import (
	"context"
	"fmt"
	"sync"

	"dexsta/pkg/domain"
)

// Memory is the in-process ledger used by unit tests and dev mode. WithinTx
// runs the unit against a deep copy of the state and swaps it in only on
// success, which gives the same all-or-nothing behavior as a database
// transaction.
type Memory struct {
	mu sync.Mutex
	s  memState
}

type memState struct {
	nextAssetID uint64
	assets      map[uint64]domain.Asset
	titles      map[string]uint64
	listings    map[uint64]domain.Listing
	grants      map[grantKey]domain.OperatorGrant
	vaults      map[uint64]domain.Vault
	fees        *domain.FeeSchedule
	balances    map[balanceKey]uint64
	holdings    map[holdingKey]uint64
	events      []domain.Event
	tokens      map[string]domain.Address
}

type grantKey struct {
	operator domain.Address
	assetID  uint64
}

type balanceKey struct {
	kind  domain.PaymentKind
	owner domain.Address
}

type holdingKey struct {
	assetID uint64
	owner   domain.Address
}

func NewMemory() *Memory {
	return &Memory{s: memState{
		nextAssetID: 1,
		assets:      map[uint64]domain.Asset{},
		titles:      map[string]uint64{},
		listings:    map[uint64]domain.Listing{},
		grants:      map[grantKey]domain.OperatorGrant{},
		vaults:      map[uint64]domain.Vault{},
		balances:    map[balanceKey]uint64{},
		holdings:    map[holdingKey]uint64{},
		tokens:      map[string]domain.Address{},
	}}
}

func (m *Memory) WithinTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.s.clone()
	if err := fn(&memTx{s: &next}); err != nil {
		return err
	}
	m.s = next
	return nil
}

func (s memState) clone() memState {
	out := memState{
		nextAssetID: s.nextAssetID,
		assets:      make(map[uint64]domain.Asset, len(s.assets)),
		titles:      make(map[string]uint64, len(s.titles)),
		listings:    make(map[uint64]domain.Listing, len(s.listings)),
		grants:      make(map[grantKey]domain.OperatorGrant, len(s.grants)),
		vaults:      make(map[uint64]domain.Vault, len(s.vaults)),
		balances:    make(map[balanceKey]uint64, len(s.balances)),
		holdings:    make(map[holdingKey]uint64, len(s.holdings)),
		events:      append([]domain.Event(nil), s.events...),
		tokens:      make(map[string]domain.Address, len(s.tokens)),
	}
	for id, a := range s.assets {
		a.Children = append([]uint64(nil), a.Children...)
		out.assets[id] = a
	}
	for k, v := range s.titles {
		out.titles[k] = v
	}
	for k, v := range s.listings {
		out.listings[k] = v
	}
	for k, v := range s.grants {
		out.grants[k] = v
	}
	for k, v := range s.vaults {
		out.vaults[k] = v
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.holdings {
		out.holdings[k] = v
	}
	for k, v := range s.tokens {
		out.tokens[k] = v
	}
	if s.fees != nil {
		f := *s.fees
		out.fees = &f
	}
	return out
}

type memTx struct {
	s *memState
}

func (t *memTx) NextAssetID(context.Context) (uint64, error) {
	id := t.s.nextAssetID
	t.s.nextAssetID++
	return id, nil
}

func (t *memTx) GetAsset(_ context.Context, id uint64) (domain.Asset, error) {
	a, ok := t.s.assets[id]
	if !ok {
		return domain.Asset{}, fmt.Errorf("%w: xft %d", domain.ErrNotFound, id)
	}
	a.Children = append([]uint64(nil), a.Children...)
	return a, nil
}

func (t *memTx) PutAsset(_ context.Context, a domain.Asset) error {
	a.Children = append([]uint64(nil), a.Children...)
	t.s.assets[a.ID] = a
	return nil
}

func (t *memTx) TitleTaken(_ context.Context, normTitle string) (bool, error) {
	_, ok := t.s.titles[normTitle]
	return ok, nil
}

func (t *memTx) ClaimTitle(_ context.Context, normTitle string, assetID uint64) error {
	if _, ok := t.s.titles[normTitle]; ok {
		return fmt.Errorf("%w: %q", domain.ErrTitleAlreadyExists, normTitle)
	}
	t.s.titles[normTitle] = assetID
	return nil
}

func (t *memTx) GetListing(_ context.Context, assetID uint64) (domain.Listing, error) {
	l, ok := t.s.listings[assetID]
	if !ok {
		return domain.Listing{}, fmt.Errorf("%w: listing for xft %d", domain.ErrNotFound, assetID)
	}
	return l, nil
}

func (t *memTx) PutListing(_ context.Context, l domain.Listing) error {
	t.s.listings[l.AssetID] = l
	return nil
}

func (t *memTx) GetGrant(_ context.Context, operator domain.Address, assetID uint64) (domain.OperatorGrant, error) {
	g, ok := t.s.grants[grantKey{operator, assetID}]
	if !ok {
		return domain.OperatorGrant{}, fmt.Errorf("%w: grant for %s on xft %d", domain.ErrNotFound, operator, assetID)
	}
	return g, nil
}

func (t *memTx) PutGrant(_ context.Context, g domain.OperatorGrant) error {
	t.s.grants[grantKey{g.Operator, g.AssetID}] = g
	return nil
}

func (t *memTx) GetVault(_ context.Context, assetID uint64) (domain.Vault, error) {
	v, ok := t.s.vaults[assetID]
	if !ok {
		return domain.Vault{}, fmt.Errorf("%w: vault for xft %d", domain.ErrNotFound, assetID)
	}
	return v, nil
}

func (t *memTx) PutVault(_ context.Context, v domain.Vault) error {
	t.s.vaults[v.AssetID] = v
	return nil
}

func (t *memTx) GetFees(context.Context) (domain.FeeSchedule, error) {
	if t.s.fees == nil {
		return domain.FeeSchedule{}, fmt.Errorf("%w: fee schedule not initialized", domain.ErrNotFound)
	}
	return *t.s.fees, nil
}

func (t *memTx) PutFees(_ context.Context, f domain.FeeSchedule) error {
	t.s.fees = &f
	return nil
}

func (t *memTx) Balance(_ context.Context, kind domain.PaymentKind, owner domain.Address) (uint64, error) {
	return t.s.balances[balanceKey{kind, owner}], nil
}

func (t *memTx) Deposit(_ context.Context, kind domain.PaymentKind, owner domain.Address, amount uint64) error {
	t.s.balances[balanceKey{kind, owner}] += amount
	return nil
}

func (t *memTx) TransferFunds(_ context.Context, kind domain.PaymentKind, from, to domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	fk := balanceKey{kind, from}
	if t.s.balances[fk] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, from, t.s.balances[fk], amount)
	}
	t.s.balances[fk] -= amount
	t.s.balances[balanceKey{kind, to}] += amount
	return nil
}

func (t *memTx) Holding(_ context.Context, assetID uint64, owner domain.Address) (uint64, error) {
	return t.s.holdings[holdingKey{assetID, owner}], nil
}

func (t *memTx) DepositUnits(_ context.Context, assetID uint64, owner domain.Address, quantity uint64) error {
	t.s.holdings[holdingKey{assetID, owner}] += quantity
	return nil
}

func (t *memTx) TransferUnits(_ context.Context, assetID uint64, from, to domain.Address, quantity uint64) error {
	if quantity == 0 {
		return nil
	}
	fk := holdingKey{assetID, from}
	if t.s.holdings[fk] < quantity {
		return fmt.Errorf("%w: %s holds %d of xft %d, needs %d", domain.ErrInsufficientQuantity, from, t.s.holdings[fk], assetID, quantity)
	}
	t.s.holdings[fk] -= quantity
	t.s.holdings[holdingKey{assetID, to}] += quantity
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, e domain.Event) error {
	t.s.events = append(t.s.events, e)
	return nil
}

func (t *memTx) Events(_ context.Context, assetID uint64) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range t.s.events {
		if e.AssetID == assetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) ActorForToken(_ context.Context, tokenHash string) (domain.Address, error) {
	actor, ok := t.s.tokens[tokenHash]
	if !ok {
		return domain.ZeroAddress, fmt.Errorf("%w: unknown token", domain.ErrUnauthorized)
	}
	return actor, nil
}

func (t *memTx) PutToken(_ context.Context, tokenHash string, actor domain.Address) error {
	t.s.tokens[tokenHash] = actor
	return nil
}

var _ Tx = (*memTx)(nil)
var _ Ledger = (*Memory)(nil)
