package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dexsta/pkg/domain"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the hosted ledger. Each WithinTx call maps to one database
// transaction; serializable row access on the touched records gives the
// exclusive read-modify-write the listing quantity path needs.
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{Pool: pool} }

// EnsureSchema applies the idempotent DDL on boot.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, schemaSQL)
	return err
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) NextAssetID(ctx context.Context) (uint64, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('xft_id_seq')`).Scan(&id); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (t *pgTx) GetAsset(ctx context.Context, id uint64) (domain.Asset, error) {
	var a domain.Asset
	var typ int16
	var children []int64
	err := t.tx.QueryRow(ctx, `
SELECT xft_id,title,metadata_ref,type,label_id,registration_years,operator_license,
       license_term,flag,edition_size,expires_at,license_fee_bps,transferable,
       wrap_target,wrapped_child_id,children,creator,owner_addr,vault_addr
FROM assets WHERE xft_id=$1 FOR UPDATE`, int64(id)).Scan(
		&a.ID, &a.Title, &a.MetadataRef, &typ, &a.LabelID, &a.RegistrationYears,
		&a.OperatorLicense, &a.LicenseTerm, &a.Flag, &a.EditionSize, &a.ExpiresAt,
		&a.LicenseFeeBps, &a.Transferable, &a.WrapTarget, &a.WrappedChildID,
		&children, &a.Creator, &a.Owner, &a.VaultAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Asset{}, fmt.Errorf("%w: xft %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Asset{}, err
	}
	a.Type = domain.AssetType(typ)
	a.Children = make([]uint64, len(children))
	for i, c := range children {
		a.Children[i] = uint64(c)
	}
	return a, nil
}

func (t *pgTx) PutAsset(ctx context.Context, a domain.Asset) error {
	children := make([]int64, len(a.Children))
	for i, c := range a.Children {
		children[i] = int64(c)
	}
	_, err := t.tx.Exec(ctx, `
INSERT INTO assets (xft_id,title,metadata_ref,type,label_id,registration_years,
  operator_license,license_term,flag,edition_size,expires_at,license_fee_bps,
  transferable,wrap_target,wrapped_child_id,children,creator,owner_addr,vault_addr)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (xft_id) DO UPDATE SET
  title=EXCLUDED.title, metadata_ref=EXCLUDED.metadata_ref, type=EXCLUDED.type,
  label_id=EXCLUDED.label_id, registration_years=EXCLUDED.registration_years,
  operator_license=EXCLUDED.operator_license, license_term=EXCLUDED.license_term,
  flag=EXCLUDED.flag, edition_size=EXCLUDED.edition_size,
  expires_at=EXCLUDED.expires_at, license_fee_bps=EXCLUDED.license_fee_bps,
  transferable=EXCLUDED.transferable, wrap_target=EXCLUDED.wrap_target,
  wrapped_child_id=EXCLUDED.wrapped_child_id, children=EXCLUDED.children,
  creator=EXCLUDED.creator, owner_addr=EXCLUDED.owner_addr,
  vault_addr=EXCLUDED.vault_addr`,
		int64(a.ID), a.Title, a.MetadataRef, int16(a.Type), int64(a.LabelID),
		int64(a.RegistrationYears), a.OperatorLicense, int64(a.LicenseTerm),
		a.Flag, int64(a.EditionSize), int64(a.ExpiresAt), int64(a.LicenseFeeBps),
		a.Transferable, a.WrapTarget, int64(a.WrappedChildID), children,
		string(a.Creator), string(a.Owner), string(a.VaultAddress))
	return err
}

func (t *pgTx) TitleTaken(ctx context.Context, normTitle string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM titles WHERE norm_title=$1)`, normTitle).Scan(&exists)
	return exists, err
}

func (t *pgTx) ClaimTitle(ctx context.Context, normTitle string, assetID uint64) error {
	ct, err := t.tx.Exec(ctx, `
INSERT INTO titles (norm_title, xft_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
		normTitle, int64(assetID))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", domain.ErrTitleAlreadyExists, normTitle)
	}
	return nil
}

func (t *pgTx) GetListing(ctx context.Context, assetID uint64) (domain.Listing, error) {
	var l domain.Listing
	var priceType, payment int16
	err := t.tx.QueryRow(ctx, `
SELECT xft_id,seller,label_id,license_id,price,quantity,price_type,active,created_at,
       payment,auction_end,auction_start_price,auction_increment_bps,auction_min_price,
       auction_max_price,auction_buy_now_price,label_fee_bps,label_vault,operator_addr,
       seller_payout,platform_payout
FROM listings WHERE xft_id=$1 FOR UPDATE`, int64(assetID)).Scan(
		&l.AssetID, &l.Seller, &l.LabelID, &l.LicenseID, &l.Price, &l.Quantity,
		&priceType, &l.Active, &l.CreatedAt, &payment, &l.AuctionEnd,
		&l.AuctionStartPrice, &l.AuctionIncrementBps, &l.AuctionMinPrice,
		&l.AuctionMaxPrice, &l.AuctionBuyNowPrice, &l.LabelFeeBps, &l.LabelVault,
		&l.Operator, &l.SellerPayout, &l.PlatformPayout)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, fmt.Errorf("%w: listing for xft %d", domain.ErrNotFound, assetID)
	}
	if err != nil {
		return domain.Listing{}, err
	}
	l.PriceType = domain.PriceType(priceType)
	l.Payment = domain.PaymentKind(payment)
	return l, nil
}

func (t *pgTx) PutListing(ctx context.Context, l domain.Listing) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO listings (xft_id,seller,label_id,license_id,price,quantity,price_type,
  active,created_at,payment,auction_end,auction_start_price,auction_increment_bps,
  auction_min_price,auction_max_price,auction_buy_now_price,label_fee_bps,
  label_vault,operator_addr,seller_payout,platform_payout)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
ON CONFLICT (xft_id) DO UPDATE SET
  seller=EXCLUDED.seller, label_id=EXCLUDED.label_id, license_id=EXCLUDED.license_id,
  price=EXCLUDED.price, quantity=EXCLUDED.quantity, price_type=EXCLUDED.price_type,
  active=EXCLUDED.active, created_at=EXCLUDED.created_at, payment=EXCLUDED.payment,
  auction_end=EXCLUDED.auction_end, auction_start_price=EXCLUDED.auction_start_price,
  auction_increment_bps=EXCLUDED.auction_increment_bps,
  auction_min_price=EXCLUDED.auction_min_price,
  auction_max_price=EXCLUDED.auction_max_price,
  auction_buy_now_price=EXCLUDED.auction_buy_now_price,
  label_fee_bps=EXCLUDED.label_fee_bps, label_vault=EXCLUDED.label_vault,
  operator_addr=EXCLUDED.operator_addr, seller_payout=EXCLUDED.seller_payout,
  platform_payout=EXCLUDED.platform_payout`,
		int64(l.AssetID), string(l.Seller), int64(l.LabelID), int64(l.LicenseID),
		int64(l.Price), int64(l.Quantity), int16(l.PriceType), l.Active,
		int64(l.CreatedAt), int16(l.Payment), int64(l.AuctionEnd),
		int64(l.AuctionStartPrice), int64(l.AuctionIncrementBps),
		int64(l.AuctionMinPrice), int64(l.AuctionMaxPrice),
		int64(l.AuctionBuyNowPrice), int64(l.LabelFeeBps), string(l.LabelVault),
		string(l.Operator), string(l.SellerPayout), string(l.PlatformPayout))
	return err
}

func (t *pgTx) GetGrant(ctx context.Context, operator domain.Address, assetID uint64) (domain.OperatorGrant, error) {
	var g domain.OperatorGrant
	var role int16
	err := t.tx.QueryRow(ctx, `
SELECT operator,xft_id,license,access_expires,role,next_withdraw,max_withdraw,withdraw_every_days
FROM operator_grants WHERE operator=$1 AND xft_id=$2 FOR UPDATE`,
		string(operator), int64(assetID)).Scan(
		&g.Operator, &g.AssetID, &g.License, &g.AccessExpires, &role,
		&g.NextWithdraw, &g.MaxWithdraw, &g.WithdrawEveryDays)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OperatorGrant{}, fmt.Errorf("%w: grant for %s on xft %d", domain.ErrNotFound, operator, assetID)
	}
	if err != nil {
		return domain.OperatorGrant{}, err
	}
	g.Role = domain.GrantRole(role)
	return g, nil
}

func (t *pgTx) PutGrant(ctx context.Context, g domain.OperatorGrant) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO operator_grants (operator,xft_id,license,access_expires,role,
  next_withdraw,max_withdraw,withdraw_every_days)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (operator,xft_id) DO UPDATE SET
  license=EXCLUDED.license, access_expires=EXCLUDED.access_expires,
  role=EXCLUDED.role, next_withdraw=EXCLUDED.next_withdraw,
  max_withdraw=EXCLUDED.max_withdraw,
  withdraw_every_days=EXCLUDED.withdraw_every_days`,
		string(g.Operator), int64(g.AssetID), int64(g.License),
		int64(g.AccessExpires), int16(g.Role), int64(g.NextWithdraw),
		int64(g.MaxWithdraw), int64(g.WithdrawEveryDays))
	return err
}

func (t *pgTx) GetVault(ctx context.Context, assetID uint64) (domain.Vault, error) {
	var v domain.Vault
	var typ int16
	err := t.tx.QueryRow(ctx, `
SELECT xft_id,asset_type,unlock_at FROM vaults WHERE xft_id=$1 FOR UPDATE`,
		int64(assetID)).Scan(&v.AssetID, &typ, &v.UnlockAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Vault{}, fmt.Errorf("%w: vault for xft %d", domain.ErrNotFound, assetID)
	}
	if err != nil {
		return domain.Vault{}, err
	}
	v.AssetType = domain.AssetType(typ)
	return v, nil
}

func (t *pgTx) PutVault(ctx context.Context, v domain.Vault) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO vaults (xft_id,asset_type,unlock_at) VALUES ($1,$2,$3)
ON CONFLICT (xft_id) DO UPDATE SET asset_type=EXCLUDED.asset_type, unlock_at=EXCLUDED.unlock_at`,
		int64(v.AssetID), int16(v.AssetType), int64(v.UnlockAt))
	return err
}

func (t *pgTx) GetFees(ctx context.Context) (domain.FeeSchedule, error) {
	var f domain.FeeSchedule
	err := t.tx.QueryRow(ctx, `
SELECT platform_xft_id,payout_addr,mint_fee_year,market_fee_native_bps,
       market_fee_token_bps,token_authority
FROM fee_schedule WHERE singleton`).Scan(
		&f.PlatformAssetID, &f.PayoutAddress, &f.MintFeePerYear,
		&f.MarketFeeNativeBps, &f.MarketFeeTokenBps, &f.TokenAuthority)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FeeSchedule{}, fmt.Errorf("%w: fee schedule not initialized", domain.ErrNotFound)
	}
	return f, err
}

func (t *pgTx) PutFees(ctx context.Context, f domain.FeeSchedule) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO fee_schedule (singleton,platform_xft_id,payout_addr,mint_fee_year,
  market_fee_native_bps,market_fee_token_bps,token_authority)
VALUES (TRUE,$1,$2,$3,$4,$5,$6)
ON CONFLICT (singleton) DO UPDATE SET
  platform_xft_id=EXCLUDED.platform_xft_id, payout_addr=EXCLUDED.payout_addr,
  mint_fee_year=EXCLUDED.mint_fee_year,
  market_fee_native_bps=EXCLUDED.market_fee_native_bps,
  market_fee_token_bps=EXCLUDED.market_fee_token_bps,
  token_authority=EXCLUDED.token_authority`,
		int64(f.PlatformAssetID), string(f.PayoutAddress), int64(f.MintFeePerYear),
		int64(f.MarketFeeNativeBps), int64(f.MarketFeeTokenBps), string(f.TokenAuthority))
	return err
}

func (t *pgTx) Balance(ctx context.Context, kind domain.PaymentKind, owner domain.Address) (uint64, error) {
	var amount int64
	err := t.tx.QueryRow(ctx, `
SELECT amount FROM balances WHERE kind=$1 AND owner=$2`, int16(kind), string(owner)).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return uint64(amount), err
}

func (t *pgTx) Deposit(ctx context.Context, kind domain.PaymentKind, owner domain.Address, amount uint64) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO balances (kind,owner,amount) VALUES ($1,$2,$3)
ON CONFLICT (kind,owner) DO UPDATE SET amount=balances.amount+EXCLUDED.amount`,
		int16(kind), string(owner), int64(amount))
	return err
}

func (t *pgTx) TransferFunds(ctx context.Context, kind domain.PaymentKind, from, to domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	ct, err := t.tx.Exec(ctx, `
UPDATE balances SET amount=amount-$3 WHERE kind=$1 AND owner=$2 AND amount>=$3`,
		int16(kind), string(from), int64(amount))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s short of %d", domain.ErrInsufficientFunds, from, amount)
	}
	return t.Deposit(ctx, kind, to, amount)
}

func (t *pgTx) Holding(ctx context.Context, assetID uint64, owner domain.Address) (uint64, error) {
	var qty int64
	err := t.tx.QueryRow(ctx, `
SELECT quantity FROM holdings WHERE xft_id=$1 AND owner=$2`, int64(assetID), string(owner)).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return uint64(qty), err
}

func (t *pgTx) DepositUnits(ctx context.Context, assetID uint64, owner domain.Address, quantity uint64) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO holdings (xft_id,owner,quantity) VALUES ($1,$2,$3)
ON CONFLICT (xft_id,owner) DO UPDATE SET quantity=holdings.quantity+EXCLUDED.quantity`,
		int64(assetID), string(owner), int64(quantity))
	return err
}

func (t *pgTx) TransferUnits(ctx context.Context, assetID uint64, from, to domain.Address, quantity uint64) error {
	if quantity == 0 {
		return nil
	}
	ct, err := t.tx.Exec(ctx, `
UPDATE holdings SET quantity=quantity-$3 WHERE xft_id=$1 AND owner=$2 AND quantity>=$3`,
		int64(assetID), string(from), int64(quantity))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s short of %d units of xft %d", domain.ErrInsufficientQuantity, from, quantity, assetID)
	}
	return t.DepositUnits(ctx, assetID, to, quantity)
}

func (t *pgTx) AppendEvent(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
INSERT INTO events (event_id,type,xft_id,actor,at,payload) VALUES ($1,$2,$3,$4,$5,$6::jsonb)`,
		e.ID, string(e.Type), int64(e.AssetID), string(e.Actor), int64(e.At), string(payload))
	return err
}

func (t *pgTx) Events(ctx context.Context, assetID uint64) ([]domain.Event, error) {
	rows, err := t.tx.Query(ctx, `
SELECT event_id,type,xft_id,actor,at,payload FROM events WHERE xft_id=$1 ORDER BY seq ASC`,
		int64(assetID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var typ string
		var payload []byte
		if err := rows.Scan(&e.ID, &typ, &e.AssetID, &e.Actor, &e.At, &payload); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		_ = json.Unmarshal(payload, &e.Payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *pgTx) ActorForToken(ctx context.Context, tokenHash string) (domain.Address, error) {
	var actor string
	err := t.tx.QueryRow(ctx, `SELECT actor FROM api_tokens WHERE token_hash=$1`, tokenHash).Scan(&actor)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ZeroAddress, fmt.Errorf("%w: unknown token", domain.ErrUnauthorized)
	}
	return domain.Address(actor), err
}

func (t *pgTx) PutToken(ctx context.Context, tokenHash string, actor domain.Address) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO api_tokens (token_hash,actor) VALUES ($1,$2) ON CONFLICT (token_hash) DO NOTHING`,
		tokenHash, string(actor))
	return err
}

var _ Tx = (*pgTx)(nil)
var _ Ledger = (*Postgres)(nil)
