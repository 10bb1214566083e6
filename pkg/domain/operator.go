package domain

type GrantRole uint8

const (
	RoleNormal GrantRole = 0
	// RoleSuper may grant and revoke other operators for the same asset.
	RoleSuper GrantRole = 1
)

// OperatorGrant is a time-bounded delegation of rights over one asset to a
// third-party identity, keyed by (operator, asset id).
type OperatorGrant struct {
	Operator Address `json:"operator"`
	AssetID  uint64  `json:"xft_id"`

	License       uint64    `json:"license"`
	AccessExpires uint64    `json:"access_expires"` // unix seconds; expired == absent
	Role          GrantRole `json:"role"`

	// Withdrawal controls. Revocation deliberately leaves these in place.
	NextWithdraw      uint64 `json:"next_withdraw"`
	MaxWithdraw       uint64 `json:"max_withdraw"`
	WithdrawEveryDays uint64 `json:"withdraw_every_days"`
}

// ValidAt reports whether the grant is live: an expired grant is treated
// identically to having none at all.
func (g OperatorGrant) ValidAt(now uint64) bool { return g.AccessExpires > now }

// Vault is the custodial record bound to a 1-of-1 asset at mint time.
// Withdrawals require the unlock time to have passed; the check is evaluated
// fresh on every call.
type Vault struct {
	AssetID   uint64    `json:"xft_id"`
	AssetType AssetType `json:"asset_type"` // copied at creation; exempts open/wrapped types
	UnlockAt  uint64    `json:"unlock_at"`
}

// LockedAt reports whether withdrawals are blocked at the given time.
func (v Vault) LockedAt(now uint64) bool { return now < v.UnlockAt }

// FeeSchedule is the admin singleton: the global fee rates and payout
// identities, mutable only through the super-operator gate on the platform
// asset.
type FeeSchedule struct {
	PlatformAssetID    uint64  `json:"platform_xft_id"`
	PayoutAddress      Address `json:"payout_address"`
	MintFeePerYear     uint64  `json:"mint_fee_per_year"`
	MarketFeeNativeBps uint64  `json:"marketplace_fee_native_bps"`
	MarketFeeTokenBps  uint64  `json:"marketplace_fee_token_bps"`
	TokenAuthority     Address `json:"token_authority"`
}

// MarketFeeBps selects the marketplace rate for a payment kind.
func (f FeeSchedule) MarketFeeBps(kind PaymentKind) uint64 {
	if kind == PayToken {
		return f.MarketFeeTokenBps
	}
	return f.MarketFeeNativeBps
}
