package domain

type PriceType uint8

const (
	PriceFixed      PriceType = 1
	PriceIncreasing PriceType = 2
	PriceAuction    PriceType = 3
)

func (p PriceType) Valid() bool { return p >= PriceFixed && p <= PriceAuction }

type PaymentKind uint8

const (
	PayNative PaymentKind = 1
	PayToken  PaymentKind = 2
)

func (k PaymentKind) Valid() bool { return k == PayNative || k == PayToken }

// Listing is an escrowed offer to sell a quantity of one asset. It is keyed
// by asset id; sell overwrites any previous listing for the same asset.
type Listing struct {
	Seller  Address `json:"seller"`
	AssetID uint64  `json:"xft_id"`

	LabelID   uint64      `json:"label_id"`
	LicenseID uint64      `json:"license_id"` // market license used to list under the label
	Price     uint64      `json:"price"`
	Quantity  uint64      `json:"quantity"`
	PriceType PriceType   `json:"price_type"`
	Active    bool        `json:"active"`
	CreatedAt uint64      `json:"created_at"`
	Payment   PaymentKind `json:"payment"`

	AuctionEnd          uint64 `json:"auction_end,omitempty"`
	AuctionStartPrice   uint64 `json:"auction_start_price,omitempty"`
	AuctionIncrementBps uint64 `json:"auction_increment_bps,omitempty"`
	AuctionMinPrice     uint64 `json:"auction_min_price,omitempty"`
	AuctionMaxPrice     uint64 `json:"auction_max_price,omitempty"`
	AuctionBuyNowPrice  uint64 `json:"auction_buy_now_price,omitempty"`

	// LabelFeeBps is the parent label's cut, set only for listings created
	// under a market license; paid to LabelVault on every purchase.
	LabelFeeBps uint64 `json:"label_fee_bps"`

	LabelVault     Address `json:"label_vault,omitempty"`
	Operator       Address `json:"operator,omitempty"`
	SellerPayout   Address `json:"seller_payout,omitempty"`
	PlatformPayout Address `json:"platform_payout,omitempty"`
}

// IsActive reports whether the listing can currently be bought from.
func (l Listing) IsActive() bool { return l.Active && l.Quantity > 0 }
