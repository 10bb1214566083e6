package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Address identifies a principal (wallet, vault, escrow or payout target).
// The zero value is the null address used for burn targets and unset slots.
type Address string

const ZeroAddress Address = ""

// BurnAddress is the designated sink for restricted transfers of
// non-transferable assets.
const BurnAddress Address = "burn"

func (a Address) IsZero() bool { return a == ZeroAddress }

// VaultAddress is the custody identity holding funds and units on behalf of
// an asset's vault.
func VaultAddress(assetID uint64) Address {
	return Address(fmt.Sprintf("vault:xft:%d", assetID))
}

// EscrowAddress is the custody identity holding units escrowed by a listing.
func EscrowAddress(assetID uint64) Address {
	return Address(fmt.Sprintf("escrow:xft:%d", assetID))
}

type AssetType uint8

const (
	TypeLeadLabel     AssetType = 1
	TypeProfileLabel  AssetType = 2
	TypeTagLabel      AssetType = 3
	TypeChapterLabel  AssetType = 4
	TypeOperatorLic   AssetType = 5
	TypeMarketLic     AssetType = 6
	TypeArt           AssetType = 7
	TypeWrapped       AssetType = 8
	TypeOpen          AssetType = 9
)

func (t AssetType) Valid() bool { return t >= TypeLeadLabel && t <= TypeOpen }

// Ownerless reports whether the type has no label-owner concept: open/art and
// wrapped assets skip every ownership check.
func (t AssetType) Ownerless() bool { return t == TypeArt || t == TypeWrapped }

// OneOfOne reports whether the type must be minted with edition size 1.
func (t AssetType) OneOfOne() bool {
	return t == TypeLeadLabel || t == TypeProfileLabel || t == TypeWrapped
}

// LimitedEdition reports whether the type must be minted with edition size > 1.
func (t AssetType) LimitedEdition() bool {
	switch t {
	case TypeTagLabel, TypeChapterLabel, TypeOperatorLic, TypeMarketLic:
		return true
	}
	return false
}

// NeedsLabelLink reports whether the type must be minted under a parent label.
func (t AssetType) NeedsLabelLink() bool {
	switch t {
	case TypeLeadLabel, TypeArt, TypeWrapped:
		return false
	}
	return true
}

// Asset is an XFT record. Fields carry the semantics the on-chain programs
// packed into positional settings/address vectors.
type Asset struct {
	ID          uint64    `json:"xft_id"`
	Title       string    `json:"title"`
	MetadataRef string    `json:"metadata_ref"`
	Type        AssetType `json:"type"`

	LabelID           uint64 `json:"label_id"`           // parent label link, 0 for none
	RegistrationYears uint64 `json:"registration_years"` // registration term paid at mint
	OperatorLicense   bool   `json:"operator_license"`
	LicenseTerm       uint64 `json:"license_term"`
	Flag              bool   `json:"flag"`
	EditionSize       uint64 `json:"edition_size"`
	ExpiresAt         uint64 `json:"expires_at"` // registration/license expiry, unix seconds
	LicenseFeeBps     uint64 `json:"license_fee_bps"`
	Transferable      bool   `json:"transferable"`
	WrapTarget        bool   `json:"wrap_target"`
	WrappedChildID    uint64 `json:"wrapped_child_id"`

	// Children is the label's child-slot table. Allocation is first empty
	// slot or append; removal zeroes the first match. Holes stay in place.
	Children []uint64 `json:"children,omitempty"`

	Creator      Address `json:"creator"`
	Owner        Address `json:"owner"` // label/vault owner
	VaultAddress Address `json:"vault_address,omitempty"`
}

// AddChild writes id into the first free slot of the child table, appending a
// new slot if none is free. Duplicate ids are not rejected here.
func (a *Asset) AddChild(id uint64) {
	for i, slot := range a.Children {
		if slot == 0 {
			a.Children[i] = id
			return
		}
	}
	a.Children = append(a.Children, id)
}

// RemoveChild zeroes the first slot holding id. The slot itself is retained.
func (a *Asset) RemoveChild(id uint64) error {
	for i, slot := range a.Children {
		if slot == id && id != 0 {
			a.Children[i] = 0
			return nil
		}
	}
	return fmt.Errorf("%w: xft %d not a child of xft %d", ErrParentAccountMismatch, id, a.ID)
}

// ChildIDs returns the live (non-zero) entries of the child table.
func (a *Asset) ChildIDs() []uint64 {
	var out []uint64
	for _, slot := range a.Children {
		if slot != 0 {
			out = append(out, slot)
		}
	}
	return out
}

// ValidateMint enforces the type/edition/label invariants checked at mint
// time. The title must be non-empty; uniqueness is the registry's concern.
func (a *Asset) ValidateMint() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidSettings)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown xft type %d", ErrInvalidSettings, a.Type)
	}
	if a.EditionSize == 0 {
		return fmt.Errorf("%w: edition size must be positive", ErrInvalidSettings)
	}
	if a.Type.OneOfOne() && a.EditionSize != 1 {
		return fmt.Errorf("%w: type %d requires edition size 1", ErrInvalidSettings, a.Type)
	}
	if a.Type.LimitedEdition() && a.EditionSize <= 1 {
		return fmt.Errorf("%w: type %d requires edition size > 1", ErrInvalidSettings, a.Type)
	}
	if a.Type.NeedsLabelLink() && a.LabelID == 0 {
		return fmt.Errorf("%w: type %d requires a label link", ErrInvalidSettings, a.Type)
	}
	return nil
}

// NormalizeTitle strips all whitespace from a title; the result keys the
// uniqueness lookup at mint time.
func NormalizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, title)
}
