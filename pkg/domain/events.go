package domain

type EventType string

const (
	EventAssetMinted      EventType = "asset-minted"
	EventAssetWrapped     EventType = "asset-wrapped"
	EventAssetTransferred EventType = "asset-transferred"
	EventListingCreated   EventType = "listing-created"
	EventListingCancelled EventType = "listing-cancelled"
	EventListingEdited    EventType = "listing-edited"
	EventPurchaseComplete EventType = "purchase-completed"
	EventOperatorAdded    EventType = "operator-added"
	EventOperatorRemoved  EventType = "operator-removed"
	EventVaultCreated     EventType = "vault-created"
	EventVaultLocked      EventType = "vault-locked"
	EventVaultWithdrawn   EventType = "vault-withdrawn"
	EventFeesUpdated      EventType = "fees-updated"
)

// Event is one immutable entry of the append-only journal. Events commit in
// the same atomic unit as the operation that produced them and are never
// retracted.
type Event struct {
	ID      string         `json:"event_id"`
	Type    EventType      `json:"type"`
	AssetID uint64         `json:"xft_id"`
	Actor   Address        `json:"actor"`
	At      uint64         `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}
