// Package permit answers "may principal P act on asset A" by composing the
// label-ownership proof, the operator-grant ledger and an optional platform
// fallback. Minting under a label, operator management, listing management
// and vault withdrawal all resolve through the same three tiers.
package permit

import (
	"context"
	"fmt"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/store"
)

// Action selects how strict the delegated-operator tier is.
type Action int

const (
	// ActionAsset is satisfied by any live grant.
	ActionAsset Action = iota
	// ActionManageOperators requires the super-operator role; used for
	// add/remove operator and withdraw-limit edits.
	ActionManageOperators
)

// OwnershipFunc proves label ownership; wired to the asset registry.
type OwnershipFunc func(ctx context.Context, tx store.Tx, principal domain.Address, assetID uint64, now uint64) (bool, error)

// FallbackFunc is the explicit platform-override hook. It sees only the
// principal and asset and must be auditable; the default is to deny.
type FallbackFunc func(principal domain.Address, assetID uint64) bool

type Resolver struct {
	Owner    OwnershipFunc
	Fallback FallbackFunc
}

func New(owner OwnershipFunc) *Resolver {
	return &Resolver{Owner: owner}
}

// Allow returns nil when one of the three tiers grants access, otherwise
// ErrUnauthorized. No tier mutates anything.
func (r *Resolver) Allow(ctx context.Context, tx store.Tx, principal domain.Address, assetID uint64, now uint64, action Action) error {
	owner, err := r.Owner(ctx, tx, principal, assetID, now)
	if err != nil {
		return err
	}
	if owner {
		return nil
	}

	g, err := tx.GetGrant(ctx, principal, assetID)
	if err == nil && g.ValidAt(now) {
		switch action {
		case ActionManageOperators:
			if g.Role == domain.RoleSuper {
				return nil
			}
		case ActionAsset:
			return nil
		}
	}

	if r.Fallback != nil && r.Fallback(principal, assetID) {
		return nil
	}
	return fmt.Errorf("%w: %s may not act on xft %d", domain.ErrUnauthorized, principal, assetID)
}
