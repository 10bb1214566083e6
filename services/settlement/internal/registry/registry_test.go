package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dexsta/pkg/domain"
	"dexsta/services/settlement/internal/permit"
	"dexsta/services/settlement/internal/store"
)

const testNow = uint64(1_700_000_000)

const (
	alice = domain.Address("wallet:alice")
	bob   = domain.Address("wallet:bob")
)

func newEngine(mem *store.Memory) *Engine {
	e := New(mem, permit.New(LabelOwner), zerolog.Nop())
	e.Clock = func() time.Time { return time.Unix(int64(testNow), 0) }
	return e
}

func seedFees(t *testing.T, mem *store.Memory, mintFeePerYear uint64) {
	t.Helper()
	ctx := context.Background()
	err := mem.WithinTx(ctx, func(tx store.Tx) error {
		return tx.PutFees(ctx, domain.FeeSchedule{
			PayoutAddress:  domain.Address("wallet:payout"),
			MintFeePerYear: mintFeePerYear,
		})
	})
	if err != nil {
		t.Fatalf("seed fees: %v", err)
	}
}

func fund(t *testing.T, mem *store.Memory, who domain.Address, amount uint64) {
	t.Helper()
	ctx := context.Background()
	err := mem.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Deposit(ctx, domain.PayNative, who, amount)
	})
	if err != nil {
		t.Fatalf("fund %s: %v", who, err)
	}
}

func mintLabel(t *testing.T, e *Engine, owner domain.Address, title string) uint64 {
	t.Helper()
	id, err := e.Mint(context.Background(), owner, MintRequest{
		Title:             title,
		Type:              domain.TypeLeadLabel,
		EditionSize:       1,
		RegistrationYears: 1,
		LicenseFeeBps:     500,
	})
	if err != nil {
		t.Fatalf("mint label %q: %v", title, err)
	}
	return id
}

func TestMintChargesRegistrationFee(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	seedFees(t, mem, 1000)
	fund(t, mem, alice, 5000)

	id, err := e.Mint(context.Background(), alice, MintRequest{
		Title:             "atlas records",
		Type:              domain.TypeLeadLabel,
		EditionSize:       1,
		RegistrationYears: 3,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	ctx := context.Background()
	err = mem.WithinTx(ctx, func(tx store.Tx) error {
		bal, err := tx.Balance(ctx, domain.PayNative, alice)
		if err != nil {
			return err
		}
		if bal != 2000 {
			t.Fatalf("minter balance = %d, want 2000 after 3-year fee", bal)
		}
		a, err := tx.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		if a.Owner != alice || a.ExpiresAt != testNow+3*secondsPerYear {
			t.Fatalf("asset = %+v, want owner alice expiring in 3 years", a)
		}
		if a.VaultAddress != domain.VaultAddress(id) {
			t.Fatalf("1-of-1 mint did not create a vault identity")
		}
		if _, err := tx.GetVault(ctx, id); err != nil {
			t.Fatalf("1-of-1 mint did not create a vault record: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
}

func TestMintOwnerlessSkipsFee(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	seedFees(t, mem, 1000)

	// No funding: an art mint must not need any.
	if _, err := e.Mint(context.Background(), alice, MintRequest{
		Title:       "lone print",
		Type:        domain.TypeArt,
		EditionSize: 1,
	}); err != nil {
		t.Fatalf("art mint: %v", err)
	}
}

func TestMintTitleUniqueAfterNormalization(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	mintLabel(t, e, alice, "atlas records")

	_, err := e.Mint(context.Background(), bob, MintRequest{
		Title:       "atlas  records",
		Type:        domain.TypeLeadLabel,
		EditionSize: 1,
	})
	if !errors.Is(err, domain.ErrTitleAlreadyExists) {
		t.Fatalf("duplicate title mint: err = %v, want ErrTitleAlreadyExists", err)
	}
}

func TestMintUnderLabelRequiresOwnership(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	labelID := mintLabel(t, e, alice, "atlas records")

	req := MintRequest{
		Title:       "atlas tags",
		Type:        domain.TypeTagLabel,
		LabelID:     labelID,
		EditionSize: 10,
	}
	if _, err := e.Mint(context.Background(), bob, req); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stranger mint under label: err = %v, want ErrUnauthorized", err)
	}

	id, err := e.Mint(context.Background(), alice, req)
	if err != nil {
		t.Fatalf("owner mint under label: %v", err)
	}

	ctx := context.Background()
	err = mem.WithinTx(ctx, func(tx store.Tx) error {
		label, err := tx.GetAsset(ctx, labelID)
		if err != nil {
			return err
		}
		kids := label.ChildIDs()
		if len(kids) != 1 || kids[0] != id {
			t.Fatalf("label children = %v, want [%d]", kids, id)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("inspect label: %v", err)
	}
}

func TestMintValidationRejectsBadEditionSize(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	labelID := mintLabel(t, e, alice, "atlas records")

	if _, err := e.Mint(context.Background(), alice, MintRequest{
		Title:       "atlas tags",
		Type:        domain.TypeTagLabel,
		LabelID:     labelID,
		EditionSize: 1, // limited-edition types need more than one
	}); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("bad edition size: err = %v, want ErrInvalidSettings", err)
	}
}

func TestIdsStrictlyIncrease(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	a := mintLabel(t, e, alice, "first")
	b := mintLabel(t, e, alice, "second")
	if b <= a {
		t.Fatalf("ids not increasing: %d then %d", a, b)
	}
}

func TestWrap(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	labelID := mintLabel(t, e, alice, "atlas records")

	parentID, err := e.Mint(context.Background(), alice, MintRequest{
		Title:       "atlas chapter one",
		Type:        domain.TypeChapterLabel,
		LabelID:     labelID,
		EditionSize: 10,
		WrapTarget:  true,
	})
	if err != nil {
		t.Fatalf("mint chapter: %v", err)
	}

	wrappedID, err := e.Wrap(context.Background(), alice, parentID)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	ctx := context.Background()
	err = mem.WithinTx(ctx, func(tx store.Tx) error {
		held, err := tx.Holding(ctx, parentID, alice)
		if err != nil {
			return err
		}
		if held != 9 {
			t.Fatalf("parent holding = %d, want 9 after burning one", held)
		}
		burned, err := tx.Holding(ctx, parentID, domain.BurnAddress)
		if err != nil {
			return err
		}
		if burned != 1 {
			t.Fatalf("burn holding = %d, want 1", burned)
		}
		w, err := tx.GetAsset(ctx, wrappedID)
		if err != nil {
			return err
		}
		if w.Type != domain.TypeWrapped || w.EditionSize != 1 {
			t.Fatalf("wrapped asset = %+v, want 1-of-1 wrapped type", w)
		}
		parent, err := tx.GetAsset(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.WrappedChildID != wrappedID {
			t.Fatalf("parent wrapped child = %d, want %d", parent.WrappedChildID, wrappedID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
}

func TestWrapRejectsNonTarget(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	labelID := mintLabel(t, e, alice, "atlas records")
	if _, err := e.Wrap(context.Background(), alice, labelID); !errors.Is(err, domain.ErrInvalidXftType) {
		t.Fatalf("wrap of non-target: err = %v, want ErrInvalidXftType", err)
	}
}

func TestTransferNonTransferable(t *testing.T) {
	mem := store.NewMemory()
	e := newEngine(mem)
	labelID := mintLabel(t, e, alice, "atlas records")

	id, err := e.Mint(context.Background(), alice, MintRequest{
		Title:       "atlas badge",
		Type:        domain.TypeTagLabel,
		LabelID:     labelID,
		EditionSize: 5,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := e.Transfer(context.Background(), alice, id, bob); err != nil {
		t.Fatalf("label owner transfer: %v", err)
	}
	// Bob is neither label owner nor operator: only the burn sink accepts.
	if err := e.Transfer(context.Background(), bob, id, alice); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("restricted transfer: err = %v, want ErrUnauthorized", err)
	}
	if err := e.Transfer(context.Background(), bob, id, domain.BurnAddress); err != nil {
		t.Fatalf("burn transfer: %v", err)
	}
}

func TestLabelOwnerProof(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	err := mem.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.PutAsset(ctx, domain.Asset{
			ID: 1, Title: "live", Type: domain.TypeLeadLabel, EditionSize: 1,
			ExpiresAt: testNow + 10, Owner: alice,
		}); err != nil {
			return err
		}
		if err := tx.PutAsset(ctx, domain.Asset{
			ID: 2, Title: "expired", Type: domain.TypeLeadLabel, EditionSize: 1,
			ExpiresAt: testNow, Owner: alice,
		}); err != nil {
			return err
		}
		if err := tx.PutAsset(ctx, domain.Asset{
			ID: 3, Title: "art piece", Type: domain.TypeArt, EditionSize: 1,
			ExpiresAt: testNow + 10, Owner: alice,
		}); err != nil {
			return err
		}

		cases := []struct {
			name      string
			principal domain.Address
			assetID   uint64
			want      bool
		}{
			{"owner of live label", alice, 1, true},
			{"stranger", bob, 1, false},
			{"expiry boundary counts as expired", alice, 2, false},
			{"ownerless type", alice, 3, false},
			{"missing asset", alice, 42, false},
		}
		for _, tc := range cases {
			got, err := LabelOwner(ctx, tx, tc.principal, tc.assetID, testNow)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if got != tc.want {
				t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestMarketLicenseResolvesParent(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	err := mem.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.PutAsset(ctx, domain.Asset{
			ID: 1, Title: "parent", Type: domain.TypeLeadLabel, EditionSize: 1,
			ExpiresAt: testNow + 10, LicenseFeeBps: 750, Owner: alice,
			VaultAddress: domain.VaultAddress(1),
		}); err != nil {
			return err
		}
		if err := tx.PutAsset(ctx, domain.Asset{
			ID: 2, Title: "license", Type: domain.TypeMarketLic, LabelID: 1,
			EditionSize: 10, ExpiresAt: testNow + 10, Owner: bob,
		}); err != nil {
			return err
		}

		valid, parentID, vaultAddr, feeBps, err := MarketLicense(ctx, tx, 2, testNow)
		if err != nil {
			t.Fatalf("market license: %v", err)
		}
		if !valid || parentID != 1 || vaultAddr != domain.VaultAddress(1) || feeBps != 750 {
			t.Fatalf("got (%v, %d, %s, %d), want valid parent 1 with 750 bps", valid, parentID, vaultAddr, feeBps)
		}

		valid, _, _, _, err = MarketLicense(ctx, tx, 2, testNow+10)
		if err != nil {
			t.Fatalf("expired license: %v", err)
		}
		if valid {
			t.Fatalf("expired license reported valid")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}
