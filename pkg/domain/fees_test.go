package domain

import (
	"errors"
	"math"
	"testing"
)

func TestTotalCost(t *testing.T) {
	got, err := TotalCost(100, 2)
	if err != nil || got != 200 {
		t.Fatalf("expected 200, got %d (%v)", got, err)
	}
	if _, err := TotalCost(math.MaxUint64, 2); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

func TestBasisPoints(t *testing.T) {
	got, err := BasisPoints(200, 250) // 2.5%
	if err != nil || got != 5 {
		t.Fatalf("expected 5, got %d (%v)", got, err)
	}
	got, err = BasisPoints(999, 1) // truncates to zero
	if err != nil || got != 0 {
		t.Fatalf("expected 0, got %d (%v)", got, err)
	}
	// Large amounts survive the intermediate product.
	got, err = BasisPoints(math.MaxUint64/2, 100)
	if err != nil || got != math.MaxUint64/2/100 {
		t.Fatalf("expected %d, got %d (%v)", math.MaxUint64/2/100, got, err)
	}
}

func TestAddCostOverflow(t *testing.T) {
	if _, err := AddCost(math.MaxUint64, 1); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	got, err := AddCost(3, 4)
	if err != nil || got != 7 {
		t.Fatalf("expected 7, got %d (%v)", got, err)
	}
}

func TestMarketFeeBpsSelection(t *testing.T) {
	f := FeeSchedule{MarketFeeNativeBps: 200, MarketFeeTokenBps: 100}
	if f.MarketFeeBps(PayNative) != 200 || f.MarketFeeBps(PayToken) != 100 {
		t.Fatalf("wrong rate selection")
	}
}
