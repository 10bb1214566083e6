package domain

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Fee arithmetic runs through 256-bit intermediates so that price*quantity
// and basis-point products can never wrap a uint64 silently; results that do
// not fit back into 64 bits surface as ErrInvalidPrice.

const bpsDenominator = 10_000

// TotalCost returns price*quantity.
func TotalCost(price, quantity uint64) (uint64, error) {
	var p, q uint256.Int
	p.SetUint64(price)
	q.SetUint64(quantity)
	p.Mul(&p, &q)
	if !p.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d overflows", ErrInvalidPrice, price, quantity)
	}
	return p.Uint64(), nil
}

// BasisPoints returns amount*bps/10000, truncating.
func BasisPoints(amount, bps uint64) (uint64, error) {
	var a, b uint256.Int
	a.SetUint64(amount)
	b.SetUint64(bps)
	a.Mul(&a, &b)
	a.Div(&a, uint256.NewInt(bpsDenominator))
	if !a.IsUint64() {
		return 0, fmt.Errorf("%w: fee on %d at %d bps overflows", ErrInvalidPrice, amount, bps)
	}
	return a.Uint64(), nil
}

// AddCost returns a+b, guarding the running total in buy against wrap.
func AddCost(a, b uint64) (uint64, error) {
	var x, y uint256.Int
	x.SetUint64(a)
	y.SetUint64(b)
	x.Add(&x, &y)
	if !x.IsUint64() {
		return 0, fmt.Errorf("%w: cost %d + %d overflows", ErrInvalidPrice, a, b)
	}
	return x.Uint64(), nil
}

// MintFee returns the registration charge for a mint: feePerYear*years.
func MintFee(feePerYear, years uint64) (uint64, error) {
	fee, err := TotalCost(feePerYear, years)
	if err != nil {
		return 0, fmt.Errorf("%w: mint fee overflows", ErrInvalidPrice)
	}
	return fee, nil
}
