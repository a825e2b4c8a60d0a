package bridge

import (
	"math/big"

	"github.com/holiman/uint256"
)

// FeeAmount computes floor(amount * fee / Base). Fee is at most Base, so the
// result never exceeds amount.
func FeeAmount(amount *uint256.Int, fee uint64) *uint256.Int {
	if fee == 0 || amount == nil || amount.IsZero() {
		return uint256.NewInt(0)
	}

	product, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(fee))
	if !overflow {
		return product.Div(product, uint256.NewInt(Base))
	}

	// Amounts within a factor of Base of 2^256 overflow the 256-bit product;
	// the quotient still fits because fee <= Base.
	wide := new(big.Int).Mul(amount.ToBig(), new(big.Int).SetUint64(fee))
	wide.Quo(wide, new(big.Int).SetUint64(Base))
	result, _ := uint256.FromBig(wide)
	return result
}

// Headroom returns limit - used, or zero once used has reached or passed the
// limit. Donated balances can push usage past a limit, so the subtraction
// must not be assumed safe.
func Headroom(limit, used *uint256.Int) *uint256.Int {
	if limit == nil {
		return uint256.NewInt(0)
	}
	if used == nil || used.IsZero() {
		return new(uint256.Int).Set(limit)
	}
	if used.Cmp(limit) >= 0 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(limit, used)
}

// Exceeds reports whether current + delta would pass limit, treating
// uint256 overflow of the sum as exceeding.
func Exceeds(current, delta, limit *uint256.Int) bool {
	if limit == nil {
		limit = uint256.NewInt(0)
	}
	if current == nil {
		current = uint256.NewInt(0)
	}
	if delta == nil {
		delta = uint256.NewInt(0)
	}
	sum, overflow := new(uint256.Int).AddOverflow(current, delta)
	if overflow {
		return true
	}
	return sum.Gt(limit)
}
