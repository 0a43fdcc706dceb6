// Package univ2 models the Uniswap V2 constant product pool: swap math, pair address derivation and
// reserve lookups.
//
// All amounts are *big.Int in the token's native decimals. Functions never mutate their arguments.
package univ2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

var (
	big0    = big.NewInt(0)
	big1    = big.NewInt(1)
	big997  = big.NewInt(997)
	big1000 = big.NewInt(1000)

	// MaxInt256 is the value an input reserve is clamped to when it no longer fits into an EVM word
	MaxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big1, 255), big1)
)

// SwapLeg is the result of swapping an exact input amount
type SwapLeg struct {
	AmountOut     *big.Int `json:"amountOut"`
	NewReserveIn  *big.Int `json:"newReserveIn"`
	NewReserveOut *big.Int `json:"newReserveOut"`
}

// SwapLegOut is the result of swapping for an exact output amount
type SwapLegOut struct {
	AmountIn      *big.Int `json:"amountIn"`
	NewReserveIn  *big.Int `json:"newReserveIn"`
	NewReserveOut *big.Int `json:"newReserveOut"`
}

// SwapGivenIn returns how much of the out token is received for amountIn, together with the pool reserves after
// the swap. The 0.3% fee is taken from the input as in UniswapV2Library.getAmountOut.
func SwapGivenIn(amountIn, reserveIn, reserveOut *big.Int) SwapLeg {
	amountInWithFee := new(big.Int).Mul(amountIn, big997)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big1000)
	denominator.Add(denominator, amountInWithFee)

	amountOut := new(big.Int)
	if denominator.Sign() != 0 {
		amountOut.Quo(numerator, denominator)
	}

	return SwapLeg{
		AmountOut:     amountOut,
		NewReserveIn:  addReserve(reserveIn, amountIn),
		NewReserveOut: subReserve(reserveOut, amountOut),
	}
}

// SwapGivenOut returns the minimal input needed to receive amountOut, together with the pool reserves after the
// swap. The input is rounded up so the caller never under-supplies.
func SwapGivenOut(amountOut, reserveIn, reserveOut *big.Int) SwapLegOut {
	newReserveOut := subReserve(reserveOut, amountOut)

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, big1000)
	denominator := new(big.Int).Mul(newReserveOut, big997)
	amountIn := numerator.Quo(numerator, denominator)
	amountIn.Add(amountIn, big1)

	return SwapLegOut{
		AmountIn:      amountIn,
		NewReserveIn:  addReserve(reserveIn, amountIn),
		NewReserveOut: newReserveOut,
	}
}

// subReserve draws amount from reserve. A drawn down reserve never reaches zero, it is clamped to 1 instead.
func subReserve(reserve, amount *big.Int) *big.Int {
	res := new(big.Int).Sub(reserve, amount)
	if res.Cmp(big0) <= 0 || res.Cmp(reserve) > 0 {
		return big.NewInt(1)
	}
	return res
}

// addReserve adds amount to reserve, the result is clamped to MaxInt256 if it would wrap a 256-bit word
func addReserve(reserve, amount *big.Int) *big.Int {
	res := new(big.Int).Add(reserve, amount)
	if res.Cmp(reserve) < 0 || res.Cmp(math.MaxBig256) > 0 {
		return new(big.Int).Set(MaxInt256)
	}
	return res
}
