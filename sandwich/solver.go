// Package sandwich sizes, simulates and prices a sandwich around a pending Uniswap V2 swap.
package sandwich

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"github.com/flashbots/univ2-sandwich/univ2"
)

var (
	big0 = big.NewInt(0)
	big2 = big.NewInt(2)

	// DefaultTolerance stops the search once the interval is within 1% of its midpoint (18 decimals fixed point)
	DefaultTolerance = big.NewInt(1e16)
	// DefaultUpperBound is the largest front-run searched by default, 100 ETH
	DefaultUpperBound = new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))

	fixedPointOne = big.NewInt(params.Ether)
)

// BinarySearch looks for the largest x in [left, right] for which pass(f(x)) holds, f must be monotone.
// The search stops once right-left is within tolerance (18 decimals, 1e16 is 1%) of the interval midpoint.
// Each step halves the interval so the loop never runs more than bitlen(right-left)+2 times.
//
// The result is the final midpoint if it passes, otherwise the largest candidate seen passing.
// A negative result is returned as 0.
func BinarySearch(left, right, tolerance *big.Int, f func(*big.Int) *big.Int, pass func(*big.Int) bool) *big.Int {
	l, r := new(big.Int).Set(left), new(big.Int).Set(right)

	maxSteps := new(big.Int).Sub(r, l).BitLen() + 2
	mid, width, allowed := new(big.Int), new(big.Int), new(big.Int)
	for step := 0; step < maxSteps; step++ {
		mid.Add(l, r).Quo(mid, big2)
		width.Sub(r, l)
		allowed.Mul(tolerance, mid).Quo(allowed, fixedPointOne)
		if width.Cmp(allowed) <= 0 {
			break
		}

		if pass(f(mid)) {
			l.Set(mid)
		} else {
			r.Set(mid)
		}
	}

	res := new(big.Int).Add(l, r)
	res.Quo(res, big2)
	if !pass(f(res)) {
		res.Set(l)
	}
	if res.Sign() < 0 {
		return new(big.Int)
	}
	return res
}

// CalcOptimalIn finds the largest WETH front-run that still lets the victim receive userMinRecv.
// Zero means there is no room to front-run. upperBound caps the capital at risk, a bound set too low
// silently yields a smaller than optimal front-run.
func CalcOptimalIn(userAmountIn, userMinRecv, reserveWeth, reserveToken, upperBound, tolerance *big.Int) *big.Int {
	victimOut := func(frontrunIn *big.Int) *big.Int {
		frontrun := univ2.SwapGivenIn(frontrunIn, reserveWeth, reserveToken)
		return univ2.SwapGivenIn(userAmountIn, frontrun.NewReserveIn, frontrun.NewReserveOut).AmountOut
	}
	pass := func(amountOut *big.Int) bool {
		return amountOut.Cmp(userMinRecv) >= 0
	}
	return BinarySearch(big0, upperBound, tolerance, victimOut, pass)
}
