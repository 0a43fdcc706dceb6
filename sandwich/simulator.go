package sandwich

import (
	"math/big"

	"github.com/flashbots/univ2-sandwich/univ2"
)

// Plan is a simulated front-run, victim swap and back-run against one WETH/token pair
type Plan struct {
	OptimalIn    *big.Int `json:"optimalIn"`
	UserAmountIn *big.Int `json:"userAmountIn"`
	UserMinRecv  *big.Int `json:"userMinRecv"`
	ReserveWeth  *big.Int `json:"reserveWeth"`
	ReserveToken *big.Int `json:"reserveToken"`

	// Frontrun and Victim swap WETH for the token, Backrun swaps the token back so its reserves are reversed
	Frontrun univ2.SwapLeg `json:"frontrun"`
	Victim   univ2.SwapLeg `json:"victim"`
	Backrun  univ2.SwapLeg `json:"backrun"`

	// Revenue is the WETH gained before gas, it can be negative
	Revenue *big.Int `json:"revenue"`
}

// CalcSandwichState runs the three swaps in block order. It returns nil if the victim would receive less than
// userMinRecv, their transaction would revert and take the bundle down with it.
func CalcSandwichState(optimalIn, userAmountIn, userMinRecv, reserveWeth, reserveToken *big.Int) *Plan {
	frontrun := univ2.SwapGivenIn(optimalIn, reserveWeth, reserveToken)
	victim := univ2.SwapGivenIn(userAmountIn, frontrun.NewReserveIn, frontrun.NewReserveOut)
	backrun := univ2.SwapGivenIn(frontrun.AmountOut, victim.NewReserveOut, victim.NewReserveIn)

	if victim.AmountOut.Cmp(userMinRecv) < 0 {
		return nil
	}

	return &Plan{
		OptimalIn:    new(big.Int).Set(optimalIn),
		UserAmountIn: new(big.Int).Set(userAmountIn),
		UserMinRecv:  new(big.Int).Set(userMinRecv),
		ReserveWeth:  new(big.Int).Set(reserveWeth),
		ReserveToken: new(big.Int).Set(reserveToken),
		Frontrun:     frontrun,
		Victim:       victim,
		Backrun:      backrun,
		Revenue:      new(big.Int).Sub(backrun.AmountOut, optimalIn),
	}
}
