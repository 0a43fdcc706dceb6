package univ2

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidPath = errors.New("swap path must contain at least two tokens")

// ExactWethTokenMinRecv walks a router path backwards from its final minimum output and returns the minimum amount
// of path[1] (the token bought directly with WETH) that still lets every later hop deliver finalMinRecv.
// For a direct WETH -> token path finalMinRecv is returned as is and no reserves are fetched.
func ExactWethTokenMinRecv(ctx context.Context, reserves ReserveFetcher, pairs PairDeriver, finalMinRecv *big.Int, path []common.Address) (*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}

	minRecv := new(big.Int).Set(finalMinRecv)
	for i := len(path) - 1; i > 1; i-- {
		from, to := path[i-1], path[i]
		pair := pairs.Pair(from, to)

		reserveFrom, reserveTo, err := GetReserves(ctx, reserves, pair, from, to)
		if err != nil {
			return nil, fmt.Errorf("hop %s -> %s: %w", from.Hex(), to.Hex(), err)
		}
		minRecv = SwapGivenOut(minRecv, reserveFrom, reserveTo).AmountIn
	}
	return minRecv, nil
}
