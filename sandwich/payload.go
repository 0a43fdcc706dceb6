package sandwich

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/univ2-sandwich/univ2"
)

// PayloadLen is address ++ address ++ uint128 ++ uint128 ++ uint8
const PayloadLen = common.AddressLength*2 + 16*2 + 1

var ErrAmountOverflow = errors.New("amount does not fit into uint128")

// Direction is the flag the sandwich contract uses to tell the pair's token order, 0 if a sorts before b
func Direction(a, b common.Address) uint8 {
	if univ2.Less(a, b) {
		return 0
	}
	return 1
}

// PackPayload builds the sandwich contract calldata: the token sent into the pair, the pair, the amount in,
// the amount out and the direction flag, tightly packed
func PackPayload(token, pair common.Address, amountIn, amountOut *big.Int, direction uint8) ([]byte, error) {
	payload := make([]byte, 0, PayloadLen)
	payload = append(payload, token.Bytes()...)
	payload = append(payload, pair.Bytes()...)
	for _, amount := range []*big.Int{amountIn, amountOut} {
		if amount.Sign() < 0 || amount.BitLen() > 128 {
			return nil, fmt.Errorf("%w: %s", ErrAmountOverflow, amount.String())
		}
		payload = append(payload, common.LeftPadBytes(amount.Bytes(), 16)...)
	}
	payload = append(payload, direction)
	return payload, nil
}

// FrontrunPayload sells optimalIn WETH for the token
func FrontrunPayload(weth, token, pair common.Address, plan *Plan) ([]byte, error) {
	return PackPayload(token, pair, plan.OptimalIn, plan.Frontrun.AmountOut, Direction(token, weth))
}

// BackrunPayload sells everything bought by the front-run back for WETH
func BackrunPayload(weth, token, pair common.Address, plan *Plan) ([]byte, error) {
	return PackPayload(weth, pair, plan.Frontrun.AmountOut, plan.Backrun.AmountOut, Direction(weth, token))
}
