package sandwich

import (
	"math/big"

	"github.com/ethereum/go-ethereum/consensus/misc/eip1559"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

var (
	bribeNumerator   = big.NewInt(9999)
	bribeDenominator = big.NewInt(10000)
)

// Bribe is what the back-run pays the block builder
type Bribe struct {
	// Amount is the revenue left after paying the front-run base fee
	Amount *big.Int `json:"amount"`
	// PriorityFee is the back-run maxPriorityFeePerGas, 99.99% of Amount spread over the back-run gas
	PriorityFee *big.Int `json:"priorityFee"`
}

// CalcBribe prices the back-run priority fee from simulated gas usage. The bundle is worth sending only when
// the priority fee is at least the next base fee, ok is false otherwise. The returned Bribe is always filled
// when backrunGas is positive so that rejections can be logged.
func CalcBribe(revenue *big.Int, frontrunGas, backrunGas uint64, nextBaseFee *big.Int) (bribe *Bribe, ok bool) {
	if backrunGas == 0 {
		return nil, false
	}

	amount := new(big.Int).SetUint64(frontrunGas)
	amount.Mul(amount, nextBaseFee)
	amount.Sub(revenue, amount)

	priorityFee := new(big.Int).Mul(amount, bribeNumerator)
	priorityFee.Quo(priorityFee, bribeDenominator)
	priorityFee.Quo(priorityFee, new(big.Int).SetUint64(backrunGas))

	bribe = &Bribe{Amount: amount, PriorityFee: priorityFee}
	return bribe, priorityFee.Cmp(nextBaseFee) >= 0
}

// NextBaseFee is the base fee of the block following head
func NextBaseFee(config *params.ChainConfig, head *types.Header) *big.Int {
	return eip1559.CalcBaseFee(config, head)
}
