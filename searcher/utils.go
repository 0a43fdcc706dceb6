package searcher

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
	"github.com/flashbots/univ2-sandwich/sandwich"
	"go.uber.org/zap"
)

var (
	ethDivisor  = new(big.Float).SetUint64(params.Ether)
	gweiDivisor = new(big.Float).SetUint64(params.GWei)
)

func formatUnits(value *big.Int, unit string) string {
	if value == nil {
		return ""
	}
	float := new(big.Float).SetInt(value)
	switch unit {
	case "eth":
		return float.Quo(float, ethDivisor).String()
	case "gwei":
		return float.Quo(float, gweiDivisor).String()
	default:
		return ""
	}
}

func planFields(plan *sandwich.Plan) []zap.Field {
	return []zap.Field{
		zap.String("eth_optimal_in", formatUnits(plan.OptimalIn, "eth")),
		zap.String("eth_user_amount_in", formatUnits(plan.UserAmountIn, "eth")),
		zap.Stringer("user_min_recv", plan.UserMinRecv),
		zap.String("eth_reserve_weth", formatUnits(plan.ReserveWeth, "eth")),
		zap.Stringer("reserve_token", plan.ReserveToken),
		zap.Stringer("frontrun_out", plan.Frontrun.AmountOut),
		zap.Stringer("victim_out", plan.Victim.AmountOut),
		zap.String("eth_backrun_out", formatUnits(plan.Backrun.AmountOut, "eth")),
		zap.String("eth_revenue", formatUnits(plan.Revenue, "eth")),
	}
}

func hexTxs(txs []hexutil.Bytes) []string {
	res := make([]string, len(txs))
	for i, tx := range txs {
		res[i] = tx.String()
	}
	return res
}
