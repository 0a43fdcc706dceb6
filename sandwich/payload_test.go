package sandwich

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/flashbots/univ2-sandwich/univ2"
	"github.com/stretchr/testify/require"
)

var (
	weth   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	router = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
)

func TestDirection(t *testing.T) {
	require.Equal(t, uint8(0), Direction(usdc, weth))
	require.Equal(t, uint8(1), Direction(weth, usdc))
	require.Equal(t, uint8(1), Direction(weth, weth))
}

func TestPackPayload(t *testing.T) {
	userAmountIn, userMinRecv, reserveWeth, reserveToken := scenario(1)
	optimalIn := CalcOptimalIn(userAmountIn, userMinRecv, reserveWeth, reserveToken, ether(100), DefaultTolerance)
	plan := CalcSandwichState(optimalIn, userAmountIn, userMinRecv, reserveWeth, reserveToken)
	require.NotNil(t, plan)
	pair := univ2.MainnetPairs.Pair(weth, usdc)

	frontrun, err := FrontrunPayload(weth, usdc, pair, plan)
	require.NoError(t, err)
	require.Len(t, frontrun, PayloadLen)
	require.Equal(t,
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48b4e16d0168e52d35cacd2c6185b44281ec28c9dc0000000000000000462263526b319f00000000000000021f8ac093d49f4b85c100",
		hexutil.Encode(frontrun))

	backrun, err := BackrunPayload(weth, usdc, pair, plan)
	require.NoError(t, err)
	require.Len(t, backrun, PayloadLen)
	require.Equal(t, weth.Bytes(), backrun[:20])
	require.Equal(t, pair.Bytes(), backrun[20:40])
	require.Equal(t, plan.Frontrun.AmountOut.String(), new(big.Int).SetBytes(backrun[40:56]).String())
	require.Equal(t, plan.Backrun.AmountOut.String(), new(big.Int).SetBytes(backrun[56:72]).String())
	require.Equal(t, byte(1), backrun[72])
}

func TestPackPayloadOverflow(t *testing.T) {
	maxUint128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	payload, err := PackPayload(usdc, weth, maxUint128, big.NewInt(0), 0)
	require.NoError(t, err)
	require.Len(t, payload, PayloadLen)

	_, err = PackPayload(usdc, weth, new(big.Int).Add(maxUint128, big.NewInt(1)), big.NewInt(0), 0)
	require.ErrorIs(t, err, ErrAmountOverflow)

	_, err = PackPayload(usdc, weth, big.NewInt(1), big.NewInt(-1), 0)
	require.ErrorIs(t, err, ErrAmountOverflow)
}
