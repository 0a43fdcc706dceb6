package univ2

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

func TestSortTokens(t *testing.T) {
	token0, token1 := SortTokens(weth, usdc)
	require.Equal(t, usdc, token0)
	require.Equal(t, weth, token1)

	token0, token1 = SortTokens(usdc, weth)
	require.Equal(t, usdc, token0)
	require.Equal(t, weth, token1)

	require.True(t, Less(dai, usdc))
	require.False(t, Less(weth, dai))
	require.False(t, Less(weth, weth))
}

func TestPairAddress(t *testing.T) {
	tests := []struct {
		name   string
		tokenA common.Address
		tokenB common.Address
		want   common.Address
	}{
		{
			name:   "weth/usdc",
			tokenA: weth,
			tokenB: usdc,
			want:   common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
		},
		{
			name:   "usdc/weth",
			tokenA: usdc,
			tokenB: weth,
			want:   common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
		},
		{
			name:   "weth/dai",
			tokenA: weth,
			tokenB: dai,
			want:   common.HexToAddress("0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11"),
		},
		{
			name:   "dai/usdc",
			tokenA: dai,
			tokenB: usdc,
			want:   common.HexToAddress("0xAE461cA67B15dc8dc81CE7615e0320dA1A9aB8D5"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PairAddress(MainnetFactory, MainnetInitCodeHash, tt.tokenA, tt.tokenB))
			require.Equal(t, tt.want, MainnetPairs.Pair(tt.tokenA, tt.tokenB))
		})
	}
}
