package sandwich

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

func TestCalcBribe(t *testing.T) {
	gwei := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.GWei)) }
	revenue, ok := new(big.Int).SetString("19781008104029529", 10)
	require.True(t, ok)

	tests := []struct {
		name            string
		revenue         *big.Int
		frontrunGas     uint64
		backrunGas      uint64
		nextBaseFee     *big.Int
		wantOk          bool
		wantAmount      string
		wantPriorityFee string
	}{
		{
			name:            "profitable",
			revenue:         revenue,
			frontrunGas:     100000,
			backrunGas:      80000,
			nextBaseFee:     gwei(10),
			wantOk:          true,
			wantAmount:      "18781008104029529",
			wantPriorityFee: "234739125040",
		},
		{
			name:            "base fee eats the revenue",
			revenue:         revenue,
			frontrunGas:     100000,
			backrunGas:      80000,
			nextBaseFee:     gwei(200),
			wantOk:          false,
			wantAmount:      "-218991895970471",
			wantPriorityFee: "-2737124959",
		},
		{
			name:            "priority fee equal to the base fee",
			revenue:         big.NewInt(19999),
			frontrunGas:     1,
			backrunGas:      1,
			nextBaseFee:     big.NewInt(9999),
			wantOk:          true,
			wantAmount:      "10000",
			wantPriorityFee: "9999",
		},
		{
			name:            "priority fee just below the base fee",
			revenue:         big.NewInt(19998),
			frontrunGas:     1,
			backrunGas:      1,
			nextBaseFee:     big.NewInt(9999),
			wantOk:          false,
			wantAmount:      "9999",
			wantPriorityFee: "9998",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bribe, ok := CalcBribe(tt.revenue, tt.frontrunGas, tt.backrunGas, tt.nextBaseFee)
			require.Equal(t, tt.wantOk, ok)
			require.NotNil(t, bribe)
			require.Equal(t, tt.wantAmount, bribe.Amount.String())
			require.Equal(t, tt.wantPriorityFee, bribe.PriorityFee.String())
		})
	}
}

func TestCalcBribeWithoutBackrunGas(t *testing.T) {
	bribe, ok := CalcBribe(big.NewInt(1e18), 100000, 0, big.NewInt(1))
	require.False(t, ok)
	require.Nil(t, bribe)
}

func TestNextBaseFee(t *testing.T) {
	head := func(gasUsed uint64) *types.Header {
		return &types.Header{
			Number:   big.NewInt(19000000),
			GasLimit: 30000000,
			GasUsed:  gasUsed,
			BaseFee:  big.NewInt(10 * params.GWei),
		}
	}

	require.Equal(t, "10000000000", NextBaseFee(params.MainnetChainConfig, head(15000000)).String())
	require.Equal(t, "11250000000", NextBaseFee(params.MainnetChainConfig, head(30000000)).String())
	require.Equal(t, "8750000000", NextBaseFee(params.MainnetChainConfig, head(0)).String())
}
