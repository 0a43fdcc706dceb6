package univ2

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestSwapGivenIn(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   *big.Int
		reserveIn  *big.Int
		reserveOut *big.Int
		want       [3]string
	}{
		{
			name:       "1 eth into 100/200000 pool",
			amountIn:   ether(1),
			reserveIn:  ether(100),
			reserveOut: ether(200000),
			want:       [3]string{"1974316068794122597700", "101000000000000000000", "198025683931205877402300"},
		},
		{
			name:       "5 eth into 1000/2000000 pool",
			amountIn:   ether(5),
			reserveIn:  ether(1000),
			reserveOut: ether(2000000),
			want:       [3]string{"9920546077802156251088", "1005000000000000000000", "1990079453922197843748912"},
		},
		{
			name:       "zero in",
			amountIn:   big.NewInt(0),
			reserveIn:  big.NewInt(10),
			reserveOut: big.NewInt(10),
			want:       [3]string{"0", "10", "10"},
		},
		{
			name:       "drained pool keeps one unit",
			amountIn:   big.NewInt(1000000),
			reserveIn:  big.NewInt(1),
			reserveOut: big.NewInt(1),
			want:       [3]string{"0", "1000001", "1"},
		},
		{
			name:       "input reserve wrapping 256 bits is clamped",
			amountIn:   new(big.Int).Lsh(big1, 255),
			reserveIn:  new(big.Int).Add(new(big.Int).Lsh(big1, 255), big.NewInt(5)),
			reserveOut: ether(1),
			want: [3]string{
				"499248873309964947",
				"57896044618658097711785492504343953926634992332820282019728792003956564819967",
				"500751126690035053",
			},
		},
		{
			name:       "empty input reserve",
			amountIn:   big.NewInt(0),
			reserveIn:  big.NewInt(0),
			reserveOut: big.NewInt(10),
			want:       [3]string{"0", "0", "10"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amountIn := new(big.Int).Set(tt.amountIn)
			reserveIn := new(big.Int).Set(tt.reserveIn)
			reserveOut := new(big.Int).Set(tt.reserveOut)

			leg := SwapGivenIn(amountIn, reserveIn, reserveOut)
			require.Equal(t, tt.want[0], leg.AmountOut.String())
			require.Equal(t, tt.want[1], leg.NewReserveIn.String())
			require.Equal(t, tt.want[2], leg.NewReserveOut.String())

			// arguments are left untouched
			require.Equal(t, tt.amountIn.String(), amountIn.String())
			require.Equal(t, tt.reserveIn.String(), reserveIn.String())
			require.Equal(t, tt.reserveOut.String(), reserveOut.String())
		})
	}
}

func TestSwapGivenInBounds(t *testing.T) {
	reserves := []*big.Int{big.NewInt(1), big.NewInt(1000), ether(3), ether(2000000)}
	amounts := []*big.Int{big.NewInt(0), big.NewInt(1), big.NewInt(997), ether(1), ether(1000000000)}

	for _, reserveIn := range reserves {
		for _, reserveOut := range reserves {
			for _, amountIn := range amounts {
				leg := SwapGivenIn(amountIn, reserveIn, reserveOut)
				require.True(t, leg.AmountOut.Sign() >= 0)
				require.True(t, leg.AmountOut.Cmp(reserveOut) < 0, "pool must never be drained")
				require.Equal(t, new(big.Int).Add(reserveIn, amountIn).String(), leg.NewReserveIn.String())
				require.True(t, leg.NewReserveOut.Cmp(reserveOut) <= 0)
				require.True(t, leg.NewReserveOut.Sign() > 0)
			}
		}
	}
}

func TestSwapGivenOut(t *testing.T) {
	tests := []struct {
		name       string
		amountOut  *big.Int
		reserveIn  *big.Int
		reserveOut *big.Int
		want       [3]string
	}{
		{
			name:       "1000 tokens out of 100/200000 pool",
			amountOut:  ether(1000),
			reserveIn:  ether(100),
			reserveOut: ether(200000),
			want:       [3]string{"504024636724243082", "100504024636724243082", "199000000000000000000000"},
		},
		{
			name:       "more than the reserve",
			amountOut:  big.NewInt(20),
			reserveIn:  big.NewInt(10),
			reserveOut: big.NewInt(10),
			want:       [3]string{"201", "211", "1"},
		},
		{
			name:       "exactly the reserve",
			amountOut:  big.NewInt(10),
			reserveIn:  big.NewInt(10),
			reserveOut: big.NewInt(10),
			want:       [3]string{"101", "111", "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leg := SwapGivenOut(tt.amountOut, tt.reserveIn, tt.reserveOut)
			require.Equal(t, tt.want[0], leg.AmountIn.String())
			require.Equal(t, tt.want[1], leg.NewReserveIn.String())
			require.Equal(t, tt.want[2], leg.NewReserveOut.String())
		})
	}
}

func TestSwapGivenOutNeverUnderDelivers(t *testing.T) {
	reserveIn, reserveOut := ether(100), ether(200000)

	amountIn := SwapGivenOut(ether(1000), reserveIn, reserveOut).AmountIn
	require.True(t, SwapGivenIn(amountIn, reserveIn, reserveOut).AmountOut.Cmp(ether(1000)) >= 0)
	// one unit less is not enough
	lessIn := new(big.Int).Sub(amountIn, big1)
	require.Equal(t, "999999999999999999996", SwapGivenIn(lessIn, reserveIn, reserveOut).AmountOut.String())

	for _, out := range []*big.Int{big.NewInt(1), big.NewInt(12345), ether(1), ether(199999)} {
		in := SwapGivenOut(out, reserveIn, reserveOut).AmountIn
		got := SwapGivenIn(in, reserveIn, reserveOut).AmountOut
		require.True(t, got.Cmp(out) >= 0, "requested %s, got %s", out, got)
	}
}
