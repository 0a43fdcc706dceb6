package univ2

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const pairABIJSON = `[{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"internalType":"uint112","name":"_reserve0","type":"uint112"},{"internalType":"uint112","name":"_reserve1","type":"uint112"},{"internalType":"uint32","name":"_blockTimestampLast","type":"uint32"}],"payable":false,"stateMutability":"view","type":"function"}]`

var (
	ErrNoPair           = errors.New("pair is not deployed")
	ErrMalformedReserve = errors.New("malformed getReserves response")

	pairABI = mustParseABI(pairABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ReserveFetcher returns the reserves of a pair in the pair's own token0/token1 order
type ReserveFetcher interface {
	GetReserves(ctx context.Context, pair common.Address) (reserve0, reserve1 *big.Int, err error)
}

// PairCaller reads reserves straight from the pair contract at the latest block
type PairCaller struct {
	caller ethereum.ContractCaller
}

func NewPairCaller(caller ethereum.ContractCaller) *PairCaller {
	return &PairCaller{caller: caller}
}

func (p *PairCaller) GetReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	data, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, err
	}

	out, err := p.caller.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: data}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("getReserves %s: %w", pair.Hex(), err)
	}
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoPair, pair.Hex())
	}
	return unpackReserves(out)
}

func unpackReserves(out []byte) (*big.Int, *big.Int, error) {
	values, err := pairABI.Unpack("getReserves", out)
	if err != nil {
		return nil, nil, errors.Join(ErrMalformedReserve, err)
	}
	if len(values) != 3 {
		return nil, nil, ErrMalformedReserve
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, ErrMalformedReserve
	}
	return reserve0, reserve1, nil
}

// GetReserves fetches the reserves of pair and orients them so that the first value belongs to tokenA
func GetReserves(ctx context.Context, f ReserveFetcher, pair, tokenA, tokenB common.Address) (reserveA, reserveB *big.Int, err error) {
	reserve0, reserve1, err := f.GetReserves(ctx, pair)
	if err != nil {
		return nil, nil, err
	}
	if token0, _ := SortTokens(tokenA, tokenB); token0 == tokenA {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}
