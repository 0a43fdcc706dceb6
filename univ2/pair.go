package univ2

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

var (
	// MainnetFactory is the Uniswap V2 factory on Ethereum mainnet
	MainnetFactory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	// MainnetInitCodeHash is the keccak256 of the UniswapV2Pair creation code
	MainnetInitCodeHash = common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
)

// SortTokens returns the two addresses ordered the way the factory orders them (token0 < token1)
func SortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// Less reports whether a is numerically smaller than b
func Less(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}

// PairAddress computes the CREATE2 address of the pair for the two tokens without touching the chain
func PairAddress(factory common.Address, initCodeHash common.Hash, tokenA, tokenB common.Address) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(token0.Bytes())
	hasher.Write(token1.Bytes())
	var salt [32]byte
	copy(salt[:], hasher.Sum(nil))

	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes())
}

// PairDeriver derives pair addresses for a fixed factory deployment
type PairDeriver struct {
	Factory      common.Address
	InitCodeHash common.Hash
}

// MainnetPairs derives Uniswap V2 mainnet pairs
var MainnetPairs = PairDeriver{Factory: MainnetFactory, InitCodeHash: MainnetInitCodeHash}

func (d PairDeriver) Pair(tokenA, tokenB common.Address) common.Address {
	return PairAddress(d.Factory, d.InitCodeHash, tokenA, tokenB)
}
