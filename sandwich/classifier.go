package sandwich

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const SwapExactETHForTokens = "swapExactETHForTokens"

// routerABIJSON holds the router swaps that pay with ETH so that look-alike calls decode and are rejected by name
const routerABIJSON = `[
{"inputs":[{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapExactETHForTokens","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapExactETHForTokensSupportingFeeOnTransferTokens","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapETHForExactTokens","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"payable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapExactTokensForETH","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}
]`

var (
	ErrTxMined          = errors.New("transaction already mined")
	ErrTxNotFound       = errors.New("transaction not found")
	ErrNotRouterTx      = errors.New("transaction is not sent to the router")
	ErrUnknownMethod    = errors.New("calldata is not swapExactETHForTokens")
	ErrDeadlineElapsed  = errors.New("swap deadline elapsed")
	ErrUnsupportedPath  = errors.New("swap path does not start with WETH")
	ErrNoOpportunity    = errors.New("no room to front-run")
	ErrVictimProtection = errors.New("plan breaks the victim minimum output")

	disqualifications = []error{
		ErrTxMined, ErrTxNotFound, ErrNotRouterTx, ErrUnknownMethod, ErrDeadlineElapsed, ErrUnsupportedPath,
		ErrNoOpportunity, ErrVictimProtection,
	}
)

// IsDisqualified reports whether err is an expected reason to skip a transaction rather than a failure
func IsDisqualified(err error) bool {
	for _, d := range disqualifications {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// PendingSwap is a swapExactETHForTokens call waiting in the mempool
type PendingSwap struct {
	Hash         common.Hash
	Path         []common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Deadline     *big.Int
	To           common.Address
	Tx           *types.Transaction
}

// Token is bought directly with WETH, it is the token the sandwich trades
func (s *PendingSwap) Token() common.Address {
	return s.Path[1]
}

// ChainReader is the part of the chain backend needed to look up a pending transaction
type ChainReader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type Classifier struct {
	router common.Address
	weth   common.Address
	abi    abi.ABI
	swap   abi.Method
}

func NewClassifier(router, weth common.Address) (*Classifier, error) {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, err
	}
	return &Classifier{
		router: router,
		weth:   weth,
		abi:    parsed,
		swap:   parsed.Methods[SwapExactETHForTokens],
	}, nil
}

// Classify fetches the transaction and extracts the swap. It fails with one of the disqualification errors for
// anything that can't be sandwiched and with a plain error if the node could not be queried.
func (c *Classifier) Classify(ctx context.Context, chain ChainReader, hash common.Hash, now time.Time) (*PendingSwap, error) {
	receipt, err := chain.TransactionReceipt(ctx, hash)
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("receipt: %w", err)
	}
	if receipt != nil {
		return nil, ErrTxMined
	}

	tx, _, err := chain.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) || (err == nil && tx == nil) {
		return nil, ErrTxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}

	return c.ClassifyTx(tx, now)
}

// ClassifyTx extracts the swap from an already fetched transaction
func (c *Classifier) ClassifyTx(tx *types.Transaction, now time.Time) (*PendingSwap, error) {
	if tx.To() == nil || *tx.To() != c.router {
		return nil, ErrNotRouterTx
	}

	data := tx.Data()
	if len(data) < 4 {
		return nil, ErrUnknownMethod
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil || method.Name != SwapExactETHForTokens {
		return nil, ErrUnknownMethod
	}

	args, err := c.swap.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, err)
	}
	if len(args) != 4 {
		return nil, ErrUnknownMethod
	}
	amountOutMin, ok1 := args[0].(*big.Int)
	path, ok2 := args[1].([]common.Address)
	to, ok3 := args[2].(common.Address)
	deadline, ok4 := args[3].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, ErrUnknownMethod
	}

	if big.NewInt(now.Unix()).Cmp(deadline) > 0 {
		return nil, ErrDeadlineElapsed
	}
	if len(path) < 2 || path[0] != c.weth {
		return nil, ErrUnsupportedPath
	}

	return &PendingSwap{
		Hash:         tx.Hash(),
		Path:         path,
		AmountIn:     tx.Value(),
		AmountOutMin: amountOutMin,
		Deadline:     deadline,
		To:           to,
		Tx:           tx,
	}, nil
}

// PackSwap encodes swapExactETHForTokens calldata
func (c *Classifier) PackSwap(amountOutMin *big.Int, path []common.Address, to common.Address, deadline *big.Int) ([]byte, error) {
	return c.abi.Pack(SwapExactETHForTokens, amountOutMin, path, to, deadline)
}
