package searcher

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/flashbots/univ2-sandwich/sandwich"
)

const (
	AttemptSimulationFailed = "simulation_failed"
	AttemptUnprofitable     = "unprofitable"
	AttemptVictimMined      = "victim_mined"
	AttemptSendFailed       = "send_failed"
	AttemptSubmitted        = "submitted"
)

// Attempt is one sandwich that made it to the relay
type Attempt struct {
	TxHash      common.Hash
	TargetBlock uint64
	Token       common.Address
	Pair        common.Address
	Status      string
	Error       string

	Plan            *sandwich.Plan
	FrontrunGasUsed uint64
	BackrunGasUsed  uint64
	NextBaseFee     *big.Int
	Bribe           *sandwich.Bribe

	BundleHash common.Hash
	Relays     []string
}

// bundle is front-run, victim, back-run. Only the back-run changes once the bribe is known.
type bundle struct {
	chainID     *big.Int
	contract    common.Address
	gasLimit    uint64
	nextBaseFee *big.Int

	nonce       uint64
	backrunData []byte

	frontrun *types.Transaction
	victim   *types.Transaction
	backrun  *types.Transaction
}

func (s *Searcher) buildBundle(swap *sandwich.PendingSwap, token, pair common.Address, plan *sandwich.Plan, nonce uint64, nextBaseFee *big.Int) (*bundle, error) {
	frontrunData, err := sandwich.FrontrunPayload(s.cfg.Weth, token, pair, plan)
	if err != nil {
		return nil, err
	}
	backrunData, err := sandwich.BackrunPayload(s.cfg.Weth, token, pair, plan)
	if err != nil {
		return nil, err
	}

	b := &bundle{
		chainID:     s.cfg.ChainID,
		contract:    s.cfg.SandwichContract,
		gasLimit:    s.cfg.GasLimit,
		nextBaseFee: nextBaseFee,
		nonce:       nonce,
		backrunData: backrunData,
		victim:      swap.Tx,
	}
	b.frontrun, err = s.signer.SignTx(b.legTx(nonce, frontrunData, new(big.Int)))
	if err != nil {
		return nil, err
	}
	b.backrun, err = s.signer.SignTx(b.legTx(nonce+1, backrunData, new(big.Int)))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// legTx pays exactly the next base fee plus tip, so the fee cap is never below the tip
func (b *bundle) legTx(nonce uint64, data []byte, tip *big.Int) *types.Transaction {
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: new(big.Int).Add(b.nextBaseFee, tip),
		Gas:       b.gasLimit,
		To:        &b.contract,
		Value:     new(big.Int),
		Data:      data,
	})
}

// setBribe re-signs the back-run with priorityFee as its tip
func (b *bundle) setBribe(signer TxSigner, priorityFee *big.Int) error {
	backrun, err := signer.SignTx(b.legTx(b.nonce+1, b.backrunData, priorityFee))
	if err != nil {
		return err
	}
	b.backrun = backrun
	return nil
}

func (b *bundle) rawTxs() ([]hexutil.Bytes, error) {
	txs := make([]hexutil.Bytes, 0, bundleLen)
	for _, tx := range []*types.Transaction{b.frontrun, b.victim, b.backrun} {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return nil, err
		}
		txs = append(txs, raw)
	}
	return txs, nil
}
