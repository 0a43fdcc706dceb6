// Package searcher runs the sandwich pipeline for a single pending transaction: classify the swap, size and
// simulate the sandwich, have a relay simulate the bundle, price the bribe and submit.
//
// Every opportunity is single shot. Expected rejections end the pipeline quietly, only node or relay failures are
// reported as errors.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/flashbots/univ2-sandwich/metrics"
	"github.com/flashbots/univ2-sandwich/relay"
	"github.com/flashbots/univ2-sandwich/sandwich"
	"github.com/flashbots/univ2-sandwich/univ2"
	"go.uber.org/zap"
)

const DefaultGasLimit = 250000

const bundleLen = 3

var storeTimeout = 2 * time.Second

type ChainBackend interface {
	sandwich.ChainReader
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction) (*types.Transaction, error)
}

type Relay interface {
	CallBundle(ctx context.Context, txs []hexutil.Bytes, targetBlock uint64) (*relay.CallBundleResponse, error)
	SendBundle(ctx context.Context, txs []hexutil.Bytes, targetBlock uint64) (*relay.SendReport, error)
}

type Store interface {
	InsertAttempt(ctx context.Context, attempt *Attempt) error
}

type Config struct {
	ChainID     *big.Int
	ChainConfig *params.ChainConfig

	Router           common.Address
	Weth             common.Address
	SandwichContract common.Address
	Pairs            univ2.PairDeriver

	// UpperBound is the largest front-run in WETH the searcher risks
	UpperBound *big.Int
	Tolerance  *big.Int
	GasLimit   uint64

	// RecheckBeforeSubmit looks up the victim receipt once more right before the bundle is sent
	RecheckBeforeSubmit bool
}

type Deps struct {
	Chain    ChainBackend
	Reserves univ2.ReserveFetcher
	Signer   TxSigner
	Relay    Relay
	// Store is optional
	Store Store
}

type Searcher struct {
	log        *zap.Logger
	cfg        Config
	classifier *sandwich.Classifier

	chain    ChainBackend
	reserves univ2.ReserveFetcher
	signer   TxSigner
	relay    Relay
	store    Store

	now func() time.Time
}

func New(log *zap.Logger, cfg Config, deps Deps) (*Searcher, error) {
	classifier, err := sandwich.NewClassifier(cfg.Router, cfg.Weth)
	if err != nil {
		return nil, err
	}
	if cfg.UpperBound == nil {
		cfg.UpperBound = sandwich.DefaultUpperBound
	}
	if cfg.Tolerance == nil {
		cfg.Tolerance = sandwich.DefaultTolerance
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.ChainConfig == nil {
		cfg.ChainConfig = params.MainnetChainConfig
	}

	return &Searcher{
		log:        log.Named("searcher"),
		cfg:        cfg,
		classifier: classifier,
		chain:      deps.Chain,
		reserves:   deps.Reserves,
		signer:     deps.Signer,
		relay:      deps.Relay,
		store:      deps.Store,
		now:        time.Now,
	}, nil
}

// Handle processes one transaction and never fails, errors and panics are logged with the transaction hash
func (s *Searcher) Handle(ctx context.Context, hash common.Hash) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncPanics()
			s.log.Error("Panic while processing transaction", zap.String("tx", hash.Hex()), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	err := s.Process(ctx, hash)
	if err != nil {
		s.log.Error("Failed to process transaction", zap.String("tx", hash.Hex()), zap.Error(err))
	}
}

// Process tries to sandwich the pending transaction hash. It returns nil when the transaction is not worth
// sandwiching or when the bundle was rejected by the simulation.
func (s *Searcher) Process(ctx context.Context, hash common.Hash) error {
	startAt := time.Now()
	defer func() {
		metrics.RecordProcessDuration(time.Since(startAt))
	}()
	log := s.log.With(zap.String("tx", hash.Hex()))

	swap, err := s.classifier.Classify(ctx, s.chain, hash, s.now())
	if err != nil {
		return s.reject(log, err)
	}
	token := swap.Token()
	pair := s.cfg.Pairs.Pair(s.cfg.Weth, token)
	log = log.With(zap.String("token", token.Hex()), zap.String("pair", pair.Hex()))

	userMinRecv, err := univ2.ExactWethTokenMinRecv(ctx, s.reserves, s.cfg.Pairs, swap.AmountOutMin, swap.Path)
	if err != nil {
		return s.reject(log, fmt.Errorf("min recv: %w", err))
	}
	reserveWeth, reserveToken, err := univ2.GetReserves(ctx, s.reserves, pair, s.cfg.Weth, token)
	if err != nil {
		return s.reject(log, fmt.Errorf("reserves: %w", err))
	}

	optimalIn := sandwich.CalcOptimalIn(swap.AmountIn, userMinRecv, reserveWeth, reserveToken, s.cfg.UpperBound, s.cfg.Tolerance)
	if optimalIn.Sign() <= 0 {
		return s.reject(log, sandwich.ErrNoOpportunity)
	}
	plan := sandwich.CalcSandwichState(optimalIn, swap.AmountIn, userMinRecv, reserveWeth, reserveToken)
	if plan == nil {
		return s.reject(log, sandwich.ErrVictimProtection)
	}

	head, err := s.chain.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("head: %w", err)
	}
	targetBlock := head.Number.Uint64() + 1
	nextBaseFee := sandwich.NextBaseFee(s.cfg.ChainConfig, head)
	nonce, err := s.chain.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	log = log.With(zap.Uint64("target_block", targetBlock))

	b, err := s.buildBundle(swap, token, pair, plan, nonce, nextBaseFee)
	if err != nil {
		return err
	}
	attempt := &Attempt{
		TxHash:      hash,
		TargetBlock: targetBlock,
		Token:       token,
		Pair:        pair,
		Plan:        plan,
		NextBaseFee: nextBaseFee,
	}

	txs, err := b.rawTxs()
	if err != nil {
		return err
	}
	sim, err := s.relay.CallBundle(ctx, txs, targetBlock)
	if err == nil {
		err = relay.CheckSimulation(sim, bundleLen)
	}
	if err != nil {
		metrics.IncSimulationFailed()
		log.Error("Bundle simulation failed", append(planFields(plan),
			zap.Error(err),
			zap.String("gwei_next_base_fee", formatUnits(nextBaseFee, "gwei")),
			zap.Strings("txs", hexTxs(txs)),
		)...)
		attempt.Status = AttemptSimulationFailed
		attempt.Error = err.Error()
		s.recordAttempt(log, attempt)
		return nil
	}
	attempt.FrontrunGasUsed = sim.Results[0].GasUsed
	attempt.BackrunGasUsed = sim.Results[2].GasUsed

	bribe, ok := sandwich.CalcBribe(plan.Revenue, attempt.FrontrunGasUsed, attempt.BackrunGasUsed, nextBaseFee)
	attempt.Bribe = bribe
	if !ok {
		metrics.IncUnprofitable()
		fields := append(planFields(plan), zap.String("gwei_next_base_fee", formatUnits(nextBaseFee, "gwei")))
		if bribe != nil {
			fields = append(fields, zap.String("gwei_priority_fee", formatUnits(bribe.PriorityFee, "gwei")))
		}
		log.Debug("Bundle is not profitable", fields...)
		attempt.Status = AttemptUnprofitable
		s.recordAttempt(log, attempt)
		return nil
	}

	if s.cfg.RecheckBeforeSubmit {
		receipt, err := s.chain.TransactionReceipt(ctx, hash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("receipt recheck: %w", err)
		}
		if receipt != nil {
			attempt.Status = AttemptVictimMined
			s.recordAttempt(log, attempt)
			return s.reject(log, sandwich.ErrTxMined)
		}
	}

	err = b.setBribe(s.signer, bribe.PriorityFee)
	if err != nil {
		return err
	}
	txs, err = b.rawTxs()
	if err != nil {
		return err
	}
	report, err := s.relay.SendBundle(ctx, txs, targetBlock)
	if err != nil {
		metrics.IncBundleSendFailed()
		attempt.Status = AttemptSendFailed
		attempt.Error = err.Error()
		s.recordAttempt(log, attempt)
		return fmt.Errorf("send bundle: %w", err)
	}
	metrics.IncBundlesSubmitted()
	attempt.Status = AttemptSubmitted
	attempt.BundleHash = report.BundleHash
	attempt.Relays = report.Accepted
	s.recordAttempt(log, attempt)

	log.Info("Submitted bundle", append(planFields(plan),
		zap.String("bundle", report.BundleHash.Hex()),
		zap.Strings("relays", report.Accepted),
		zap.Uint64("frontrun_gas_used", attempt.FrontrunGasUsed),
		zap.Uint64("backrun_gas_used", attempt.BackrunGasUsed),
		zap.String("eth_bribe", formatUnits(bribe.Amount, "eth")),
		zap.String("gwei_priority_fee", formatUnits(bribe.PriorityFee, "gwei")),
	)...)
	return nil
}

// reject ends the pipeline quietly for expected disqualifications and passes everything else through
func (s *Searcher) reject(log *zap.Logger, err error) error {
	reason, ok := rejectionReason(err)
	if !ok {
		return err
	}
	metrics.IncOpportunityRejected(reason)
	log.Debug("Skipping transaction", zap.String("reason", reason), zap.Error(err))
	return nil
}

func rejectionReason(err error) (string, bool) {
	switch {
	case errors.Is(err, sandwich.ErrTxMined):
		return "mined", true
	case errors.Is(err, sandwich.ErrTxNotFound):
		return "not_found", true
	case errors.Is(err, sandwich.ErrNotRouterTx):
		return "not_router", true
	case errors.Is(err, sandwich.ErrUnknownMethod):
		return "unknown_method", true
	case errors.Is(err, sandwich.ErrDeadlineElapsed):
		return "deadline", true
	case errors.Is(err, sandwich.ErrUnsupportedPath):
		return "unsupported_path", true
	case errors.Is(err, sandwich.ErrNoOpportunity):
		return "no_opportunity", true
	case errors.Is(err, sandwich.ErrVictimProtection):
		return "victim_protection", true
	case errors.Is(err, univ2.ErrNoPair):
		return "no_pair", true
	}
	return "", false
}

func (s *Searcher) recordAttempt(log *zap.Logger, attempt *Attempt) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	err := s.store.InsertAttempt(ctx, attempt)
	if err != nil {
		log.Warn("Failed to store sandwich attempt", zap.Error(err), zap.String("status", attempt.Status))
	}
}
