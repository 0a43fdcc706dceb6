package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/flashbots/go-utils/cli"
	"github.com/flashbots/univ2-sandwich/adapters/redis"
	"github.com/flashbots/univ2-sandwich/mempool"
	"github.com/flashbots/univ2-sandwich/relay"
	"github.com/flashbots/univ2-sandwich/searcher"
	"github.com/flashbots/univ2-sandwich/txqueue"
	"github.com/flashbots/univ2-sandwich/univ2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

var (
	version = "dev" // is set during build process

	// Txqueue is configured using its own env variables, see `txqueue` package.
	// Keys are only read from the environment: PRIVATE_KEY funds the bundles, FLASHBOTS_AUTH_KEY signs relay requests.

	// Default values
	defaultDebug            = os.Getenv("DEBUG") == "1"
	defaultLogProd          = os.Getenv("LOG_PROD") == "1"
	defaultLogService       = os.Getenv("LOG_SERVICE")
	defaultMetricsPort      = cli.GetEnv("METRICS_PORT", "8088")
	defaultEthEndpoint      = cli.GetEnv("ETH_ENDPOINT", "ws://127.0.0.1:8546")
	defaultRedisEndpoint    = cli.GetEnv("REDIS_ENDPOINT", "redis://localhost:6379")
	defaultPostgresDSN      = cli.GetEnv("POSTGRES_DSN", "")
	defaultRelaysConfig     = cli.GetEnv("RELAYS_CONFIG", "relays.yaml")
	defaultRouter           = cli.GetEnv("ROUTER", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	defaultWeth             = cli.GetEnv("WETH", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	defaultFactory          = cli.GetEnv("FACTORY", univ2.MainnetFactory.Hex())
	defaultInitCodeHash     = cli.GetEnv("INIT_CODE_HASH", univ2.MainnetInitCodeHash.Hex())
	defaultSandwichContract = cli.GetEnv("SANDWICH_CONTRACT", "")
	defaultMaxFrontrunEth   = cli.GetEnv("MAX_FRONTRUN_ETH", "100")
	defaultTolerance        = cli.GetEnv("SEARCH_TOLERANCE", "10000000000000000")
	defaultGasLimit         = cli.GetEnv("GAS_LIMIT", strconv.Itoa(searcher.DefaultGasLimit))
	defaultWorkers          = cli.GetEnv("WORKERS", "8")
	defaultWorkersRateLimit = cli.GetEnv("WORKERS_RATE_LIMIT", "50")
	defaultReservesCacheTTL = cli.GetEnv("RESERVES_CACHE_TTL_MS", "1000")
	defaultSeenTTL          = cli.GetEnv("SEEN_TX_TTL_S", "60")
	defaultRecheck          = cli.GetEnv("RECHECK_BEFORE_SUBMIT", "1") == "1"

	// Flags
	debugPtr            = flag.Bool("debug", defaultDebug, "print debug output")
	logProdPtr          = flag.Bool("log-prod", defaultLogProd, "log in production mode (json)")
	logServicePtr       = flag.String("log-service", defaultLogService, "'service' tag to logs")
	metricsPortPtr      = flag.String("metrics-port", defaultMetricsPort, "port for metrics and pprof")
	ethPtr              = flag.String("eth", defaultEthEndpoint, "eth endpoint, has to support subscriptions (ws or ipc)")
	redisPtr            = flag.String("redis", defaultRedisEndpoint, "redis url string")
	postgresDSNPtr      = flag.String("postgres-dsn", defaultPostgresDSN, "postgres dsn, attempts are not stored if empty")
	relaysConfigPtr     = flag.String("relays-config", defaultRelaysConfig, "relays config file")
	routerPtr           = flag.String("router", defaultRouter, "monitored router address")
	wethPtr             = flag.String("weth", defaultWeth, "WETH address")
	factoryPtr          = flag.String("factory", defaultFactory, "pair factory address")
	initCodeHashPtr     = flag.String("init-code-hash", defaultInitCodeHash, "pair init code hash")
	sandwichContractPtr = flag.String("sandwich-contract", defaultSandwichContract, "sandwich execution contract address")
	maxFrontrunEthPtr   = flag.String("max-frontrun-eth", defaultMaxFrontrunEth, "largest front-run in ETH")
	tolerancePtr        = flag.String("search-tolerance", defaultTolerance, "search tolerance, 18 decimals fixed point (1e16 is 1%)")
	gasLimitPtr         = flag.String("gas-limit", defaultGasLimit, "gas limit of front-run and back-run")
	workersPtr          = flag.String("workers", defaultWorkers, "number of queue workers")
	workersRateLimitPtr = flag.String("workers-rate-limit", defaultWorkersRateLimit, "transactions processed per second")
	reservesCacheTTLPtr = flag.String("reserves-cache-ttl-ms", defaultReservesCacheTTL, "reserves cache ttl in milliseconds")
	seenTTLPtr          = flag.String("seen-tx-ttl-s", defaultSeenTTL, "how long a seen transaction hash is remembered in redis, in seconds")
	recheckPtr          = flag.Bool("recheck-before-submit", defaultRecheck, "check that the victim is still pending right before submitting")
)

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	if *logProdPtr {
		atom := zap.NewAtomicLevel()
		if *debugPtr {
			atom.SetLevel(zap.DebugLevel)
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		logger = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			atom,
		))
	}
	defer func() { _ = logger.Sync() }()
	if *logServicePtr != "" {
		logger = logger.With(zap.String("service", *logServicePtr))
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	logger.Info("Starting univ2-sandwich", zap.String("version", version))

	searcherKey, err := crypto.HexToECDSA(strings.TrimPrefix(os.Getenv("PRIVATE_KEY"), "0x"))
	if err != nil {
		logger.Fatal("Failed to parse PRIVATE_KEY", zap.Error(err))
	}
	authKey, err := crypto.HexToECDSA(strings.TrimPrefix(os.Getenv("FLASHBOTS_AUTH_KEY"), "0x"))
	if err != nil {
		logger.Fatal("Failed to parse FLASHBOTS_AUTH_KEY", zap.Error(err))
	}

	addresses := make(map[string]common.Address)
	for name, value := range map[string]string{
		"router": *routerPtr, "weth": *wethPtr, "factory": *factoryPtr, "sandwich-contract": *sandwichContractPtr,
	} {
		if !common.IsHexAddress(value) {
			logger.Fatal("Invalid address", zap.String("flag", name), zap.String("value", value))
		}
		addresses[name] = common.HexToAddress(value)
	}

	upperBound, err := parseEth(*maxFrontrunEthPtr)
	if err != nil {
		logger.Fatal("Failed to parse max front-run", zap.Error(err))
	}
	tolerance, ok := new(big.Int).SetString(*tolerancePtr, 10)
	if !ok || tolerance.Sign() < 0 {
		logger.Fatal("Failed to parse search tolerance", zap.String("value", *tolerancePtr))
	}
	gasLimit, err := strconv.ParseUint(*gasLimitPtr, 10, 64)
	if err != nil {
		logger.Fatal("Failed to parse gas limit", zap.Error(err))
	}
	var workers int
	if _, err := fmt.Sscanf(*workersPtr, "%d", &workers); err != nil {
		logger.Fatal("Failed to parse workers", zap.Error(err))
	}
	if workers < 1 {
		logger.Fatal("Workers must be greater than 0")
	}
	workersRateLimit, err := strconv.ParseFloat(*workersRateLimitPtr, 64)
	if err != nil {
		logger.Fatal("Failed to parse workers rate limit", zap.Error(err))
	}
	reservesCacheTTL, err := strconv.Atoi(*reservesCacheTTLPtr)
	if err != nil {
		logger.Fatal("Failed to parse reserves cache ttl", zap.Error(err))
	}
	seenTTL, err := strconv.Atoi(*seenTTLPtr)
	if err != nil {
		logger.Fatal("Failed to parse seen tx ttl", zap.Error(err))
	}

	rpcClient, err := rpc.DialContext(ctx, *ethPtr)
	if err != nil {
		logger.Fatal("Failed to connect to eth endpoint", zap.Error(err))
	}
	ethBackend := ethclient.NewClient(rpcClient)
	chainID, err := ethBackend.ChainID(ctx)
	if err != nil {
		logger.Fatal("Failed to get chain id", zap.Error(err))
	}

	relayBackend, err := relay.LoadRelaysConfig(logger, *relaysConfigPtr, authKey)
	if err != nil {
		logger.Fatal("Failed to load relays config", zap.Error(err))
	}

	redisOpts, err := goredis.ParseURL(*redisPtr)
	if err != nil {
		logger.Fatal("Failed to parse redis url", zap.Error(err))
	}
	redisClient := goredis.NewClient(redisOpts)

	var store searcher.Store
	if *postgresDSNPtr != "" {
		dbBackend, err := searcher.NewDBBackend(*postgresDSNPtr)
		if err != nil {
			logger.Fatal("Failed to create postgres backend", zap.Error(err))
		}
		defer dbBackend.Close()
		store = dbBackend
	}

	pairs := univ2.PairDeriver{Factory: addresses["factory"], InitCodeHash: common.HexToHash(*initCodeHashPtr)}
	reserves := univ2.NewReserveCache(univ2.NewPairCaller(ethBackend), time.Duration(reservesCacheTTL)*time.Millisecond)
	signer := searcher.NewKeySigner(searcherKey, chainID)

	s, err := searcher.New(logger, searcher.Config{
		ChainID:             chainID,
		ChainConfig:         chainConfig(logger, chainID),
		Router:              addresses["router"],
		Weth:                addresses["weth"],
		SandwichContract:    addresses["sandwich-contract"],
		Pairs:               pairs,
		UpperBound:          upperBound,
		Tolerance:           tolerance,
		GasLimit:            gasLimit,
		RecheckBeforeSubmit: *recheckPtr,
	}, searcher.Deps{
		Chain:    ethBackend,
		Reserves: reserves,
		Signer:   signer,
		Relay:    relayBackend,
		Store:    store,
	})
	if err != nil {
		logger.Fatal("Failed to create searcher", zap.Error(err))
	}
	logger.Info("Searcher configured",
		zap.String("searcher", signer.Address().Hex()),
		zap.String("chain_id", chainID.String()),
		zap.Strings("relays", relayBackend.Relays()),
		zap.Bool("store", store != nil),
	)

	txQueueConfig, err := txqueue.ConfigFromEnv()
	if err != nil {
		logger.Fatal("Failed to load txqueue config", zap.Error(err))
	}
	redisQueue := txqueue.NewRedisQueue(logger, redisClient, "univ2-sandwich", txQueueConfig)
	queue := searcher.NewQueue(logger, redisQueue, ethBackend, s, workers, rate.Limit(workersRateLimit))
	queueWg := queue.Start(ctx)

	seen := redis.NewSeenTxCache(redisClient, time.Duration(seenTTL)*time.Second, "univ2-sandwich-seen-")
	listener := mempool.NewListener(logger, mempool.NewGethSource(gethclient.New(rpcClient)), queue, seen)
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		if err := listener.Run(ctx); err != nil {
			logger.Error("Mempool listener stopped", zap.Error(err))
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	metricsMux.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))
	metricsMux.Handle("/debug/pprof/cmdline", http.HandlerFunc(pprof.Cmdline))
	metricsMux.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
	metricsMux.Handle("/debug/pprof/symbol", http.HandlerFunc(pprof.Symbol))
	metricsMux.Handle("/debug/pprof/trace", http.HandlerFunc(pprof.Trace))
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", *metricsPortPtr),
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           metricsMux,
	}
	go func() {
		err := metricsServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start metrics server", zap.Error(err))
		}
	}()

	notifier := make(chan os.Signal, 1)
	signal.Notify(notifier, os.Interrupt, syscall.SIGTERM)
	<-notifier
	logger.Info("Shutting down...")
	ctxCancel()
	if err := metricsServer.Shutdown(context.Background()); err != nil {
		logger.Error("Failed to shutdown metrics server", zap.Error(err))
	}

	<-listenerDone
	// wait for in-flight opportunities
	queueWg.Wait()
	rpcClient.Close()
}

// parseEth converts a decimal ETH amount to wei
func parseEth(value string) (*big.Int, error) {
	amount, ok := new(big.Rat).SetString(value)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("invalid eth amount %q", value)
	}
	amount.Mul(amount, new(big.Rat).SetInt64(params.Ether))
	if !amount.IsInt() {
		return nil, fmt.Errorf("eth amount %q has more than 18 decimals", value)
	}
	return amount.Num(), nil
}

func chainConfig(log *zap.Logger, chainID *big.Int) *params.ChainConfig {
	switch chainID.Uint64() {
	case params.MainnetChainConfig.ChainID.Uint64():
		return params.MainnetChainConfig
	case params.SepoliaChainConfig.ChainID.Uint64():
		return params.SepoliaChainConfig
	}
	log.Warn("Unknown chain, next base fee is computed with mainnet rules", zap.String("chain_id", chainID.String()))
	return params.MainnetChainConfig
}
