package relay

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidRelayConfig = errors.New("invalid relay config")
	ErrNoRelayAccepted    = errors.New("bundle was not accepted by any relay")
)

type RelaysConfig struct {
	// SimulationsPerSecond limits eth_callBundle calls, 0 means unlimited
	SimulationsPerSecond float64 `yaml:"simulationsPerSecond"`
	Relays               []struct {
		Name     string `yaml:"name"`
		URL      string `yaml:"url"`
		Simulate bool   `yaml:"simulate"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"relays"`
}

// LoadRelaysConfig parses relays config from a file. Exactly one enabled relay has to be marked for simulation,
// bundles are sent to all enabled relays.
func LoadRelaysConfig(log *zap.Logger, file string, authKey *ecdsa.PrivateKey) (*Backend, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var config RelaysConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	var (
		simulator *Client
		senders   []*Client
	)
	for _, r := range config.Relays {
		if r.Disabled {
			continue
		}
		if r.Name == "" || r.URL == "" {
			return nil, fmt.Errorf("%w: relay needs a name and an url", ErrInvalidRelayConfig)
		}
		client := NewClient(r.Name, r.URL, authKey)
		if r.Simulate {
			if simulator != nil {
				return nil, fmt.Errorf("%w: more than one simulation relay", ErrInvalidRelayConfig)
			}
			simulator = client
		}
		senders = append(senders, client)
	}
	if simulator == nil {
		return nil, fmt.Errorf("%w: no simulation relay", ErrInvalidRelayConfig)
	}

	limit := rate.Inf
	if config.SimulationsPerSecond > 0 {
		limit = rate.Limit(config.SimulationsPerSecond)
	}
	return NewBackend(log, simulator, senders, limit), nil
}

// Backend simulates bundles on one relay and submits them to all of them
type Backend struct {
	log       *zap.Logger
	simulator *Client
	senders   []*Client
	limiter   *rate.Limiter
}

func NewBackend(log *zap.Logger, simulator *Client, senders []*Client, simulationLimit rate.Limit) *Backend {
	return &Backend{
		log:       log.Named("relay"),
		simulator: simulator,
		senders:   senders,
		limiter:   rate.NewLimiter(simulationLimit, 1),
	}
}

// Relays returns the names of the relays bundles are sent to
func (b *Backend) Relays() []string {
	names := make([]string, len(b.senders))
	for i, s := range b.senders {
		names[i] = s.String()
	}
	return names
}

func (b *Backend) CallBundle(ctx context.Context, txs []hexutil.Bytes, targetBlock uint64) (*CallBundleResponse, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := b.simulator.CallBundle(ctx, txs, targetBlock)
	if err != nil {
		return nil, fmt.Errorf("eth_callBundle %s: %w", b.simulator, err)
	}
	return res, nil
}

type SendReport struct {
	BundleHash common.Hash
	Accepted   []string
}

// SendBundle sends the bundle to all relays in parallel and fails only if none of them accepted it
func (b *Backend) SendBundle(ctx context.Context, txs []hexutil.Bytes, targetBlock uint64) (*SendReport, error) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report SendReport
	)
	for _, sender := range b.senders {
		wg.Add(1)
		go func(sender *Client) {
			defer wg.Done()

			start := time.Now()
			res, err := sender.SendBundle(ctx, txs, targetBlock)
			b.log.Debug("Sent bundle to relay", zap.String("relay", sender.String()), zap.Duration("duration", time.Since(start)), zap.Error(err))
			if err != nil {
				b.log.Warn("Failed to send bundle to relay", zap.Error(err), zap.String("relay", sender.String()))
				return
			}

			mu.Lock()
			defer mu.Unlock()
			report.Accepted = append(report.Accepted, sender.String())
			if report.BundleHash == (common.Hash{}) {
				report.BundleHash = res.BundleHash
			}
		}(sender)
	}
	wg.Wait()

	if len(report.Accepted) == 0 {
		return nil, ErrNoRelayAccepted
	}
	return &report, nil
}
