// Package monitor keeps the Prometheus gauges for bridge usage, custodied
// balances and canonical supply current, and optionally prunes aged usage
// buckets. It runs on cron schedules and stores nothing itself.
package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/robfig/cron/v3"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/ledger"
	"github.com/OmniStable-Network/bridge_layer/internal/app/metrics"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

const (
	defaultRefreshSpec   = "@every 15s"
	defaultRetentionSpec = "@hourly"
)

// Config wires the monitor's stores and schedules. Retention of zero disables
// the usage sweeper entirely; buckets then accumulate forever, which is the
// default.
type Config struct {
	Bridges  storage.BridgeStore
	Usage    storage.UsageStore
	Balances storage.BalanceStore
	Supply   storage.SupplyStore

	// Vault is the account custodying bridge assets; held gauges read its
	// balances.
	Vault common.Address

	// RefreshSpec is the cron schedule for gauge refresh.
	RefreshSpec string
	// RetentionSpec is the cron schedule for the usage sweep.
	RetentionSpec string
	// Retention is how long usage buckets are kept once sweeping is enabled.
	Retention time.Duration

	Logger *logger.Logger
}

// Service periodically refreshes metrics gauges and sweeps aged usage.
type Service struct {
	cfg  Config
	log  *logger.Logger
	cron *cron.Cron

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	// known tracks tokens gauged on the previous refresh so deregistered
	// bridges get their series dropped instead of going stale.
	known map[common.Address]struct{}
}

// New constructs the monitor. Schedules fall back to their defaults when
// unset.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("monitor")
	}
	if cfg.RefreshSpec == "" {
		cfg.RefreshSpec = defaultRefreshSpec
	}
	if cfg.RetentionSpec == "" {
		cfg.RetentionSpec = defaultRetentionSpec
	}
	return &Service{
		cfg:   cfg,
		log:   log,
		known: make(map[common.Address]struct{}),
	}
}

// Name implements system.Service.
func (s *Service) Name() string { return "monitor" }

// Start schedules the refresh and sweep jobs and runs one refresh
// immediately so gauges are populated before the first tick.
func (s *Service) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("monitor already running")
	}
	if s.cfg.Bridges == nil || s.cfg.Usage == nil || s.cfg.Balances == nil || s.cfg.Supply == nil {
		return fmt.Errorf("monitor stores are not configured")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := cron.New()

	if _, err := c.AddFunc(s.cfg.RefreshSpec, func() { s.refresh(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule refresh %q: %w", s.cfg.RefreshSpec, err)
	}
	if s.cfg.Retention > 0 {
		if _, err := c.AddFunc(s.cfg.RetentionSpec, func() { s.sweep(runCtx) }); err != nil {
			cancel()
			return fmt.Errorf("schedule sweep %q: %w", s.cfg.RetentionSpec, err)
		}
		s.log.Infof("usage retention enabled: keeping %s of buckets", s.cfg.Retention)
	}

	s.cron = c
	s.cancel = cancel
	s.running = true
	c.Start()

	go s.refresh(runCtx)
	s.log.Infof("monitor started, refreshing %s", s.cfg.RefreshSpec)
	return nil
}

// Stop halts the schedules and waits for in-flight jobs to finish or the
// context to expire.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	c := s.cron
	s.mu.Unlock()

	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return fmt.Errorf("monitor shutdown: %w", ctx.Err())
	}
	s.log.Info("monitor stopped")
	return nil
}

// Refresh runs one gauge refresh on demand, outside the schedule.
func (s *Service) Refresh(ctx context.Context) {
	s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	hour := ledger.HourIndex(time.Now())

	tokens, err := s.cfg.Bridges.ListBridgeTokens(ctx)
	if err != nil {
		s.log.WithError(err).Warn("gauge refresh: list bridges")
		return
	}

	current := make(map[common.Address]struct{}, len(tokens))
	for _, tok := range tokens {
		current[tok] = struct{}{}

		used, err := s.cfg.Usage.BridgeUsage(ctx, tok, hour)
		if err != nil {
			s.log.WithError(err).Warnf("gauge refresh: usage for %s", tok.Hex())
			continue
		}
		held, err := s.cfg.Balances.AssetBalance(ctx, tok, s.cfg.Vault)
		if err != nil {
			s.log.WithError(err).Warnf("gauge refresh: held balance for %s", tok.Hex())
			continue
		}
		metrics.SetBridgeUsage(tok.Hex(), gauge(used))
		metrics.SetBridgeHeld(tok.Hex(), gauge(held))
	}

	s.mu.Lock()
	for tok := range s.known {
		if _, ok := current[tok]; !ok {
			metrics.DropBridge(tok.Hex())
		}
	}
	s.known = current
	s.mu.Unlock()

	if chainUsed, err := s.cfg.Usage.ChainUsage(ctx, hour); err != nil {
		s.log.WithError(err).Warn("gauge refresh: chain usage")
	} else {
		metrics.SetChainUsage(gauge(chainUsed))
	}
	if supply, err := s.cfg.Supply.CanonicalSupply(ctx); err != nil {
		s.log.WithError(err).Warn("gauge refresh: canonical supply")
	} else {
		metrics.SetCanonicalSupply(gauge(supply))
	}
}

func (s *Service) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cutoff := ledger.HourIndex(time.Now().Add(-s.cfg.Retention))
	removed, err := s.cfg.Usage.PruneUsageBefore(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Warn("usage sweep failed")
		return
	}
	if removed > 0 {
		s.log.Infof("usage sweep removed %d buckets older than hour %d", removed, cutoff)
	}
}

// gauge converts a ledger amount to a float for Prometheus. Amounts above
// 2^53 lose precision, which is acceptable for trend gauges.
func gauge(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
