// Package swap implements the inbound and outbound swap accounting core:
// exposure caps, hourly rate limits, fee extraction, and the canonical
// mint/burn flow.
package swap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/ledger"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/swap"
	"github.com/OmniStable-Network/bridge_layer/internal/app/metrics"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

// TokenMover moves bridge assets and canonical supply on behalf of the
// engine.
type TokenMover interface {
	Balance(ctx context.Context, asset, holder common.Address) (*uint256.Int, error)
	Transfer(ctx context.Context, asset, from, to common.Address, amount *uint256.Int) error
	Mint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error
	Burn(ctx context.Context, caller, from common.Address, amount *uint256.Int) error
}

// EventPublisher broadcasts settled swaps to subscribers.
type EventPublisher interface {
	Publish(event string, payload any)
}

// Config wires the engine's dependencies. System is the account the engine
// acts as: it custodies pulled bridge assets and must hold the minter role.
type Config struct {
	Bridges    storage.BridgeStore
	Usage      storage.UsageStore
	ChainLimit storage.ChainLimitStore
	Exemptions storage.ExemptionStore
	Receipts   storage.ReceiptStore
	Tokens     TokenMover
	Events     EventPublisher
	System     common.Address
	Logger     *logger.Logger
}

// Engine executes swaps as serialized transitions against shared state.
type Engine struct {
	bridges    storage.BridgeStore
	usage      storage.UsageStore
	chainLimit storage.ChainLimitStore
	exemptions storage.ExemptionStore
	receipts   storage.ReceiptStore
	tokens     TokenMover
	events     EventPublisher
	system     common.Address
	log        *logger.Logger
	clock      func() time.Time

	// mu serializes swaps so every clamp decision sees settled ledger
	// state. Governance may still change limits between two swaps; each
	// call re-reads the current configuration.
	mu sync.Mutex
}

// New constructs a swap engine.
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("swap")
	}
	return &Engine{
		bridges:    cfg.Bridges,
		usage:      cfg.Usage,
		chainLimit: cfg.ChainLimit,
		exemptions: cfg.Exemptions,
		receipts:   cfg.Receipts,
		tokens:     cfg.Tokens,
		events:     cfg.Events,
		system:     cfg.System,
		log:        log,
		clock:      time.Now,
	}
}

// WithClock overrides the engine's time source.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	if clock != nil {
		e.clock = clock
	}
	return e
}

// System returns the account the engine custodies assets under.
func (e *Engine) System() common.Address {
	return e.system
}

// SwapIn pulls a bridge asset from the caller and mints canonical supply to
// the recipient. The request is clamped, never rejected, when it would
// breach the exposure cap or the bridge's hourly limit.
func (e *Engine) SwapIn(ctx context.Context, caller, tok common.Address, amount *uint256.Int, recipient common.Address) (swap.Receipt, error) {
	if recipient == (common.Address{}) {
		return swap.Receipt{}, fmt.Errorf("recipient must not be zero")
	}
	requested := uint256.NewInt(0)
	if amount != nil {
		requested.Set(amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.usableBridge(ctx, tok)
	if err != nil {
		return swap.Receipt{}, err
	}

	held, err := e.tokens.Balance(ctx, tok, e.system)
	if err != nil {
		return swap.Receipt{}, fmt.Errorf("read held balance: %w", err)
	}

	hour := ledger.HourIndex(e.clock())
	used, err := e.usage.BridgeUsage(ctx, tok, hour)
	if err != nil {
		return swap.Receipt{}, fmt.Errorf("read hourly usage: %w", err)
	}

	// Exposure clamp first, then the hourly clamp on the reduced amount.
	// Held balance above the cap (direct transfers into the vault) clamps
	// to zero instead of failing.
	accepted := new(uint256.Int).Set(requested)
	if bridge.Exceeds(held, accepted, cfg.Cap) {
		accepted = bridge.Headroom(cfg.Cap, held)
		metrics.RecordSwapClamp("exposure_cap")
	}
	if bridge.Exceeds(used, accepted, cfg.HourlyLimit) {
		accepted = bridge.Headroom(cfg.HourlyLimit, used)
		metrics.RecordSwapClamp("hourly_limit")
	}

	exempt, err := e.exemptions.IsFeeExempt(ctx, caller)
	if err != nil {
		return swap.Receipt{}, fmt.Errorf("read fee exemption: %w", err)
	}
	fee := uint256.NewInt(0)
	if !exempt {
		fee = bridge.FeeAmount(accepted, cfg.Fee)
	}
	realized := new(uint256.Int).Sub(accepted, fee)

	if !accepted.IsZero() {
		if err := e.tokens.Transfer(ctx, tok, caller, e.system, accepted); err != nil {
			metrics.RecordSwap("in", "rejected")
			return swap.Receipt{}, fmt.Errorf("pull %s of %s: %w: %w", accepted.Dec(), tok.Hex(), bridge.ErrTransferFailed, err)
		}
		if _, err := e.usage.AddBridgeUsage(ctx, tok, hour, accepted); err != nil {
			e.refund(ctx, tok, caller, accepted)
			return swap.Receipt{}, fmt.Errorf("record inbound usage: %w", err)
		}
		if !realized.IsZero() {
			if err := e.tokens.Mint(ctx, e.system, recipient, realized); err != nil {
				e.refund(ctx, tok, caller, accepted)
				return swap.Receipt{}, fmt.Errorf("mint canonical: %w", err)
			}
		}
	}

	receipt := e.writeReceipt(ctx, swap.Receipt{
		Direction: swap.DirectionIn,
		Token:     tok,
		Caller:    caller,
		Recipient: recipient,
		Requested: requested.Dec(),
		Accepted:  accepted.Dec(),
		Realized:  realized.Dec(),
		Fee:       fee.Dec(),
		Hour:      hour,
	})

	metrics.RecordSwap("in", "ok")
	e.publish("swap.in", receipt)
	e.log.WithField("token", tok.Hex()).Infof("swap in: requested %s accepted %s realized %s", requested.Dec(), accepted.Dec(), realized.Dec())
	return receipt, nil
}

// SwapOut burns canonical supply from the caller and releases the bridge
// asset to the recipient. Unlike SwapIn it never clamps: a request past the
// chain-wide hourly limit fails outright so the caller redeems exactly the
// amount they chose or nothing.
func (e *Engine) SwapOut(ctx context.Context, caller, tok common.Address, amount *uint256.Int, recipient common.Address) (swap.Receipt, error) {
	if recipient == (common.Address{}) {
		return swap.Receipt{}, fmt.Errorf("recipient must not be zero")
	}
	requested := uint256.NewInt(0)
	if amount != nil {
		requested.Set(amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.usableBridge(ctx, tok)
	if err != nil {
		return swap.Receipt{}, err
	}

	hour := ledger.HourIndex(e.clock())
	used, err := e.usage.ChainUsage(ctx, hour)
	if err != nil {
		return swap.Receipt{}, fmt.Errorf("read chain usage: %w", err)
	}
	limit, err := e.chainLimit.ChainHourlyLimit(ctx)
	if err != nil {
		return swap.Receipt{}, fmt.Errorf("read chain hourly limit: %w", err)
	}
	if bridge.Exceeds(used, requested, limit) {
		metrics.RecordSwap("out", "rejected")
		return swap.Receipt{}, fmt.Errorf("chain used %s request %s limit %s: %w",
			used.Dec(), requested.Dec(), limit.Dec(), bridge.ErrHourlyLimitExceeded)
	}

	exempt, err := e.exemptions.IsFeeExempt(ctx, caller)
	if err != nil {
		return swap.Receipt{}, fmt.Errorf("read fee exemption: %w", err)
	}
	fee := uint256.NewInt(0)
	if !exempt {
		fee = bridge.FeeAmount(requested, cfg.Fee)
	}
	realized := new(uint256.Int).Sub(requested, fee)

	if !requested.IsZero() {
		if err := e.tokens.Burn(ctx, e.system, caller, requested); err != nil {
			metrics.RecordSwap("out", "rejected")
			return swap.Receipt{}, err
		}
		if !realized.IsZero() {
			if err := e.tokens.Transfer(ctx, tok, e.system, recipient, realized); err != nil {
				e.remint(ctx, caller, requested)
				return swap.Receipt{}, fmt.Errorf("release %s of %s: %w: %w", realized.Dec(), tok.Hex(), bridge.ErrTransferFailed, err)
			}
		}
		if _, err := e.usage.AddChainUsage(ctx, hour, requested); err != nil {
			e.reclaim(ctx, tok, recipient, realized)
			e.remint(ctx, caller, requested)
			return swap.Receipt{}, fmt.Errorf("record outbound usage: %w", err)
		}
	}

	receipt := e.writeReceipt(ctx, swap.Receipt{
		Direction: swap.DirectionOut,
		Token:     tok,
		Caller:    caller,
		Recipient: recipient,
		Requested: requested.Dec(),
		Accepted:  requested.Dec(),
		Realized:  realized.Dec(),
		Fee:       fee.Dec(),
		Hour:      hour,
	})

	metrics.RecordSwap("out", "ok")
	e.publish("swap.out", receipt)
	e.log.WithField("token", tok.Hex()).Infof("swap out: requested %s realized %s", requested.Dec(), realized.Dec())
	return receipt, nil
}

// CurrentUsage returns the inbound volume recorded for a bridge in the
// current hour bucket. Unseen buckets read as zero.
func (e *Engine) CurrentUsage(ctx context.Context, tok common.Address) (*uint256.Int, error) {
	return e.usage.BridgeUsage(ctx, tok, ledger.HourIndex(e.clock()))
}

// CurrentTotalUsage returns the chain-wide outbound volume recorded in the
// current hour bucket.
func (e *Engine) CurrentTotalUsage(ctx context.Context) (*uint256.Int, error) {
	return e.usage.ChainUsage(ctx, ledger.HourIndex(e.clock()))
}

// UsageAt returns the inbound volume recorded for a bridge in an arbitrary
// hour bucket.
func (e *Engine) UsageAt(ctx context.Context, tok common.Address, hour int64) (*uint256.Int, error) {
	return e.usage.BridgeUsage(ctx, tok, hour)
}

// TotalUsageAt returns the chain-wide outbound volume recorded in an
// arbitrary hour bucket.
func (e *Engine) TotalUsageAt(ctx context.Context, hour int64) (*uint256.Int, error) {
	return e.usage.ChainUsage(ctx, hour)
}

// Held returns the vault's balance of a bridge asset.
func (e *Engine) Held(ctx context.Context, tok common.Address) (*uint256.Int, error) {
	return e.tokens.Balance(ctx, tok, e.system)
}

// Receipts returns the most recent swap receipts, optionally filtered by
// bridge token.
func (e *Engine) Receipts(ctx context.Context, tok common.Address, limit int) ([]swap.Receipt, error) {
	return e.receipts.ListSwapReceipts(ctx, tok, limit)
}

func (e *Engine) usableBridge(ctx context.Context, tok common.Address) (bridge.Config, error) {
	cfg, err := e.bridges.GetBridge(ctx, tok)
	if err != nil {
		return bridge.Config{}, fmt.Errorf("bridge %s: %w", tok.Hex(), bridge.ErrInvalidToken)
	}
	if !cfg.Usable() {
		return bridge.Config{}, fmt.Errorf("bridge %s is paused or disabled: %w", tok.Hex(), bridge.ErrInvalidToken)
	}
	return cfg, nil
}

// refund returns a pulled amount to the caller after a later step failed.
func (e *Engine) refund(ctx context.Context, tok, to common.Address, amount *uint256.Int) {
	if err := e.tokens.Transfer(ctx, tok, e.system, to, amount); err != nil {
		e.log.WithError(err).Errorf("refund of %s to %s failed", amount.Dec(), to.Hex())
	}
}

// reclaim pulls a released amount back into the vault after a later step
// failed.
func (e *Engine) reclaim(ctx context.Context, tok, from common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	if err := e.tokens.Transfer(ctx, tok, from, e.system, amount); err != nil {
		e.log.WithError(err).Errorf("reclaim of %s from %s failed", amount.Dec(), from.Hex())
	}
}

// remint restores burned canonical supply after a later step failed.
func (e *Engine) remint(ctx context.Context, to common.Address, amount *uint256.Int) {
	if err := e.tokens.Mint(ctx, e.system, to, amount); err != nil {
		e.log.WithError(err).Errorf("remint of %s to %s failed", amount.Dec(), to.Hex())
	}
}

func (e *Engine) writeReceipt(ctx context.Context, receipt swap.Receipt) swap.Receipt {
	if e.receipts == nil {
		return receipt
	}
	created, err := e.receipts.CreateSwapReceipt(ctx, receipt)
	if err != nil {
		e.log.WithError(err).Warn("swap receipt write failed")
		return receipt
	}
	return created
}

func (e *Engine) publish(event string, payload any) {
	if e.events == nil {
		return
	}
	e.events.Publish(event, payload)
}
