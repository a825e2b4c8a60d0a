// Package registry manages bridge configurations, chain-wide limits, and fee
// exemptions. Every mutation is gated on treasury roles and journaled.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/governance"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
	"github.com/OmniStable-Network/bridge_layer/internal/app/treasury"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

// EventPublisher broadcasts configuration changes to subscribers.
type EventPublisher interface {
	Publish(event string, payload any)
}

// Config wires the registry service's dependencies.
type Config struct {
	Bridges    storage.BridgeStore
	Exemptions storage.ExemptionStore
	ChainLimit storage.ChainLimitStore
	Balances   storage.BalanceStore
	Audit      storage.AuditStore
	Treasury   treasury.Treasury
	Vault      common.Address
	Events     EventPublisher
	Logger     *logger.Logger
}

// Service applies governance mutations to the bridge registry.
type Service struct {
	bridges    storage.BridgeStore
	exemptions storage.ExemptionStore
	chainLimit storage.ChainLimitStore
	balances   storage.BalanceStore
	audit      storage.AuditStore
	treasury   treasury.Treasury
	vault      common.Address
	events     EventPublisher
	log        *logger.Logger

	// mu serializes mutations so check-then-write sequences observe a
	// consistent registry.
	mu sync.Mutex
}

// New constructs a registry service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Service{
		bridges:    cfg.Bridges,
		exemptions: cfg.Exemptions,
		chainLimit: cfg.ChainLimit,
		balances:   cfg.Balances,
		audit:      cfg.Audit,
		treasury:   cfg.Treasury,
		vault:      cfg.Vault,
		events:     cfg.Events,
		log:        log,
	}
}

// Register adds a bridge token configuration. Governor only.
func (s *Service) Register(ctx context.Context, caller common.Address, cfg bridge.Config) (bridge.Config, error) {
	if err := s.requireGovernor(ctx, caller); err != nil {
		return bridge.Config{}, err
	}
	if bridge.IsNullToken(cfg.Token) {
		return bridge.Config{}, fmt.Errorf("null bridge token: %w", bridge.ErrInvalidBridge)
	}
	if !bridge.ValidFee(cfg.Fee) {
		return bridge.Config{}, fmt.Errorf("fee %d exceeds base: %w", cfg.Fee, bridge.ErrFeeTooHigh)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.bridges.GetBridge(ctx, cfg.Token); err == nil {
		return bridge.Config{}, fmt.Errorf("bridge %s already registered: %w", cfg.Token.Hex(), bridge.ErrInvalidBridge)
	}

	cfg.Allowed = true
	if cfg.Cap == nil {
		cfg.Cap = uint256.NewInt(0)
	}
	if cfg.HourlyLimit == nil {
		cfg.HourlyLimit = uint256.NewInt(0)
	}

	created, err := s.bridges.CreateBridge(ctx, cfg)
	if err != nil {
		return bridge.Config{}, err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernor, "bridge.register", created.Token.Hex(),
		fmt.Sprintf("cap=%s hourly_limit=%s fee=%d paused=%t", created.Cap.Dec(), created.HourlyLimit.Dec(), created.Fee, created.Paused))
	s.publish("bridge.registered", map[string]any{
		"token":        created.Token.Hex(),
		"cap":          created.Cap.Dec(),
		"hourly_limit": created.HourlyLimit.Dec(),
		"fee":          created.Fee,
		"paused":       created.Paused,
	})
	s.log.Infof("bridge %s registered", created.Token.Hex())
	return created, nil
}

// Deregister removes a bridge token configuration. Governor only. Fails
// while the vault still holds any of the bridge asset.
func (s *Service) Deregister(ctx context.Context, caller, tok common.Address) error {
	if err := s.requireGovernor(ctx, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getBridge(ctx, tok); err != nil {
		return err
	}

	held, err := s.balances.AssetBalance(ctx, tok, s.vault)
	if err != nil {
		return fmt.Errorf("read held balance: %w", err)
	}
	if !held.IsZero() {
		return fmt.Errorf("bridge %s holds %s: %w", tok.Hex(), held.Dec(), bridge.ErrExposureOutstanding)
	}

	if err := s.bridges.DeleteBridge(ctx, tok); err != nil {
		return err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernor, "bridge.deregister", tok.Hex(), "")
	s.publish("bridge.deregistered", map[string]any{"token": tok.Hex()})
	s.log.Infof("bridge %s deregistered", tok.Hex())
	return nil
}

// SetCap updates a bridge's exposure ceiling. Governor or guardian.
func (s *Service) SetCap(ctx context.Context, caller, tok common.Address, cap *uint256.Int) (bridge.Config, error) {
	if err := s.requireGovernorOrGuardian(ctx, caller); err != nil {
		return bridge.Config{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.getBridge(ctx, tok)
	if err != nil {
		return bridge.Config{}, err
	}
	if cap == nil {
		cap = uint256.NewInt(0)
	}
	cfg.Cap = cap

	updated, err := s.bridges.UpdateBridge(ctx, cfg)
	if err != nil {
		return bridge.Config{}, err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernorOrGuardian, "bridge.set_cap", tok.Hex(), updated.Cap.Dec())
	s.publish("bridge.cap_updated", map[string]any{"token": tok.Hex(), "cap": updated.Cap.Dec()})
	return updated, nil
}

// SetHourlyLimit updates a bridge's inbound hourly limit. Governor or
// guardian.
func (s *Service) SetHourlyLimit(ctx context.Context, caller, tok common.Address, limit *uint256.Int) (bridge.Config, error) {
	if err := s.requireGovernorOrGuardian(ctx, caller); err != nil {
		return bridge.Config{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.getBridge(ctx, tok)
	if err != nil {
		return bridge.Config{}, err
	}
	if limit == nil {
		limit = uint256.NewInt(0)
	}
	cfg.HourlyLimit = limit

	updated, err := s.bridges.UpdateBridge(ctx, cfg)
	if err != nil {
		return bridge.Config{}, err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernorOrGuardian, "bridge.set_hourly_limit", tok.Hex(), updated.HourlyLimit.Dec())
	s.publish("bridge.hourly_limit_updated", map[string]any{"token": tok.Hex(), "hourly_limit": updated.HourlyLimit.Dec()})
	return updated, nil
}

// SetFee updates a bridge's swap fee. Governor or guardian.
func (s *Service) SetFee(ctx context.Context, caller, tok common.Address, fee uint64) (bridge.Config, error) {
	if err := s.requireGovernorOrGuardian(ctx, caller); err != nil {
		return bridge.Config{}, err
	}
	if !bridge.ValidFee(fee) {
		return bridge.Config{}, fmt.Errorf("fee %d exceeds base: %w", fee, bridge.ErrFeeTooHigh)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.getBridge(ctx, tok)
	if err != nil {
		return bridge.Config{}, err
	}
	cfg.Fee = fee

	updated, err := s.bridges.UpdateBridge(ctx, cfg)
	if err != nil {
		return bridge.Config{}, err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernorOrGuardian, "bridge.set_fee", tok.Hex(), fmt.Sprintf("%d", fee))
	s.publish("bridge.fee_updated", map[string]any{"token": tok.Hex(), "fee": fee})
	return updated, nil
}

// TogglePaused flips a bridge's paused flag and returns the new state.
// Governor or guardian.
func (s *Service) TogglePaused(ctx context.Context, caller, tok common.Address) (bool, error) {
	if err := s.requireGovernorOrGuardian(ctx, caller); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.getBridge(ctx, tok)
	if err != nil {
		return false, err
	}
	cfg.Paused = !cfg.Paused

	updated, err := s.bridges.UpdateBridge(ctx, cfg)
	if err != nil {
		return false, err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernorOrGuardian, "bridge.toggle_paused", tok.Hex(), fmt.Sprintf("%t", updated.Paused))
	s.publish("bridge.pause_toggled", map[string]any{"token": tok.Hex(), "paused": updated.Paused})
	s.log.Infof("bridge %s paused=%t", tok.Hex(), updated.Paused)
	return updated.Paused, nil
}

// SetChainHourlyLimit updates the chain-wide outbound hourly limit.
// Governor or guardian.
func (s *Service) SetChainHourlyLimit(ctx context.Context, caller common.Address, limit *uint256.Int) error {
	if err := s.requireGovernorOrGuardian(ctx, caller); err != nil {
		return err
	}
	if limit == nil {
		limit = uint256.NewInt(0)
	}

	if err := s.chainLimit.SetChainHourlyLimit(ctx, limit); err != nil {
		return err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernorOrGuardian, "chain.set_hourly_limit", "", limit.Dec())
	s.publish("chain.hourly_limit_updated", map[string]any{"hourly_limit": limit.Dec()})
	s.log.Infof("chain hourly limit set to %s", limit.Dec())
	return nil
}

// ChainHourlyLimit returns the chain-wide outbound hourly limit.
func (s *Service) ChainHourlyLimit(ctx context.Context) (*uint256.Int, error) {
	return s.chainLimit.ChainHourlyLimit(ctx)
}

// ToggleFeeExemption flips an address's fee exemption and returns the new
// state. Governor or guardian.
func (s *Service) ToggleFeeExemption(ctx context.Context, caller, addr common.Address) (bool, error) {
	if err := s.requireGovernorOrGuardian(ctx, caller); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exempt, err := s.exemptions.IsFeeExempt(ctx, addr)
	if err != nil {
		return false, err
	}
	if err := s.exemptions.SetFeeExemption(ctx, addr, !exempt); err != nil {
		return false, err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernorOrGuardian, "fees.toggle_exemption", addr.Hex(), fmt.Sprintf("%t", !exempt))
	s.publish("fees.exemption_updated", map[string]any{"address": addr.Hex(), "exempt": !exempt})
	return !exempt, nil
}

// FeeExemptions lists every exempt address.
func (s *Service) FeeExemptions(ctx context.Context) ([]common.Address, error) {
	return s.exemptions.ListFeeExemptions(ctx)
}

// RecoverAsset moves assets out of the vault. Governor only. It exists for
// recovering tokens sent to the system outside the swap flow.
func (s *Service) RecoverAsset(ctx context.Context, caller, asset, to common.Address, amount *uint256.Int) error {
	if err := s.requireGovernor(ctx, caller); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("recover amount must be positive")
	}

	if _, err := s.balances.DebitAsset(ctx, asset, s.vault, amount); err != nil {
		return err
	}
	if _, err := s.balances.CreditAsset(ctx, asset, to, amount); err != nil {
		if _, undoErr := s.balances.CreditAsset(ctx, asset, s.vault, amount); undoErr != nil {
			s.log.WithError(undoErr).Errorf("refund of %s to vault failed after credit error", amount.Dec())
		}
		return err
	}

	s.recordAudit(ctx, caller, governance.RoleGovernor, "asset.recover", asset.Hex(),
		fmt.Sprintf("to=%s amount=%s", to.Hex(), amount.Dec()))
	s.publish("asset.recovered", map[string]any{"asset": asset.Hex(), "to": to.Hex(), "amount": amount.Dec()})
	s.log.Infof("recovered %s of %s to %s", amount.Dec(), asset.Hex(), to.Hex())
	return nil
}

// Bridge returns a single bridge configuration.
func (s *Service) Bridge(ctx context.Context, tok common.Address) (bridge.Config, error) {
	return s.getBridge(ctx, tok)
}

// Bridges returns every registered bridge configuration in enumeration
// order.
func (s *Service) Bridges(ctx context.Context) ([]bridge.Config, error) {
	return s.bridges.ListBridges(ctx)
}

// BridgeTokens returns the registered bridge token identifiers in
// enumeration order.
func (s *Service) BridgeTokens(ctx context.Context) ([]common.Address, error) {
	return s.bridges.ListBridgeTokens(ctx)
}

// AuditTrail returns the most recent governance audit entries.
func (s *Service) AuditTrail(ctx context.Context, limit int) ([]governance.AuditEntry, error) {
	return s.audit.ListAudit(ctx, limit)
}

func (s *Service) getBridge(ctx context.Context, tok common.Address) (bridge.Config, error) {
	cfg, err := s.bridges.GetBridge(ctx, tok)
	if err != nil {
		return bridge.Config{}, fmt.Errorf("bridge %s: %w", tok.Hex(), bridge.ErrUnknownBridge)
	}
	return cfg, nil
}

func (s *Service) requireGovernor(ctx context.Context, caller common.Address) error {
	ok, err := s.treasury.IsGovernor(ctx, caller)
	if err != nil {
		return fmt.Errorf("resolve governor role: %w", err)
	}
	if !ok {
		return fmt.Errorf("account %s: %w", caller.Hex(), bridge.ErrNotAuthorized)
	}
	return nil
}

func (s *Service) requireGovernorOrGuardian(ctx context.Context, caller common.Address) error {
	ok, err := s.treasury.IsGovernorOrGuardian(ctx, caller)
	if err != nil {
		return fmt.Errorf("resolve guardian role: %w", err)
	}
	if !ok {
		return fmt.Errorf("account %s: %w", caller.Hex(), bridge.ErrNotAuthorized)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, caller common.Address, role governance.Role, action, target, detail string) {
	if s.audit == nil {
		return
	}
	entry := governance.AuditEntry{Caller: caller, Role: role, Action: action, Target: target, Detail: detail}
	if _, err := s.audit.AppendAudit(ctx, entry); err != nil {
		s.log.WithError(err).Warnf("audit append for %s failed", action)
	}
}

func (s *Service) publish(event string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(event, payload)
}
