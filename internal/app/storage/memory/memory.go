package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/gateway"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/governance"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/swap"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/token"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
)

type usageKey struct {
	token common.Address
	hour  int64
}

type balanceKey struct {
	asset  common.Address
	holder common.Address
}

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is the default backend for tests and local
// development.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	bridges    map[common.Address]bridge.Config
	bridgeList []common.Address

	bridgeUsage map[usageKey]*uint256.Int
	chainUsage  map[int64]*uint256.Int
	chainLimit  *uint256.Int

	exemptions map[common.Address]struct{}

	assetBalances map[balanceKey]*uint256.Int

	canonical       map[common.Address]*uint256.Int
	canonicalSupply *uint256.Int
	minters         map[common.Address]struct{}

	swapReceipts    []swap.Receipt
	gatewayReceipts []gateway.Receipt
	gatewayDigests  map[common.Hash]struct{}

	audit []governance.AuditEntry
}

var _ storage.BridgeStore = (*Store)(nil)
var _ storage.UsageStore = (*Store)(nil)
var _ storage.ChainLimitStore = (*Store)(nil)
var _ storage.ExemptionStore = (*Store)(nil)
var _ storage.BalanceStore = (*Store)(nil)
var _ storage.SupplyStore = (*Store)(nil)
var _ storage.ReceiptStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:          1,
		bridges:         make(map[common.Address]bridge.Config),
		bridgeUsage:     make(map[usageKey]*uint256.Int),
		chainUsage:      make(map[int64]*uint256.Int),
		chainLimit:      uint256.NewInt(0),
		exemptions:      make(map[common.Address]struct{}),
		assetBalances:   make(map[balanceKey]*uint256.Int),
		canonical:       make(map[common.Address]*uint256.Int),
		canonicalSupply: uint256.NewInt(0),
		minters:         make(map[common.Address]struct{}),
		gatewayDigests:  make(map[common.Hash]struct{}),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(v)
}

// BridgeStore implementation --------------------------------------------------

func (s *Store) CreateBridge(_ context.Context, cfg bridge.Config) (bridge.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bridges[cfg.Token]; exists {
		return bridge.Config{}, fmt.Errorf("bridge %s already registered", cfg.Token.Hex())
	}

	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	stored := cfg.Clone()

	s.bridges[cfg.Token] = stored
	s.bridgeList = append(s.bridgeList, cfg.Token)
	return stored.Clone(), nil
}

func (s *Store) UpdateBridge(_ context.Context, cfg bridge.Config) (bridge.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.bridges[cfg.Token]
	if !exists {
		return bridge.Config{}, fmt.Errorf("bridge %s: %w", cfg.Token.Hex(), storage.ErrNotFound)
	}

	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now().UTC()
	stored := cfg.Clone()

	s.bridges[cfg.Token] = stored
	return stored.Clone(), nil
}

func (s *Store) GetBridge(_ context.Context, tok common.Address) (bridge.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.bridges[tok]
	if !exists {
		return bridge.Config{}, fmt.Errorf("bridge %s: %w", tok.Hex(), storage.ErrNotFound)
	}
	return cfg.Clone(), nil
}

// DeleteBridge removes the config and splices the enumeration list by moving
// the last entry into the vacated slot. Enumeration order is not preserved.
func (s *Store) DeleteBridge(_ context.Context, tok common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bridges[tok]; !exists {
		return fmt.Errorf("bridge %s: %w", tok.Hex(), storage.ErrNotFound)
	}
	delete(s.bridges, tok)

	for i, candidate := range s.bridgeList {
		if candidate == tok {
			last := len(s.bridgeList) - 1
			s.bridgeList[i] = s.bridgeList[last]
			s.bridgeList = s.bridgeList[:last]
			break
		}
	}
	return nil
}

func (s *Store) ListBridges(_ context.Context) ([]bridge.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bridge.Config, 0, len(s.bridgeList))
	for _, tok := range s.bridgeList {
		if cfg, exists := s.bridges[tok]; exists {
			out = append(out, cfg.Clone())
		}
	}
	return out, nil
}

func (s *Store) ListBridgeTokens(_ context.Context) ([]common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Address, len(s.bridgeList))
	copy(out, s.bridgeList)
	return out, nil
}

// UsageStore implementation ---------------------------------------------------

func (s *Store) AddBridgeUsage(_ context.Context, tok common.Address, hour int64, amount *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{token: tok, hour: hour}
	total, exists := s.bridgeUsage[key]
	if !exists {
		total = uint256.NewInt(0)
		s.bridgeUsage[key] = total
	}
	total.Add(total, amount)
	return cloneAmount(total), nil
}

func (s *Store) BridgeUsage(_ context.Context, tok common.Address, hour int64) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAmount(s.bridgeUsage[usageKey{token: tok, hour: hour}]), nil
}

func (s *Store) AddChainUsage(_ context.Context, hour int64, amount *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, exists := s.chainUsage[hour]
	if !exists {
		total = uint256.NewInt(0)
		s.chainUsage[hour] = total
	}
	total.Add(total, amount)
	return cloneAmount(total), nil
}

func (s *Store) ChainUsage(_ context.Context, hour int64) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAmount(s.chainUsage[hour]), nil
}

func (s *Store) PruneUsageBefore(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key := range s.bridgeUsage {
		if key.hour < cutoff {
			delete(s.bridgeUsage, key)
			removed++
		}
	}
	for hour := range s.chainUsage {
		if hour < cutoff {
			delete(s.chainUsage, hour)
			removed++
		}
	}
	return removed, nil
}

// ChainLimitStore implementation ----------------------------------------------

func (s *Store) ChainHourlyLimit(_ context.Context) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAmount(s.chainLimit), nil
}

func (s *Store) SetChainHourlyLimit(_ context.Context, limit *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chainLimit = cloneAmount(limit)
	return nil
}

// ExemptionStore implementation -----------------------------------------------

func (s *Store) SetFeeExemption(_ context.Context, addr common.Address, exempt bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exempt {
		s.exemptions[addr] = struct{}{}
	} else {
		delete(s.exemptions, addr)
	}
	return nil
}

func (s *Store) IsFeeExempt(_ context.Context, addr common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exempt := s.exemptions[addr]
	return exempt, nil
}

func (s *Store) ListFeeExemptions(_ context.Context) ([]common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Address, 0, len(s.exemptions))
	for addr := range s.exemptions {
		out = append(out, addr)
	}
	return out, nil
}

// BalanceStore implementation -------------------------------------------------

func (s *Store) AssetBalance(_ context.Context, asset, holder common.Address) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAmount(s.assetBalances[balanceKey{asset: asset, holder: holder}]), nil
}

func (s *Store) CreditAsset(_ context.Context, asset, holder common.Address, amount *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{asset: asset, holder: holder}
	bal, exists := s.assetBalances[key]
	if !exists {
		bal = uint256.NewInt(0)
		s.assetBalances[key] = bal
	}
	bal.Add(bal, amount)
	return cloneAmount(bal), nil
}

func (s *Store) DebitAsset(_ context.Context, asset, holder common.Address, amount *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey{asset: asset, holder: holder}
	bal, exists := s.assetBalances[key]
	if !exists || bal.Lt(amount) {
		return nil, fmt.Errorf("asset %s holder %s: %w", asset.Hex(), holder.Hex(), token.ErrInsufficientBalance)
	}
	bal.Sub(bal, amount)
	return cloneAmount(bal), nil
}

// SupplyStore implementation --------------------------------------------------

func (s *Store) CanonicalBalance(_ context.Context, holder common.Address) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAmount(s.canonical[holder]), nil
}

func (s *Store) CanonicalSupply(_ context.Context) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAmount(s.canonicalSupply), nil
}

func (s *Store) MintCanonical(_ context.Context, to common.Address, amount *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal, exists := s.canonical[to]
	if !exists {
		bal = uint256.NewInt(0)
		s.canonical[to] = bal
	}
	bal.Add(bal, amount)
	s.canonicalSupply.Add(s.canonicalSupply, amount)
	return cloneAmount(bal), nil
}

func (s *Store) BurnCanonical(_ context.Context, from common.Address, amount *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal, exists := s.canonical[from]
	if !exists || bal.Lt(amount) {
		return nil, fmt.Errorf("holder %s: %w", from.Hex(), token.ErrInsufficientBalance)
	}
	bal.Sub(bal, amount)
	s.canonicalSupply.Sub(s.canonicalSupply, amount)
	return cloneAmount(bal), nil
}

func (s *Store) AddMinter(_ context.Context, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.minters[addr] = struct{}{}
	return nil
}

func (s *Store) RemoveMinter(_ context.Context, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.minters, addr)
	return nil
}

func (s *Store) IsMinter(_ context.Context, addr common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.minters[addr]
	return ok, nil
}

func (s *Store) ListMinters(_ context.Context) ([]common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Address, 0, len(s.minters))
	for addr := range s.minters {
		out = append(out, addr)
	}
	return out, nil
}

// ReceiptStore implementation -------------------------------------------------

func (s *Store) CreateSwapReceipt(_ context.Context, rcpt swap.Receipt) (swap.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rcpt.ID == "" {
		rcpt.ID = s.nextIDLocked()
	}
	if rcpt.CreatedAt.IsZero() {
		rcpt.CreatedAt = time.Now().UTC()
	}
	s.swapReceipts = append(s.swapReceipts, rcpt)
	return rcpt, nil
}

// ListSwapReceipts returns receipts newest first. A zero token matches every
// bridge; limit <= 0 returns all matches.
func (s *Store) ListSwapReceipts(_ context.Context, tok common.Address, limit int) ([]swap.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []swap.Receipt
	for i := len(s.swapReceipts) - 1; i >= 0; i-- {
		rcpt := s.swapReceipts[i]
		if !bridge.IsNullToken(tok) && rcpt.Token != tok {
			continue
		}
		out = append(out, rcpt)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateGatewayReceipt(_ context.Context, rcpt gateway.Receipt) (gateway.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rcpt.Operation == gateway.OperationDeposit {
		if _, seen := s.gatewayDigests[rcpt.Digest]; seen {
			return gateway.Receipt{}, fmt.Errorf("digest %s: %w", rcpt.Digest.Hex(), gateway.ErrDuplicateDeposit)
		}
		s.gatewayDigests[rcpt.Digest] = struct{}{}
	}

	if rcpt.ID == "" {
		rcpt.ID = s.nextIDLocked()
	}
	if rcpt.CreatedAt.IsZero() {
		rcpt.CreatedAt = time.Now().UTC()
	}
	s.gatewayReceipts = append(s.gatewayReceipts, rcpt)
	return rcpt, nil
}

func (s *Store) ListGatewayReceipts(_ context.Context, limit int) ([]gateway.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []gateway.Receipt
	for i := len(s.gatewayReceipts) - 1; i >= 0; i-- {
		out = append(out, s.gatewayReceipts[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// AuditStore implementation ---------------------------------------------------

func (s *Store) AppendAudit(_ context.Context, entry governance.AuditEntry) (governance.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = s.nextIDLocked()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, entry)
	return entry, nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]governance.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []governance.AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		out = append(out, s.audit[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
