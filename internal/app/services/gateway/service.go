// Package gateway implements the native bridge gateway path: deposits mint
// canonical supply on receipt, withdrawals burn it on exit. This path is
// independent of the multi-bridge swap flow and carries no rate limits.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/sha3"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/gateway"
	"github.com/OmniStable-Network/bridge_layer/internal/app/metrics"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

// SupplyMover mints and burns canonical supply on behalf of the gateway.
type SupplyMover interface {
	Mint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error
	Burn(ctx context.Context, caller, from common.Address, amount *uint256.Int) error
}

// EventPublisher broadcasts settled gateway operations to subscribers.
type EventPublisher interface {
	Publish(event string, payload any)
}

// Config wires the gateway service's dependencies. System is the minter
// identity the gateway acts as; Depositors are the accounts allowed to
// submit deposits.
type Config struct {
	Receipts   storage.ReceiptStore
	Tokens     SupplyMover
	Events     EventPublisher
	System     common.Address
	Depositors []common.Address
	Logger     *logger.Logger
}

// Service handles gateway deposits and withdrawals.
type Service struct {
	receipts   storage.ReceiptStore
	tokens     SupplyMover
	events     EventPublisher
	system     common.Address
	depositors map[common.Address]struct{}
	log        *logger.Logger
}

// New constructs a gateway service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("gateway")
	}
	depositors := make(map[common.Address]struct{}, len(cfg.Depositors))
	for _, addr := range cfg.Depositors {
		depositors[addr] = struct{}{}
	}
	return &Service{
		receipts:   cfg.Receipts,
		tokens:     cfg.Tokens,
		events:     cfg.Events,
		system:     cfg.System,
		depositors: depositors,
		log:        log,
	}
}

// Deposit mints canonical supply to a user for an amount encoded in the
// gateway payload. The caller must hold depositor authority. Each payload
// digest settles at most once; replays fail with ErrDuplicateDeposit.
func (s *Service) Deposit(ctx context.Context, caller, user common.Address, payload []byte) (gateway.Receipt, error) {
	if _, ok := s.depositors[caller]; !ok {
		metrics.RecordGatewayOperation("deposit", "rejected")
		return gateway.Receipt{}, fmt.Errorf("account %s: %w", caller.Hex(), gateway.ErrNotDepositor)
	}
	if user == (common.Address{}) {
		return gateway.Receipt{}, fmt.Errorf("user must not be zero")
	}

	amount, err := decodeAmount(payload)
	if err != nil {
		metrics.RecordGatewayOperation("deposit", "rejected")
		return gateway.Receipt{}, err
	}

	receipt, err := s.receipts.CreateGatewayReceipt(ctx, gateway.Receipt{
		Operation: gateway.OperationDeposit,
		User:      user,
		Amount:    amount.Dec(),
		Digest:    payloadDigest(payload),
	})
	if err != nil {
		metrics.RecordGatewayOperation("deposit", "rejected")
		return gateway.Receipt{}, err
	}

	if err := s.tokens.Mint(ctx, s.system, user, amount); err != nil {
		metrics.RecordGatewayOperation("deposit", "rejected")
		return gateway.Receipt{}, fmt.Errorf("mint deposit: %w", err)
	}

	metrics.RecordGatewayOperation("deposit", "ok")
	s.publish("gateway.deposit", receipt)
	s.log.WithField("user", user.Hex()).Infof("gateway deposit of %s settled", amount.Dec())
	return receipt, nil
}

// Withdraw burns canonical supply from the caller. Any holder may withdraw;
// insufficient balance propagates from the supply store.
func (s *Service) Withdraw(ctx context.Context, caller common.Address, amount *uint256.Int) (gateway.Receipt, error) {
	if amount == nil || amount.IsZero() {
		return gateway.Receipt{}, fmt.Errorf("withdraw amount must be positive")
	}

	if err := s.tokens.Burn(ctx, s.system, caller, amount); err != nil {
		metrics.RecordGatewayOperation("withdraw", "rejected")
		return gateway.Receipt{}, err
	}

	receipt, err := s.receipts.CreateGatewayReceipt(ctx, gateway.Receipt{
		Operation: gateway.OperationWithdraw,
		User:      caller,
		Amount:    amount.Dec(),
		Digest:    withdrawalDigest(caller, amount),
	})
	if err != nil {
		// The burn already settled; the receipt is journal-only.
		s.log.WithError(err).Warn("withdrawal receipt write failed")
		receipt = gateway.Receipt{Operation: gateway.OperationWithdraw, User: caller, Amount: amount.Dec()}
	}

	metrics.RecordGatewayOperation("withdraw", "ok")
	s.publish("gateway.withdraw", receipt)
	s.log.WithField("user", caller.Hex()).Infof("gateway withdrawal of %s settled", amount.Dec())
	return receipt, nil
}

// Receipts returns the most recent gateway receipts.
func (s *Service) Receipts(ctx context.Context, limit int) ([]gateway.Receipt, error) {
	return s.receipts.ListGatewayReceipts(ctx, limit)
}

// IsDepositor reports whether the address holds depositor authority.
func (s *Service) IsDepositor(addr common.Address) bool {
	_, ok := s.depositors[addr]
	return ok
}

func (s *Service) publish(event string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(event, payload)
}

// decodeAmount extracts the amount field from a gateway payload.
func decodeAmount(payload []byte) (*uint256.Int, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload: %w", gateway.ErrBadPayload)
	}
	field := gjson.GetBytes(payload, "amount")
	if !field.Exists() {
		return nil, fmt.Errorf("payload missing amount: %w", gateway.ErrBadPayload)
	}

	amount, err := uint256.FromDecimal(field.String())
	if err != nil {
		return nil, fmt.Errorf("payload amount %q: %w", field.String(), gateway.ErrBadPayload)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("payload amount is zero: %w", gateway.ErrBadPayload)
	}
	return amount, nil
}

func payloadDigest(payload []byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(payload)
	var digest common.Hash
	h.Sum(digest[:0])
	return digest
}

func withdrawalDigest(caller common.Address, amount *uint256.Int) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(caller.Bytes())
	h.Write([]byte(amount.Dec()))
	h.Write([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	var digest common.Hash
	h.Sum(digest[:0])
	return digest
}
