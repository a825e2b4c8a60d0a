// Package token manages canonical stablecoin supply and custody of bridge
// assets. Minting rights are a sub-role granted by the treasury.
package token

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/token"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
	"github.com/OmniStable-Network/bridge_layer/internal/app/treasury"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

// Service manages asset balances and the canonical token supply.
type Service struct {
	balances storage.BalanceStore
	supply   storage.SupplyStore
	treasury treasury.Treasury
	log      *logger.Logger
}

// New constructs a token service.
func New(balances storage.BalanceStore, supply storage.SupplyStore, ts treasury.Treasury, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("token")
	}
	return &Service{balances: balances, supply: supply, treasury: ts, log: log}
}

// Balance returns the holder's balance of a bridge asset.
func (s *Service) Balance(ctx context.Context, asset, holder common.Address) (*uint256.Int, error) {
	return s.balances.AssetBalance(ctx, asset, holder)
}

// Transfer moves a bridge asset between holders. Insufficient sender balance
// propagates from the balance store.
func (s *Service) Transfer(ctx context.Context, asset, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if _, err := s.balances.DebitAsset(ctx, asset, from, amount); err != nil {
		return err
	}
	if _, err := s.balances.CreditAsset(ctx, asset, to, amount); err != nil {
		// The debit already committed. Put the funds back so no balance is lost.
		if _, undoErr := s.balances.CreditAsset(ctx, asset, from, amount); undoErr != nil {
			s.log.WithError(undoErr).Errorf("refund of %s to %s failed after credit error", amount.Dec(), from.Hex())
		}
		return err
	}
	return nil
}

// Deposit credits a bridge asset to a holder without a matching debit. It
// models assets arriving from outside the system.
func (s *Service) Deposit(ctx context.Context, asset, holder common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	_, err := s.balances.CreditAsset(ctx, asset, holder, amount)
	return err
}

// Mint issues canonical supply to a recipient. The caller must hold the
// minter role.
func (s *Service) Mint(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	if err := s.requireMinter(ctx, caller); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	if _, err := s.supply.MintCanonical(ctx, to, amount); err != nil {
		return err
	}
	s.log.WithField("minter", caller.Hex()).Infof("minted %s to %s", amount.Dec(), to.Hex())
	return nil
}

// Burn destroys canonical supply held by an account. The caller must hold
// the minter role; insufficient balance propagates from the supply store.
func (s *Service) Burn(ctx context.Context, caller, from common.Address, amount *uint256.Int) error {
	if err := s.requireMinter(ctx, caller); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	if _, err := s.supply.BurnCanonical(ctx, from, amount); err != nil {
		return err
	}
	s.log.WithField("minter", caller.Hex()).Infof("burned %s from %s", amount.Dec(), from.Hex())
	return nil
}

// CanonicalBalance returns the canonical token balance of a holder.
func (s *Service) CanonicalBalance(ctx context.Context, holder common.Address) (*uint256.Int, error) {
	return s.supply.CanonicalBalance(ctx, holder)
}

// CanonicalSupply returns the outstanding canonical supply.
func (s *Service) CanonicalSupply(ctx context.Context) (*uint256.Int, error) {
	return s.supply.CanonicalSupply(ctx)
}

// AddMinter grants the minter role. Only the treasury itself may grant it.
func (s *Service) AddMinter(ctx context.Context, caller, addr common.Address) error {
	treasuryAddr, err := s.treasury.Address(ctx)
	if err != nil {
		return fmt.Errorf("resolve treasury: %w", err)
	}
	if caller != treasuryAddr {
		return fmt.Errorf("add minter by %s: %w", caller.Hex(), bridge.ErrNotAuthorized)
	}
	if bridge.IsNullToken(addr) {
		return fmt.Errorf("minter address must not be zero")
	}
	if err := s.supply.AddMinter(ctx, addr); err != nil {
		return err
	}
	s.log.Infof("minter %s added", addr.Hex())
	return nil
}

// RemoveMinter revokes the minter role. The treasury may revoke anyone; a
// minter may revoke itself.
func (s *Service) RemoveMinter(ctx context.Context, caller, addr common.Address) error {
	treasuryAddr, err := s.treasury.Address(ctx)
	if err != nil {
		return fmt.Errorf("resolve treasury: %w", err)
	}
	if caller != treasuryAddr && caller != addr {
		return fmt.Errorf("remove minter by %s: %w", caller.Hex(), bridge.ErrNotAuthorized)
	}
	if err := s.supply.RemoveMinter(ctx, addr); err != nil {
		return err
	}
	s.log.Infof("minter %s removed", addr.Hex())
	return nil
}

// IsMinter reports whether the address holds the minter role.
func (s *Service) IsMinter(ctx context.Context, addr common.Address) (bool, error) {
	return s.supply.IsMinter(ctx, addr)
}

// Minters lists every address holding the minter role.
func (s *Service) Minters(ctx context.Context) ([]common.Address, error) {
	return s.supply.ListMinters(ctx)
}

func (s *Service) requireMinter(ctx context.Context, caller common.Address) error {
	ok, err := s.supply.IsMinter(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %s: %w", caller.Hex(), token.ErrNotMinter)
	}
	return nil
}
