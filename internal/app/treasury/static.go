package treasury

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// StaticConfig fixes the treasury identity and role membership at startup.
type StaticConfig struct {
	Treasury   common.Address
	Stablecoin common.Address
	Governors  []common.Address
	Guardians  []common.Address
}

// Static is a Treasury resolved entirely from configuration. Role membership
// does not change after construction.
type Static struct {
	treasury   common.Address
	stablecoin common.Address
	governors  map[common.Address]struct{}
	guardians  map[common.Address]struct{}
}

var _ Treasury = (*Static)(nil)

// NewStatic builds a Static treasury from the given configuration.
func NewStatic(cfg StaticConfig) *Static {
	s := &Static{
		treasury:   cfg.Treasury,
		stablecoin: cfg.Stablecoin,
		governors:  make(map[common.Address]struct{}, len(cfg.Governors)),
		guardians:  make(map[common.Address]struct{}, len(cfg.Guardians)),
	}
	for _, addr := range cfg.Governors {
		s.governors[addr] = struct{}{}
	}
	for _, addr := range cfg.Guardians {
		s.guardians[addr] = struct{}{}
	}
	return s
}

func (s *Static) Address(ctx context.Context) (common.Address, error) {
	return s.treasury, nil
}

func (s *Static) IsGovernor(ctx context.Context, addr common.Address) (bool, error) {
	_, ok := s.governors[addr]
	return ok, nil
}

func (s *Static) IsGovernorOrGuardian(ctx context.Context, addr common.Address) (bool, error) {
	if _, ok := s.governors[addr]; ok {
		return true, nil
	}
	_, ok := s.guardians[addr]
	return ok, nil
}

func (s *Static) Stablecoin(ctx context.Context) (common.Address, error) {
	return s.stablecoin, nil
}
