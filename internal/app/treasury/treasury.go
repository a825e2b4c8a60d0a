// Package treasury resolves governance roles and the canonical stablecoin
// from the treasury that owns this deployment.
package treasury

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Treasury answers the authority questions the bridge layer delegates to its
// owning treasury.
type Treasury interface {
	// Address returns the treasury's own account. Calls restricted to the
	// treasury itself are checked against this address.
	Address(ctx context.Context) (common.Address, error)

	// IsGovernor reports whether the address holds the governor role.
	IsGovernor(ctx context.Context, addr common.Address) (bool, error)

	// IsGovernorOrGuardian reports whether the address holds either the
	// governor or the guardian role.
	IsGovernorOrGuardian(ctx context.Context, addr common.Address) (bool, error)

	// Stablecoin returns the canonical stablecoin account.
	Stablecoin(ctx context.Context) (common.Address, error)
}
