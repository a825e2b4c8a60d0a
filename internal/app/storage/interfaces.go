package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/gateway"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/governance"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/swap"
)

// ErrNotFound is returned by lookups for records that do not exist. Postgres
// implementations translate sql.ErrNoRows into it so callers classify
// uniformly.
var ErrNotFound = errors.New("record not found")

// BridgeStore persists bridge configurations and their enumeration order.
// Deletion splices the enumeration list by moving the last entry into the
// vacated slot, so order is not preserved across removals.
type BridgeStore interface {
	CreateBridge(ctx context.Context, cfg bridge.Config) (bridge.Config, error)
	UpdateBridge(ctx context.Context, cfg bridge.Config) (bridge.Config, error)
	GetBridge(ctx context.Context, token common.Address) (bridge.Config, error)
	DeleteBridge(ctx context.Context, token common.Address) error
	ListBridges(ctx context.Context) ([]bridge.Config, error)
	ListBridgeTokens(ctx context.Context) ([]common.Address, error)
}

// UsageStore persists the hourly usage buckets. Buckets appear on first
// write and accumulate monotonically; Add methods return the new cumulative
// total for the bucket. Reads of unseen buckets return zero.
type UsageStore interface {
	AddBridgeUsage(ctx context.Context, token common.Address, hour int64, amount *uint256.Int) (*uint256.Int, error)
	BridgeUsage(ctx context.Context, token common.Address, hour int64) (*uint256.Int, error)
	AddChainUsage(ctx context.Context, hour int64, amount *uint256.Int) (*uint256.Int, error)
	ChainUsage(ctx context.Context, hour int64) (*uint256.Int, error)

	// PruneUsageBefore deletes buckets with hour < cutoff and reports how
	// many were removed. Only the retention sweeper calls this; the default
	// configuration never does.
	PruneUsageBefore(ctx context.Context, cutoff int64) (int64, error)
}

// ChainLimitStore persists the chain-wide outbound hourly limit.
type ChainLimitStore interface {
	ChainHourlyLimit(ctx context.Context) (*uint256.Int, error)
	SetChainHourlyLimit(ctx context.Context, limit *uint256.Int) error
}

// ExemptionStore persists the fee exemption set.
type ExemptionStore interface {
	SetFeeExemption(ctx context.Context, addr common.Address, exempt bool) error
	IsFeeExempt(ctx context.Context, addr common.Address) (bool, error)
	ListFeeExemptions(ctx context.Context) ([]common.Address, error)
}

// BalanceStore persists custodied bridge-asset balances per (asset, holder).
// Debits of more than the held amount fail with token.ErrInsufficientBalance;
// the swap engine surfaces that as a transfer failure.
type BalanceStore interface {
	AssetBalance(ctx context.Context, asset, holder common.Address) (*uint256.Int, error)
	CreditAsset(ctx context.Context, asset, holder common.Address, amount *uint256.Int) (*uint256.Int, error)
	DebitAsset(ctx context.Context, asset, holder common.Address, amount *uint256.Int) (*uint256.Int, error)
}

// SupplyStore persists the canonical token ledger and its minter set.
type SupplyStore interface {
	CanonicalBalance(ctx context.Context, holder common.Address) (*uint256.Int, error)
	CanonicalSupply(ctx context.Context) (*uint256.Int, error)
	MintCanonical(ctx context.Context, to common.Address, amount *uint256.Int) (*uint256.Int, error)
	BurnCanonical(ctx context.Context, from common.Address, amount *uint256.Int) (*uint256.Int, error)

	AddMinter(ctx context.Context, addr common.Address) error
	RemoveMinter(ctx context.Context, addr common.Address) error
	IsMinter(ctx context.Context, addr common.Address) (bool, error)
	ListMinters(ctx context.Context) ([]common.Address, error)
}

// ReceiptStore journals executed swaps and gateway operations. Creating a
// gateway receipt whose digest was already journaled fails with
// gateway.ErrDuplicateDeposit.
type ReceiptStore interface {
	CreateSwapReceipt(ctx context.Context, rcpt swap.Receipt) (swap.Receipt, error)
	ListSwapReceipts(ctx context.Context, token common.Address, limit int) ([]swap.Receipt, error)

	CreateGatewayReceipt(ctx context.Context, rcpt gateway.Receipt) (gateway.Receipt, error)
	ListGatewayReceipts(ctx context.Context, limit int) ([]gateway.Receipt, error)
}

// AuditStore journals authorized governance mutations.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry governance.AuditEntry) (governance.AuditEntry, error)
	ListAudit(ctx context.Context, limit int) ([]governance.AuditEntry, error)
}
