package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/gateway"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/token"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
)

func testConfig(tok common.Address) bridge.Config {
	return bridge.Config{
		Token:       tok,
		Cap:         uint256.NewInt(1000),
		HourlyLimit: uint256.NewInt(500),
		Fee:         0,
		Allowed:     true,
	}
}

func TestBridgeLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	tok := common.HexToAddress("0x01")

	if _, err := store.CreateBridge(ctx, testConfig(tok)); err != nil {
		t.Fatalf("create bridge: %v", err)
	}
	if _, err := store.CreateBridge(ctx, testConfig(tok)); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}

	cfg, err := store.GetBridge(ctx, tok)
	if err != nil {
		t.Fatalf("get bridge: %v", err)
	}
	if !cfg.Allowed || cfg.Cap.Uint64() != 1000 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	// Stored state must not alias caller-held amounts.
	cfg.Cap.SetUint64(1)
	again, err := store.GetBridge(ctx, tok)
	if err != nil {
		t.Fatalf("get bridge: %v", err)
	}
	if again.Cap.Uint64() != 1000 {
		t.Fatalf("stored cap mutated through returned pointer: %v", again.Cap)
	}

	if err := store.DeleteBridge(ctx, tok); err != nil {
		t.Fatalf("delete bridge: %v", err)
	}
	if _, err := store.GetBridge(ctx, tok); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBridgeSwapsWithLast(t *testing.T) {
	store := New()
	ctx := context.Background()

	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	c := common.HexToAddress("0x0c")
	for _, tok := range []common.Address{a, b, c} {
		if _, err := store.CreateBridge(ctx, testConfig(tok)); err != nil {
			t.Fatalf("create %s: %v", tok.Hex(), err)
		}
	}

	if err := store.DeleteBridge(ctx, a); err != nil {
		t.Fatalf("delete: %v", err)
	}

	tokens, err := store.ListBridgeTokens(ctx)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	// The last entry moves into the vacated slot.
	if len(tokens) != 2 || tokens[0] != c || tokens[1] != b {
		t.Fatalf("unexpected list after removal: %v", tokens)
	}
}

func TestUsageAccumulates(t *testing.T) {
	store := New()
	ctx := context.Background()
	tok := common.HexToAddress("0x02")

	got, err := store.BridgeUsage(ctx, tok, 42)
	if err != nil {
		t.Fatalf("read empty bucket: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero for unseen bucket, got %v", got)
	}

	if _, err := store.AddBridgeUsage(ctx, tok, 42, uint256.NewInt(300)); err != nil {
		t.Fatalf("add usage: %v", err)
	}
	total, err := store.AddBridgeUsage(ctx, tok, 42, uint256.NewInt(200))
	if err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if total.Uint64() != 500 {
		t.Fatalf("expected cumulative 500, got %v", total)
	}

	// A different hour starts from zero.
	other, err := store.BridgeUsage(ctx, tok, 43)
	if err != nil {
		t.Fatalf("read other bucket: %v", err)
	}
	if !other.IsZero() {
		t.Fatalf("expected zero for hour 43, got %v", other)
	}
}

func TestPruneUsageBefore(t *testing.T) {
	store := New()
	ctx := context.Background()
	tok := common.HexToAddress("0x03")

	for hour := int64(10); hour <= 12; hour++ {
		if _, err := store.AddBridgeUsage(ctx, tok, hour, uint256.NewInt(1)); err != nil {
			t.Fatalf("seed usage: %v", err)
		}
		if _, err := store.AddChainUsage(ctx, hour, uint256.NewInt(1)); err != nil {
			t.Fatalf("seed chain usage: %v", err)
		}
	}

	removed, err := store.PruneUsageBefore(ctx, 12)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 4 pruned buckets, got %d", removed)
	}

	kept, err := store.BridgeUsage(ctx, tok, 12)
	if err != nil {
		t.Fatalf("read kept bucket: %v", err)
	}
	if kept.Uint64() != 1 {
		t.Fatalf("cutoff bucket must survive, got %v", kept)
	}
}

func TestDebitAssetInsufficient(t *testing.T) {
	store := New()
	ctx := context.Background()
	asset := common.HexToAddress("0x04")
	holder := common.HexToAddress("0x05")

	if _, err := store.CreditAsset(ctx, asset, holder, uint256.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := store.DebitAsset(ctx, asset, holder, uint256.NewInt(11)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	bal, err := store.AssetBalance(ctx, asset, holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Uint64() != 10 {
		t.Fatalf("failed debit must not change balance, got %v", bal)
	}
}

func TestCanonicalSupplyTracksMintBurn(t *testing.T) {
	store := New()
	ctx := context.Background()
	holder := common.HexToAddress("0x06")

	if _, err := store.MintCanonical(ctx, holder, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := store.BurnCanonical(ctx, holder, uint256.NewInt(40)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	supply, err := store.CanonicalSupply(ctx)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Uint64() != 60 {
		t.Fatalf("expected supply 60, got %v", supply)
	}

	if _, err := store.BurnCanonical(ctx, holder, uint256.NewInt(100)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestGatewayDigestDeduplicates(t *testing.T) {
	store := New()
	ctx := context.Background()

	rcpt := gateway.Receipt{
		Operation: gateway.OperationDeposit,
		User:      common.HexToAddress("0x07"),
		Amount:    "25",
		Digest:    common.HexToHash("0xbeef"),
	}
	if _, err := store.CreateGatewayReceipt(ctx, rcpt); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if _, err := store.CreateGatewayReceipt(ctx, rcpt); !errors.Is(err, gateway.ErrDuplicateDeposit) {
		t.Fatalf("expected ErrDuplicateDeposit, got %v", err)
	}

	// Withdrawals are not deduplicated by digest.
	withdrawal := gateway.Receipt{
		Operation: gateway.OperationWithdraw,
		User:      common.HexToAddress("0x07"),
		Amount:    "5",
	}
	if _, err := store.CreateGatewayReceipt(ctx, withdrawal); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	if _, err := store.CreateGatewayReceipt(ctx, withdrawal); err != nil {
		t.Fatalf("second withdrawal: %v", err)
	}
}
