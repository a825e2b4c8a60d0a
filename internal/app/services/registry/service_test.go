package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage/memory"
	"github.com/OmniStable-Network/bridge_layer/internal/app/treasury"
)

var (
	governor = common.HexToAddress("0x01")
	guardian = common.HexToAddress("0x02")
	outsider = common.HexToAddress("0x03")
	vault    = common.HexToAddress("0xff")
	tokenA   = common.HexToAddress("0xaa")
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ts := treasury.NewStatic(treasury.StaticConfig{
		Governors: []common.Address{governor},
		Guardians: []common.Address{guardian},
	})
	svc := New(Config{
		Bridges:    store,
		Exemptions: store,
		ChainLimit: store,
		Balances:   store,
		Audit:      store,
		Treasury:   ts,
		Vault:      vault,
	})
	return svc, store
}

func register(t *testing.T, svc *Service, tok common.Address) bridge.Config {
	t.Helper()
	cfg, err := svc.Register(context.Background(), governor, bridge.Config{
		Token:       tok,
		Cap:         uint256.NewInt(1000),
		HourlyLimit: uint256.NewInt(500),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return cfg
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, outsider, bridge.Config{Token: tokenA})
	if !errors.Is(err, bridge.ErrNotAuthorized) {
		t.Fatalf("outsider register err = %v, want ErrNotAuthorized", err)
	}

	// Guardians do not hold registration authority.
	_, err = svc.Register(ctx, guardian, bridge.Config{Token: tokenA})
	if !errors.Is(err, bridge.ErrNotAuthorized) {
		t.Fatalf("guardian register err = %v, want ErrNotAuthorized", err)
	}

	_, err = svc.Register(ctx, governor, bridge.Config{Token: common.Address{}})
	if !errors.Is(err, bridge.ErrInvalidBridge) {
		t.Fatalf("null token err = %v, want ErrInvalidBridge", err)
	}

	_, err = svc.Register(ctx, governor, bridge.Config{Token: tokenA, Fee: bridge.Base + 1})
	if !errors.Is(err, bridge.ErrFeeTooHigh) {
		t.Fatalf("oversized fee err = %v, want ErrFeeTooHigh", err)
	}

	// The full fee range up to the base is accepted.
	cfg, err := svc.Register(ctx, governor, bridge.Config{Token: tokenA, Fee: bridge.Base})
	if err != nil {
		t.Fatalf("register with max fee: %v", err)
	}
	if !cfg.Allowed {
		t.Fatal("registered bridge should be allowed")
	}

	_, err = svc.Register(ctx, governor, bridge.Config{Token: tokenA})
	if !errors.Is(err, bridge.ErrInvalidBridge) {
		t.Fatalf("duplicate register err = %v, want ErrInvalidBridge", err)
	}
}

func TestDeregisterRequiresZeroExposure(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	register(t, svc, tokenA)

	if _, err := store.CreditAsset(ctx, tokenA, vault, uint256.NewInt(25)); err != nil {
		t.Fatalf("seed vault: %v", err)
	}

	err := svc.Deregister(ctx, governor, tokenA)
	if !errors.Is(err, bridge.ErrExposureOutstanding) {
		t.Fatalf("deregister with exposure err = %v, want ErrExposureOutstanding", err)
	}

	if _, err := store.DebitAsset(ctx, tokenA, vault, uint256.NewInt(25)); err != nil {
		t.Fatalf("drain vault: %v", err)
	}

	if err := svc.Deregister(ctx, governor, tokenA); err != nil {
		t.Fatalf("deregister: %v", err)
	}

	tokens, err := svc.BridgeTokens(ctx)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("tokens after deregister = %d, want 0", len(tokens))
	}
}

func TestMutationsRequireKnownBridge(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SetCap(ctx, guardian, tokenA, uint256.NewInt(1)); !errors.Is(err, bridge.ErrUnknownBridge) {
		t.Fatalf("set cap err = %v, want ErrUnknownBridge", err)
	}
	if _, err := svc.SetHourlyLimit(ctx, guardian, tokenA, uint256.NewInt(1)); !errors.Is(err, bridge.ErrUnknownBridge) {
		t.Fatalf("set hourly limit err = %v, want ErrUnknownBridge", err)
	}
	if _, err := svc.SetFee(ctx, guardian, tokenA, 1); !errors.Is(err, bridge.ErrUnknownBridge) {
		t.Fatalf("set fee err = %v, want ErrUnknownBridge", err)
	}
	if _, err := svc.TogglePaused(ctx, guardian, tokenA); !errors.Is(err, bridge.ErrUnknownBridge) {
		t.Fatalf("toggle paused err = %v, want ErrUnknownBridge", err)
	}
}

func TestGuardianOperationalControls(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	register(t, svc, tokenA)

	updated, err := svc.SetCap(ctx, guardian, tokenA, uint256.NewInt(2000))
	if err != nil {
		t.Fatalf("guardian set cap: %v", err)
	}
	if updated.Cap.Uint64() != 2000 {
		t.Fatalf("cap = %s, want 2000", updated.Cap.Dec())
	}

	if _, err := svc.SetFee(ctx, guardian, tokenA, bridge.Base+1); !errors.Is(err, bridge.ErrFeeTooHigh) {
		t.Fatalf("set oversized fee err = %v, want ErrFeeTooHigh", err)
	}

	if _, err := svc.SetCap(ctx, outsider, tokenA, uint256.NewInt(1)); !errors.Is(err, bridge.ErrNotAuthorized) {
		t.Fatalf("outsider set cap err = %v, want ErrNotAuthorized", err)
	}

	if err := svc.SetChainHourlyLimit(ctx, guardian, uint256.NewInt(9000)); err != nil {
		t.Fatalf("set chain limit: %v", err)
	}
	limit, err := svc.ChainHourlyLimit(ctx)
	if err != nil {
		t.Fatalf("read chain limit: %v", err)
	}
	if limit.Uint64() != 9000 {
		t.Fatalf("chain limit = %s, want 9000", limit.Dec())
	}
}

func TestTogglePausedRoundTrips(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	register(t, svc, tokenA)

	paused, err := svc.TogglePaused(ctx, guardian, tokenA)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !paused {
		t.Fatal("first toggle should pause")
	}

	paused, err = svc.TogglePaused(ctx, guardian, tokenA)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if paused {
		t.Fatal("second toggle should unpause")
	}
}

func TestToggleFeeExemption(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	exempt, err := svc.ToggleFeeExemption(ctx, guardian, outsider)
	if err != nil {
		t.Fatalf("toggle exemption: %v", err)
	}
	if !exempt {
		t.Fatal("first toggle should grant the exemption")
	}

	list, err := svc.FeeExemptions(ctx)
	if err != nil {
		t.Fatalf("list exemptions: %v", err)
	}
	if len(list) != 1 || list[0] != outsider {
		t.Fatalf("exemptions = %v, want [%s]", list, outsider.Hex())
	}

	exempt, err = svc.ToggleFeeExemption(ctx, guardian, outsider)
	if err != nil {
		t.Fatalf("toggle exemption: %v", err)
	}
	if exempt {
		t.Fatal("second toggle should revoke the exemption")
	}
}

func TestRecoverAssetMovesVaultFunds(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	if _, err := store.CreditAsset(ctx, tokenA, vault, uint256.NewInt(100)); err != nil {
		t.Fatalf("seed vault: %v", err)
	}

	if err := svc.RecoverAsset(ctx, guardian, tokenA, outsider, uint256.NewInt(40)); !errors.Is(err, bridge.ErrNotAuthorized) {
		t.Fatalf("guardian recover err = %v, want ErrNotAuthorized", err)
	}

	if err := svc.RecoverAsset(ctx, governor, tokenA, outsider, uint256.NewInt(40)); err != nil {
		t.Fatalf("recover: %v", err)
	}

	vaultBal, _ := store.AssetBalance(ctx, tokenA, vault)
	outBal, _ := store.AssetBalance(ctx, tokenA, outsider)
	if vaultBal.Uint64() != 60 || outBal.Uint64() != 40 {
		t.Fatalf("balances = %s/%s, want 60/40", vaultBal.Dec(), outBal.Dec())
	}
}

func TestMutationsAreAudited(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	register(t, svc, tokenA)

	if _, err := svc.TogglePaused(ctx, guardian, tokenA); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	entries, err := svc.AuditTrail(ctx, 10)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Action != "bridge.toggle_paused" {
		t.Fatalf("latest action = %s, want bridge.toggle_paused", entries[0].Action)
	}
	if entries[0].Caller != guardian {
		t.Fatalf("latest caller = %s, want guardian", entries[0].Caller.Hex())
	}
}
