package swap

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/token"
	tokensvc "github.com/OmniStable-Network/bridge_layer/internal/app/services/token"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage/memory"
	"github.com/OmniStable-Network/bridge_layer/internal/app/treasury"
)

var (
	system   = common.HexToAddress("0x5e")
	alice    = common.HexToAddress("0xa1")
	bob      = common.HexToAddress("0xb0")
	tokenA   = common.HexToAddress("0xaa")
	treasAcc = common.HexToAddress("0x7e")
)

// fixedHour pins the engine clock inside hour bucket 100.
var fixedHour = int64(100)

func newEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	ts := treasury.NewStatic(treasury.StaticConfig{Treasury: treasAcc})
	tokens := tokensvc.New(store, store, ts, nil)

	require.NoError(t, store.AddMinter(context.Background(), system))

	eng := New(Config{
		Bridges:    store,
		Usage:      store,
		ChainLimit: store,
		Exemptions: store,
		Receipts:   store,
		Tokens:     tokens,
		System:     system,
	}).WithClock(func() time.Time { return time.Unix(fixedHour*3600+60, 0) })
	return eng, store
}

func registerBridge(t *testing.T, store *memory.Store, cap, hourlyLimit uint64, fee uint64) {
	t.Helper()
	_, err := store.CreateBridge(context.Background(), bridge.Config{
		Token:       tokenA,
		Cap:         uint256.NewInt(cap),
		HourlyLimit: uint256.NewInt(hourlyLimit),
		Fee:         fee,
		Allowed:     true,
	})
	require.NoError(t, err)
}

func fund(t *testing.T, store *memory.Store, asset, holder common.Address, amount uint64) {
	t.Helper()
	_, err := store.CreditAsset(context.Background(), asset, holder, uint256.NewInt(amount))
	require.NoError(t, err)
}

func TestSwapInExposureClamp(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 1000, 10_000, 0)

	// Direct transfers into the vault inflate held balance without any
	// swap. The next request clamps against the remaining headroom.
	fund(t, store, tokenA, system, 995)
	fund(t, store, tokenA, alice, 10)

	receipt, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(10), alice)
	require.NoError(t, err)
	assert.Equal(t, "10", receipt.Requested)
	assert.Equal(t, "5", receipt.Accepted)
	assert.Equal(t, "5", receipt.Realized)

	held, err := eng.Held(ctx, tokenA)
	require.NoError(t, err)
	assert.Equal(t, "1000", held.Dec())

	used, err := eng.CurrentUsage(ctx, tokenA)
	require.NoError(t, err)
	assert.Equal(t, "5", used.Dec())
}

func TestSwapInExposureFullClampsToZero(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 1000, 10_000, 0)

	fund(t, store, tokenA, system, 1200)
	fund(t, store, tokenA, alice, 10)

	receipt, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(10), alice)
	require.NoError(t, err)
	assert.Equal(t, "0", receipt.Accepted)
	assert.Equal(t, "0", receipt.Realized)

	// Nothing was pulled and nothing recorded.
	bal, _ := store.AssetBalance(ctx, tokenA, alice)
	assert.Equal(t, "10", bal.Dec())
	used, _ := eng.CurrentUsage(ctx, tokenA)
	assert.True(t, used.IsZero())
}

func TestSwapInHourlyClamp(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 500, 0)

	_, err := store.AddBridgeUsage(ctx, tokenA, fixedHour, uint256.NewInt(497))
	require.NoError(t, err)
	fund(t, store, tokenA, alice, 10)

	receipt, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(10), alice)
	require.NoError(t, err)
	assert.Equal(t, "3", receipt.Accepted)
	assert.Equal(t, "3", receipt.Realized)

	used, err := eng.CurrentUsage(ctx, tokenA)
	require.NoError(t, err)
	assert.Equal(t, "500", used.Dec())
}

func TestSwapInFeeComputation(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	// 1% fee in parts per base.
	registerBridge(t, store, 100_000, 100_000, 10_000_000)
	fund(t, store, tokenA, alice, 1000)

	receipt, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(1000), alice)
	require.NoError(t, err)
	assert.Equal(t, "1000", receipt.Accepted)
	assert.Equal(t, "10", receipt.Fee)
	assert.Equal(t, "990", receipt.Realized)

	canonical, err := store.CanonicalBalance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "990", canonical.Dec())

	// The full accepted amount moved into custody; the fee was simply
	// never minted.
	held, _ := eng.Held(ctx, tokenA)
	assert.Equal(t, "1000", held.Dec())
}

func TestSwapInFeeExemptionBypass(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 100_000, 10_000_000)
	fund(t, store, tokenA, alice, 1000)

	require.NoError(t, store.SetFeeExemption(ctx, alice, true))

	receipt, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(1000), alice)
	require.NoError(t, err)
	assert.Equal(t, "0", receipt.Fee)
	assert.Equal(t, "1000", receipt.Realized)
}

func TestSwapInFullFeeMintsNothing(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 100_000, bridge.Base)
	fund(t, store, tokenA, alice, 100)

	receipt, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(100), alice)
	require.NoError(t, err)
	assert.Equal(t, "100", receipt.Accepted)
	assert.Equal(t, "0", receipt.Realized)

	canonical, _ := store.CanonicalBalance(ctx, alice)
	assert.True(t, canonical.IsZero())
	held, _ := eng.Held(ctx, tokenA)
	assert.Equal(t, "100", held.Dec())
}

func TestSwapInRejectsUnknownAndPaused(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()

	_, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(1), alice)
	assert.ErrorIs(t, err, bridge.ErrInvalidToken)

	_, err = store.CreateBridge(ctx, bridge.Config{
		Token:       tokenA,
		Cap:         uint256.NewInt(1000),
		HourlyLimit: uint256.NewInt(1000),
		Allowed:     true,
		Paused:      true,
	})
	require.NoError(t, err)

	_, err = eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(1), alice)
	assert.ErrorIs(t, err, bridge.ErrInvalidToken)
	_, err = eng.SwapOut(ctx, alice, tokenA, uint256.NewInt(1), alice)
	assert.ErrorIs(t, err, bridge.ErrInvalidToken)
}

func TestSwapInPullFailureLeavesLedgerUntouched(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 1000, 1000, 0)

	// Alice holds nothing, so the pull fails.
	_, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(10), alice)
	assert.ErrorIs(t, err, bridge.ErrTransferFailed)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)

	used, _ := eng.CurrentUsage(ctx, tokenA)
	assert.True(t, used.IsZero())
	held, _ := eng.Held(ctx, tokenA)
	assert.True(t, held.IsZero())
}

func TestSwapOutHardHourlyLimit(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 100_000, 0)

	require.NoError(t, store.SetChainHourlyLimit(ctx, uint256.NewInt(100)))
	_, err := store.AddChainUsage(ctx, fixedHour, uint256.NewInt(95))
	require.NoError(t, err)

	_, err = store.MintCanonical(ctx, alice, uint256.NewInt(50))
	require.NoError(t, err)
	fund(t, store, tokenA, system, 1000)

	_, err = eng.SwapOut(ctx, alice, tokenA, uint256.NewInt(10), alice)
	assert.ErrorIs(t, err, bridge.ErrHourlyLimitExceeded)

	// No partial burn, no transfer, no ledger mutation.
	canonical, _ := store.CanonicalBalance(ctx, alice)
	assert.Equal(t, "50", canonical.Dec())
	used, _ := eng.CurrentTotalUsage(ctx)
	assert.Equal(t, "95", used.Dec())
	held, _ := eng.Held(ctx, tokenA)
	assert.Equal(t, "1000", held.Dec())
}

func TestSwapOutUnsetChainLimitRejectsEverything(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 100_000, 0)

	_, err := store.MintCanonical(ctx, alice, uint256.NewInt(50))
	require.NoError(t, err)

	_, err = eng.SwapOut(ctx, alice, tokenA, uint256.NewInt(1), alice)
	assert.ErrorIs(t, err, bridge.ErrHourlyLimitExceeded)
}

func TestSwapOutReleasesAfterFee(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 100_000, 10_000_000)

	require.NoError(t, store.SetChainHourlyLimit(ctx, uint256.NewInt(1000)))
	fund(t, store, tokenA, system, 1000)
	_, err := store.MintCanonical(ctx, alice, uint256.NewInt(500))
	require.NoError(t, err)

	receipt, err := eng.SwapOut(ctx, alice, tokenA, uint256.NewInt(100), bob)
	require.NoError(t, err)
	assert.Equal(t, "100", receipt.Requested)
	assert.Equal(t, "1", receipt.Fee)
	assert.Equal(t, "99", receipt.Realized)

	canonical, _ := store.CanonicalBalance(ctx, alice)
	assert.Equal(t, "400", canonical.Dec())
	bobBal, _ := store.AssetBalance(ctx, tokenA, bob)
	assert.Equal(t, "99", bobBal.Dec())
	held, _ := eng.Held(ctx, tokenA)
	assert.Equal(t, "901", held.Dec())

	// The chain ledger records the burned amount, not the post-fee
	// release.
	used, _ := eng.CurrentTotalUsage(ctx)
	assert.Equal(t, "100", used.Dec())
}

func TestSwapOutInsufficientCanonicalLeavesStateUntouched(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 100_000, 0)

	require.NoError(t, store.SetChainHourlyLimit(ctx, uint256.NewInt(1000)))
	fund(t, store, tokenA, system, 1000)
	_, err := store.MintCanonical(ctx, alice, uint256.NewInt(50))
	require.NoError(t, err)

	_, err = eng.SwapOut(ctx, alice, tokenA, uint256.NewInt(100), alice)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)

	used, _ := eng.CurrentTotalUsage(ctx)
	assert.True(t, used.IsZero())
	held, _ := eng.Held(ctx, tokenA)
	assert.Equal(t, "1000", held.Dec())
}

func TestEndToEndHourlyScenario(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 1000, 500, 0)
	fund(t, store, tokenA, alice, 600)

	first, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(300), alice)
	require.NoError(t, err)
	assert.Equal(t, "300", first.Realized)

	used, _ := eng.CurrentUsage(ctx, tokenA)
	assert.Equal(t, "300", used.Dec())
	held, _ := eng.Held(ctx, tokenA)
	assert.Equal(t, "300", held.Dec())

	second, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(300), alice)
	require.NoError(t, err)
	assert.Equal(t, "200", second.Realized)

	used, _ = eng.CurrentUsage(ctx, tokenA)
	assert.Equal(t, "500", used.Dec())
	held, _ = eng.Held(ctx, tokenA)
	assert.Equal(t, "500", held.Dec())

	canonical, _ := store.CanonicalBalance(ctx, alice)
	assert.Equal(t, "500", canonical.Dec())
	asset, _ := store.AssetBalance(ctx, tokenA, alice)
	assert.Equal(t, "100", asset.Dec())
}

func TestHourRolloverRefreshesBudget(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 500, 0)
	fund(t, store, tokenA, alice, 1000)

	hour := fixedHour
	eng.WithClock(func() time.Time { return time.Unix(hour*3600+60, 0) })

	receipt, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(500), alice)
	require.NoError(t, err)
	assert.Equal(t, "500", receipt.Realized)

	// The bucket is exhausted within the hour.
	receipt, err = eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(100), alice)
	require.NoError(t, err)
	assert.Equal(t, "0", receipt.Accepted)

	// The next hour opens a fresh bucket; the old one is never reset.
	hour++
	receipt, err = eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(100), alice)
	require.NoError(t, err)
	assert.Equal(t, "100", receipt.Accepted)

	previous, err := eng.UsageAt(ctx, tokenA, fixedHour)
	require.NoError(t, err)
	assert.Equal(t, "500", previous.Dec())
}

func TestLoweredLimitReclampsNextCall(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 500, 0)
	fund(t, store, tokenA, alice, 1000)

	_, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(400), alice)
	require.NoError(t, err)

	// Governance lowers the limit below what has already accrued. The
	// accrued usage stays; new requests clamp to zero.
	cfg, err := store.GetBridge(ctx, tokenA)
	require.NoError(t, err)
	cfg.HourlyLimit = uint256.NewInt(300)
	_, err = store.UpdateBridge(ctx, cfg)
	require.NoError(t, err)

	receipt, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(50), alice)
	require.NoError(t, err)
	assert.Equal(t, "0", receipt.Accepted)

	used, _ := eng.CurrentUsage(ctx, tokenA)
	assert.Equal(t, "400", used.Dec())
}

func TestReceiptsJournal(t *testing.T) {
	eng, store := newEngine(t)
	ctx := context.Background()
	registerBridge(t, store, 100_000, 100_000, 0)
	fund(t, store, tokenA, alice, 100)

	_, err := eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(40), alice)
	require.NoError(t, err)
	_, err = eng.SwapIn(ctx, alice, tokenA, uint256.NewInt(60), alice)
	require.NoError(t, err)

	receipts, err := eng.Receipts(ctx, tokenA, 10)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "60", receipts[0].Requested)
	assert.Equal(t, "40", receipts[1].Requested)
	assert.NotEmpty(t, receipts[0].ID)
}
