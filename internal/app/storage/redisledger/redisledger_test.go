package redisledger

import (
	"context"
	"crypto/rand"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := Open(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func randomToken(t *testing.T) common.Address {
	t.Helper()
	var addr common.Address
	if _, err := rand.Read(addr[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return addr
}

func TestUsageAccumulates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tok := randomToken(t)
	hour := time.Now().UnixNano()

	used, err := store.BridgeUsage(ctx, tok, hour)
	if err != nil {
		t.Fatalf("read empty bucket: %v", err)
	}
	if !used.IsZero() {
		t.Fatalf("empty bucket = %s, want 0", used.Dec())
	}

	total, err := store.AddBridgeUsage(ctx, tok, hour, uint256.NewInt(300))
	if err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if total.Uint64() != 300 {
		t.Fatalf("first add = %s, want 300", total.Dec())
	}

	total, err = store.AddBridgeUsage(ctx, tok, hour, uint256.NewInt(200))
	if err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if total.Uint64() != 500 {
		t.Fatalf("cumulative = %s, want 500", total.Dec())
	}

	if _, err := store.client.Del(ctx, bridgeKey(tok, hour)).Result(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestPruneUsageBefore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tok := randomToken(t)
	base := time.Now().UnixNano()

	for _, hour := range []int64{base, base + 1, base + 2} {
		if _, err := store.AddBridgeUsage(ctx, tok, hour, uint256.NewInt(1)); err != nil {
			t.Fatalf("seed bridge bucket: %v", err)
		}
		if _, err := store.AddChainUsage(ctx, hour, uint256.NewInt(1)); err != nil {
			t.Fatalf("seed chain bucket: %v", err)
		}
	}

	removed, err := store.PruneUsageBefore(ctx, base+2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed < 4 {
		t.Fatalf("removed = %d, want at least 4", removed)
	}

	survivor, err := store.BridgeUsage(ctx, tok, base+2)
	if err != nil {
		t.Fatalf("read survivor: %v", err)
	}
	if survivor.Uint64() != 1 {
		t.Fatalf("survivor = %s, want 1", survivor.Dec())
	}

	if _, err := store.PruneUsageBefore(ctx, base+3); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
