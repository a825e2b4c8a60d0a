package postgres

import (
	"context"
	"crypto/rand"
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/gateway"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/token"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
	"github.com/OmniStable-Network/bridge_layer/internal/platform/migrations"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func randomAddress(t *testing.T) common.Address {
	t.Helper()
	var addr common.Address
	if _, err := rand.Read(addr[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return addr
}

func TestAddBridgeUsageReturnsCumulative(t *testing.T) {
	store, mock := newMockStore(t)
	tok := common.HexToAddress("0x01")

	mock.ExpectQuery("INSERT INTO bridge_usage").
		WithArgs(tok.Hex(), int64(42), "300").
		WillReturnRows(sqlmock.NewRows([]string{"volume"}).AddRow("500"))

	total, err := store.AddBridgeUsage(context.Background(), tok, 42, uint256.NewInt(300))
	if err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if total.Uint64() != 500 {
		t.Fatalf("total = %s, want 500", total.Dec())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBridgeUsageDefaultsToZero(t *testing.T) {
	store, mock := newMockStore(t)
	tok := common.HexToAddress("0x01")

	mock.ExpectQuery("SELECT volume FROM bridge_usage").
		WithArgs(tok.Hex(), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"volume"}))

	used, err := store.BridgeUsage(context.Background(), tok, 42)
	if err != nil {
		t.Fatalf("bridge usage: %v", err)
	}
	if !used.IsZero() {
		t.Fatalf("used = %s, want 0", used.Dec())
	}
}

func TestGetBridgeNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	tok := common.HexToAddress("0x02")

	mock.ExpectQuery("SELECT token, cap, hourly_limit").
		WithArgs(tok.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"token"}))

	_, err := store.GetBridge(context.Background(), tok)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDebitAssetInsufficient(t *testing.T) {
	store, mock := newMockStore(t)
	asset := common.HexToAddress("0x03")
	holder := common.HexToAddress("0x04")

	mock.ExpectQuery("UPDATE asset_balances").
		WithArgs(asset.Hex(), holder.Hex(), "100").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))

	_, err := store.DebitAsset(context.Background(), asset, holder, uint256.NewInt(100))
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestCreateGatewayReceiptDuplicateDigest(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO gateway_receipts").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateGatewayReceipt(context.Background(), gateway.Receipt{
		Operation: gateway.OperationDeposit,
		User:      common.HexToAddress("0x05"),
		Amount:    "100",
		Digest:    common.HexToHash("0xabc"),
	})
	if !errors.Is(err, gateway.ErrDuplicateDeposit) {
		t.Fatalf("err = %v, want ErrDuplicateDeposit", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db.DB); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)
	tok := randomAddress(t)

	cfg := bridge.Config{
		Token:       tok,
		Cap:         uint256.NewInt(1000),
		HourlyLimit: uint256.NewInt(500),
		Fee:         0,
		Allowed:     true,
	}
	if _, err := store.CreateBridge(ctx, cfg); err != nil {
		t.Fatalf("create bridge: %v", err)
	}

	got, err := store.GetBridge(ctx, tok)
	if err != nil {
		t.Fatalf("get bridge: %v", err)
	}
	if got.Cap.Uint64() != 1000 || got.HourlyLimit.Uint64() != 500 {
		t.Fatalf("config mismatch: cap %s limit %s", got.Cap.Dec(), got.HourlyLimit.Dec())
	}

	total, err := store.AddBridgeUsage(ctx, tok, 7, uint256.NewInt(300))
	if err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if total.Uint64() != 300 {
		t.Fatalf("first usage = %s, want 300", total.Dec())
	}
	total, err = store.AddBridgeUsage(ctx, tok, 7, uint256.NewInt(200))
	if err != nil {
		t.Fatalf("add usage: %v", err)
	}
	if total.Uint64() != 500 {
		t.Fatalf("cumulative usage = %s, want 500", total.Dec())
	}

	holder := randomAddress(t)
	if _, err := store.CreditAsset(ctx, tok, holder, uint256.NewInt(50)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := store.DebitAsset(ctx, tok, holder, uint256.NewInt(100)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("over-debit err = %v, want ErrInsufficientBalance", err)
	}

	if err := store.DeleteBridge(ctx, tok); err != nil {
		t.Fatalf("delete bridge: %v", err)
	}
	if _, err := store.GetBridge(ctx, tok); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
}
