//go:build integration && postgres

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/OmniStable-Network/bridge_layer/internal/app"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage/postgres"
	"github.com/OmniStable-Network/bridge_layer/internal/app/treasury"
	"github.com/OmniStable-Network/bridge_layer/internal/middleware"
	"github.com/OmniStable-Network/bridge_layer/internal/platform/migrations"
)

// Integration test against Postgres to ensure migrations plus the core swap
// flow work with persistence.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	ctx := context.Background()
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db.DB); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	pg := postgres.New(db)
	application, err := app.New(app.Stores{
		Bridges:    pg,
		Usage:      pg,
		ChainLimit: pg,
		Exemptions: pg,
		Balances:   pg,
		Supply:     pg,
		Receipts:   pg,
		Audit:      pg,
	}, app.Options{
		Treasury: treasury.NewStatic(treasury.StaticConfig{
			Treasury:  treasurer,
			Governors: []common.Address{governor},
			Guardians: []common.Address{guardian},
		}),
		Depositors: []common.Address{relayer},
	}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}

	// Unsigned caller headers stand in for request signatures here; the
	// verification path has its own tests.
	auth := middleware.NewCallerAuth(true, []string{"/healthz"}, nil)
	server := httptest.NewServer(auth.Handler(NewHandler(application)))
	defer server.Close()
	client := server.Client()

	// A fresh token address per run keeps the assertions independent of
	// whatever earlier runs left in the database.
	tok := common.BigToAddress(new(big.Int).SetInt64(time.Now().UnixNano()))

	if _, err := pg.CreditAsset(ctx, tok, alice, uint256.NewInt(1000)); err != nil {
		t.Fatalf("seed collateral: %v", err)
	}

	resp := doRequest(t, client, governor, http.MethodPost, server.URL+"/bridges", marshal(map[string]any{
		"token":        tok.Hex(),
		"cap":          "100000",
		"hourly_limit": "100000",
		"fee":          0,
	}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, client, alice, http.MethodPost, server.URL+"/swaps/in", marshal(map[string]any{
		"token":  tok.Hex(),
		"amount": "600",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("swap in status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, client, alice, http.MethodGet, server.URL+"/bridges/"+tok.Hex(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get bridge status: %d", resp.StatusCode)
	}
	view := decodeBody(t, resp)
	if view["used"] != "600" || view["held"] != "600" {
		t.Fatalf("expected persisted usage, got %v", view)
	}

	resp = doRequest(t, client, alice, http.MethodGet, server.URL+"/swaps/receipts?token="+tok.Hex(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("receipts status: %d", resp.StatusCode)
	}
	var receipts []map[string]any
	decodeBodyInto(t, resp, &receipts)
	if len(receipts) != 1 || receipts[0]["accepted"] != "600" {
		t.Fatalf("expected one persisted receipt, got %v", receipts)
	}

	if health, err := client.Get(server.URL + "/healthz"); err != nil || health.StatusCode != http.StatusOK {
		t.Fatalf("healthz failed: %v", err)
	}
}

func doRequest(t *testing.T, client *http.Client, caller common.Address, method, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set(middleware.CallerHeader, caller.Hex())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	decodeBodyInto(t, resp, &out)
	return out
}

func decodeBodyInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
