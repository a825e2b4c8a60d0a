package treasury

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestStaticRoles(t *testing.T) {
	governor := common.HexToAddress("0x01")
	guardian := common.HexToAddress("0x02")
	outsider := common.HexToAddress("0x03")

	ts := NewStatic(StaticConfig{
		Treasury:   common.HexToAddress("0x10"),
		Stablecoin: common.HexToAddress("0x20"),
		Governors:  []common.Address{governor},
		Guardians:  []common.Address{guardian},
	})

	ctx := context.Background()

	if ok, _ := ts.IsGovernor(ctx, governor); !ok {
		t.Error("governor should hold the governor role")
	}
	if ok, _ := ts.IsGovernor(ctx, guardian); ok {
		t.Error("guardian should not hold the governor role")
	}
	if ok, _ := ts.IsGovernorOrGuardian(ctx, guardian); !ok {
		t.Error("guardian should pass the combined check")
	}
	if ok, _ := ts.IsGovernorOrGuardian(ctx, governor); !ok {
		t.Error("governor should pass the combined check")
	}
	if ok, _ := ts.IsGovernorOrGuardian(ctx, outsider); ok {
		t.Error("outsider should fail the combined check")
	}

	addr, _ := ts.Address(ctx)
	if addr != common.HexToAddress("0x10") {
		t.Errorf("treasury address = %s", addr.Hex())
	}
	coin, _ := ts.Stablecoin(ctx)
	if coin != common.HexToAddress("0x20") {
		t.Errorf("stablecoin = %s", coin.Hex())
	}
}

func TestClientRoles(t *testing.T) {
	governor := common.HexToAddress("0x01")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/treasury/roles/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		addr := strings.TrimPrefix(r.URL.Path, "/v1/treasury/roles/")
		json.NewEncoder(w).Encode(map[string]bool{
			"governor": common.HexToAddress(addr) == governor,
			"guardian": false,
		})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	ok, err := client.IsGovernor(context.Background(), governor)
	if err != nil {
		t.Fatalf("IsGovernor() error = %v", err)
	}
	if !ok {
		t.Error("governor should hold the governor role")
	}

	ok, err = client.IsGovernor(context.Background(), common.HexToAddress("0x99"))
	if err != nil {
		t.Fatalf("IsGovernor() error = %v", err)
	}
	if ok {
		t.Error("outsider should not hold the governor role")
	}
}

func TestClientStablecoin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/treasury/stablecoin" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"address": "0x0000000000000000000000000000000000000020"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	coin, err := client.Stablecoin(context.Background())
	if err != nil {
		t.Fatalf("Stablecoin() error = %v", err)
	}
	if coin != common.HexToAddress("0x20") {
		t.Errorf("stablecoin = %s, want 0x...20", coin.Hex())
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"address": "0x0000000000000000000000000000000000000010"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 3})

	addr, err := client.Address(context.Background())
	if err != nil {
		t.Fatalf("Address() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if addr != common.HexToAddress("0x10") {
		t.Errorf("address = %s, want 0x...10", addr.Hex())
	}
}

func TestClientSurfacesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such treasury"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	_, err := client.Address(context.Background())
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "no such treasury") {
		t.Errorf("error %q should carry the response body", err)
	}
}
