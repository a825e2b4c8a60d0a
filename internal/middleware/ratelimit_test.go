package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestRateLimiterExhaustsBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/bridges", nil)
		r.RemoteAddr = "10.0.0.1:5000"
		rl.Handler(next).ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/bridges", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	rl.Handler(next).ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	// Another client is unaffected.
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/bridges", nil)
	r.RemoteAddr = "10.0.0.2:5000"
	rl.Handler(next).ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", rec.Code)
	}
}

func TestRateLimiterKeysByCaller(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	send := func(caller common.Address) int {
		r := httptest.NewRequest(http.MethodGet, "/bridges", nil)
		r.RemoteAddr = "10.0.0.1:5000"
		r = r.WithContext(WithCaller(r.Context(), caller))
		rec := httptest.NewRecorder()
		rl.Handler(next).ServeHTTP(rec, r)
		return rec.Code
	}

	a := common.HexToAddress("0xa1")
	b := common.HexToAddress("0xb2")

	if code := send(a); code != http.StatusOK {
		t.Fatalf("caller a first request: %d", code)
	}
	if code := send(a); code != http.StatusTooManyRequests {
		t.Fatalf("caller a second request: %d, want 429", code)
	}
	// Same IP, different caller: separate budget.
	if code := send(b); code != http.StatusOK {
		t.Fatalf("caller b first request: %d, want 200", code)
	}
}

func TestCleanupDropsIdleLimiters(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	rl.maxIdle = 10 * time.Millisecond

	rl.limiter("stale")
	time.Sleep(20 * time.Millisecond)
	rl.limiter("fresh")
	rl.Cleanup()

	rl.mu.Lock()
	_, staleKept := rl.limiters["stale"]
	_, freshKept := rl.limiters["fresh"]
	rl.mu.Unlock()

	if staleKept {
		t.Fatal("stale limiter survived cleanup")
	}
	if !freshKept {
		t.Fatal("fresh limiter was dropped")
	}
}
