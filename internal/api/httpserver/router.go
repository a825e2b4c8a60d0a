package httpserver

import (
	"net/http"

	"github.com/OmniStable-Network/bridge_layer/internal/app/metrics"
	"github.com/OmniStable-Network/bridge_layer/internal/config"
	"github.com/OmniStable-Network/bridge_layer/internal/middleware"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

// Chain assembles the middleware stack around the API handler and mounts the
// Prometheus endpoint. The returned limiter needs StartCleanup once a
// lifecycle context exists.
func Chain(api http.Handler, cfg config.ServerConfig, log *logger.Logger) (http.Handler, *middleware.RateLimiter) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)

	auth := middleware.NewCallerAuth(cfg.AllowUnsigned, []string{"/healthz", "/metrics", "/ws/*"}, log)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	cors := middleware.NewCORS(cfg.CORSOrigins)
	requests := middleware.NewRequestLog(log)

	// Authentication runs before rate limiting so authenticated traffic is
	// budgeted per caller rather than per source address.
	var handler http.Handler = metrics.InstrumentHandler(mux)
	handler = limiter.Handler(handler)
	handler = auth.Handler(handler)
	handler = cors.Handler(handler)
	handler = requests.Handler(handler)
	return handler, limiter
}
