package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bridge_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridge_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bridge_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	swaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridge_layer",
			Subsystem: "swaps",
			Name:      "processed_total",
			Help:      "Total number of swap requests by direction and outcome.",
		},
		[]string{"direction", "outcome"},
	)

	swapClamps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridge_layer",
			Subsystem: "swaps",
			Name:      "clamps_total",
			Help:      "Total number of inbound swaps reduced by a limit.",
		},
		[]string{"reason"},
	)

	gatewayOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridge_layer",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Total number of gateway deposits and withdrawals.",
		},
		[]string{"operation", "outcome"},
	)

	bridgeUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bridge_layer",
			Subsystem: "usage",
			Name:      "bridge_hourly_volume",
			Help:      "Inbound volume recorded for each bridge in the current hour.",
		},
		[]string{"token"},
	)

	bridgeHeld = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bridge_layer",
			Subsystem: "usage",
			Name:      "bridge_held_exposure",
			Help:      "Bridge asset balance currently held by the vault.",
		},
		[]string{"token"},
	)

	chainUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bridge_layer",
			Subsystem: "usage",
			Name:      "chain_hourly_volume",
			Help:      "Chain-wide outbound volume recorded in the current hour.",
		},
	)

	canonicalSupply = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bridge_layer",
			Subsystem: "supply",
			Name:      "canonical_total",
			Help:      "Outstanding canonical token supply.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		swaps,
		swapClamps,
		gatewayOps,
		bridgeUsage,
		bridgeHeld,
		chainUsage,
		canonicalSupply,
		NewHostCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordSwap counts a processed swap request.
func RecordSwap(direction, outcome string) {
	swaps.WithLabelValues(direction, outcome).Inc()
}

// RecordSwapClamp counts an inbound swap reduced by the named limit.
func RecordSwapClamp(reason string) {
	swapClamps.WithLabelValues(reason).Inc()
}

// RecordGatewayOperation counts a gateway deposit or withdrawal.
func RecordGatewayOperation(operation, outcome string) {
	gatewayOps.WithLabelValues(operation, outcome).Inc()
}

// SetBridgeUsage publishes a bridge's current-hour inbound volume.
func SetBridgeUsage(token string, volume float64) {
	bridgeUsage.WithLabelValues(token).Set(volume)
}

// SetBridgeHeld publishes the vault's held balance for a bridge asset.
func SetBridgeHeld(token string, held float64) {
	bridgeHeld.WithLabelValues(token).Set(held)
}

// DropBridge removes the gauges for a deregistered bridge.
func DropBridge(token string) {
	bridgeUsage.DeleteLabelValues(token)
	bridgeHeld.DeleteLabelValues(token)
}

// SetChainUsage publishes the chain-wide current-hour outbound volume.
func SetChainUsage(volume float64) {
	chainUsage.Set(volume)
}

// SetCanonicalSupply publishes the outstanding canonical supply.
func SetCanonicalSupply(total float64) {
	canonicalSupply.Set(total)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 {
		return "/"
	}
	switch parts[0] {
	case "bridges":
		if len(parts) == 1 {
			return "/bridges"
		}
		if len(parts) == 2 {
			return "/bridges/:token"
		}
		return "/bridges/:token/" + parts[2]
	case "swaps", "gateway", "usage", "ws":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		return "/" + parts[0] + "/" + parts[1]
	default:
		return "/" + parts[0]
	}
}
