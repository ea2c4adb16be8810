// Package metrics registers the process-wide Prometheus instruments and serves the
// scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals emitted by the detectors"},
		[]string{"symbol", "kind"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Order submissions by resolution"},
		[]string{"symbol", "side", "outcome"},
	)
	UnitsCommitted = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "units_committed", Help: "Portfolio units currently committed"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Open position count"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cycle_duration_seconds", Help: "Evaluation cycle wall time"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, OrdersTotal, UnitsCommitted, OpenPositions, CycleDuration)
}

// Serve exposes /metrics on addr in a background goroutine.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
