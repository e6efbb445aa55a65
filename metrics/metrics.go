// Package metrics records Prometheus metrics for pipeline runs: a generic
// Stage for any pipeline, and Unary and Stream handlers for gRPC calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Options configures a Recorder.
type Options struct {
	// Namespace prefixes every metric name. Default "onion".
	Namespace string

	// Registry receives the collectors. When nil a fresh registry is used.
	Registry *prometheus.Registry

	// Buckets are the duration histogram buckets in seconds. Default
	// prometheus.DefBuckets.
	Buckets []float64
}

// Recorder owns the collectors shared by every handler built from it.
type Recorder struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec

	rpcs        *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors.
func New(opts Options) (*Recorder, error) {
	if opts.Namespace == "" {
		opts.Namespace = "onion"
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if len(opts.Buckets) == 0 {
		opts.Buckets = prometheus.DefBuckets
	}

	r := &Recorder{
		registry: opts.Registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by stage and outcome.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Time spent in a stage and everything after it.",
			Buckets:   opts.Buckets,
		}, []string{"stage"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Subsystem: "pipeline",
			Name:      "in_flight",
			Help:      "Runs currently inside a stage.",
		}, []string{"stage"}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: "grpc",
			Name:      "server_handled_total",
			Help:      "RPCs completed by the server, by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Subsystem: "grpc",
			Name:      "server_handling_seconds",
			Help:      "Time taken to handle an RPC.",
			Buckets:   opts.Buckets,
		}, []string{"method"}),
	}

	for _, c := range []prometheus.Collector{r.runs, r.duration, r.inFlight, r.rpcs, r.rpcDuration} {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
