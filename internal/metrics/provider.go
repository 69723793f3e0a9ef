package metrics

import (
	atel "github.com/atelier-labs/atelier/pkg/atelier/v1/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRegistryProvider implements the RegistryProvider interface
// using a standard Prometheus registry.
type PrometheusRegistryProvider struct {
	registry *prometheus.Registry
}

// NewPrometheusRegistryProvider creates a new metrics provider backed by Prometheus.
func NewPrometheusRegistryProvider() *PrometheusRegistryProvider {
	return &PrometheusRegistryProvider{
		registry: prometheus.NewRegistry(),
	}
}

// Registry returns the underlying Prometheus registry.
func (p *PrometheusRegistryProvider) Registry() *prometheus.Registry {
	return p.registry
}

var _ atel.RegistryProvider = (*PrometheusRegistryProvider)(nil)

// StoreCollectors bundles the Prometheus collectors fed by the event stream.
type StoreCollectors struct {
	// RequestsTotal counts terminal request outcomes per resource and operation.
	RequestsTotal *prometheus.CounterVec
	// StaleResultsDropped counts terminal results discarded because a newer
	// request had superseded them.
	StaleResultsDropped *prometheus.CounterVec
	// IntentsFolded counts intents applied by the store per resource.
	IntentsFolded *prometheus.CounterVec
	// InflightRequests tracks currently open requests per resource.
	InflightRequests *prometheus.GaugeVec
}

// NewStoreCollectors creates the collectors and registers them with the given
// registry. MustRegister panics on duplicate registration, which only happens
// on a wiring mistake at startup.
func NewStoreCollectors(registry *prometheus.Registry) *StoreCollectors {
	c := &StoreCollectors{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_requests_total",
			Help: "Terminal request outcomes by resource, operation and outcome.",
		}, []string{"resource", "operation", "outcome"}),
		StaleResultsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_stale_results_dropped_total",
			Help: "Terminal results dropped because a newer request superseded them.",
		}, []string{"resource", "operation"}),
		IntentsFolded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_intents_folded_total",
			Help: "Intents folded into resource state by resource.",
		}, []string{"resource"}),
		InflightRequests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "atelier_inflight_requests",
			Help: "Currently open backend requests by resource.",
		}, []string{"resource"}),
	}
	registry.MustRegister(
		c.RequestsTotal,
		c.StaleResultsDropped,
		c.IntentsFolded,
		c.InflightRequests,
	)
	return c
}
