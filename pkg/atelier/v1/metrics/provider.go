package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider defines the interface for accessing the client's metrics registry.
// This allows consumers of the atelier library to expose metrics via their chosen
// method (e.g., a Prometheus HTTP endpoint).
type RegistryProvider interface {
	// Registry returns the Prometheus registry containing atelier client metrics.
	Registry() *prometheus.Registry
}
