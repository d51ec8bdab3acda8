// Package metrics holds the names and histogram buckets shared by the
// service's Prometheus and OpenTelemetry instruments.
package metrics

// Namespace prefixes every metric exported by the service.
const Namespace = "osint"

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// LookupBuckets covers source lookups, which talk to slow third-party services
// and are bounded by the per-source timeout.
var LookupBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60} //nolint: gochecknoglobals

// Name joins the namespace, a subsystem and a metric name the way Prometheus
// expects.
func Name(subsystem, name string) string {
	return Namespace + "_" + subsystem + "_" + name
}
