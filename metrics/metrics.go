// Package metrics holds the Prometheus metrics the resolver exposes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolved_requests_total",
			Help: "Resolved addresses, by outcome class.",
		},
		[]string{
			"class", // local, alias, virtual, relay, default, fail
		},
	)

	requestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resolved_request_duration_seconds",
			Help:    "Duration of a single address resolution, excluding request read and reply write.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	lookupErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolved_lookup_errors_total",
			Help: "Transient backend failures, by table name.",
		},
		[]string{
			"table", // relay_domains, virt_alias_doms, virt_mailbox_doms, relocated_maps, transport_maps
		},
	)
)

// RequestsInc records one resolved address in the given outcome class,
// one of "local", "alias", "virtual", "relay", "default" or "fail".
func RequestsInc(class string) {
	requestsTotal.WithLabelValues(class).Inc()
}

// RequestDurationSince records the time elapsed since start as one
// resolution's duration.
func RequestDurationSince(start time.Time) {
	requestDuration.Observe(time.Since(start).Seconds())
}

// LookupErrorsInc records a transient lookup failure against the named
// table, one of "relay_domains", "virt_alias_doms", "virt_mailbox_doms",
// "relocated_maps" or "transport_maps".
func LookupErrorsInc(table string) {
	lookupErrorsTotal.WithLabelValues(table).Inc()
}
