// Package metrics exposes prometheus instruments for the alert engine. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alertdesk"

// Collection names.
const (
	Active     = "active"
	Historical = "historical"
)

type Metrics struct {
	registry *prometheus.Registry

	refreshes      *prometheus.CounterVec
	pushEvents     *prometheus.CounterVec
	removals       *prometheus.CounterVec
	evictions      prometheus.Counter
	collectionSize *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Full reconciliations by collection and outcome.",
		}, []string{"collection", "outcome"}),
		pushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push events processed by kind.",
		}, []string{"kind"}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removal_requests_total",
			Help:      "Removal requests by outcome.",
		}, []string{"outcome"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "historical_evictions_total",
			Help:      "Historical alerts evicted by the capacity policy.",
		}),
		collectionSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_size",
			Help:      "Number of alerts per collection.",
		}, []string{"collection"}),
	}
	m.registry.MustRegister(m.refreshes, m.pushEvents, m.removals, m.evictions, m.collectionSize)
	return m
}

func (m *Metrics) Refresh(collection, outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(collection, outcome).Inc()
}

func (m *Metrics) PushEvent(kind string) {
	if m == nil {
		return
	}
	m.pushEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) Removal(outcome string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(float64(n))
}

func (m *Metrics) CollectionSize(collection string, n int) {
	if m == nil {
		return
	}
	m.collectionSize.WithLabelValues(collection).Set(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
