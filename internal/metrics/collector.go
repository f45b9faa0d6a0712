package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "ddsdisc"
	subsystem = "discovery"
)

// Label names for discovery metrics.
const (
	labelEntityKind = "entity_kind"
	labelProtocol   = "protocol"
	labelDropReason = "drop_reason"
)

// -------------------------------------------------------------------------
// Collector — Prometheus discovery metrics
// -------------------------------------------------------------------------

// Collector holds all discovery-core Prometheus metrics.
//
//   - ProxyEntities tracks live counts of proxy entities in the entity index.
//   - DiscoveryMessages* track SPDP/SEDP volume and drop reasons.
//   - LeaseExpirations and ResponseSchedulerDelay track housekeeping and
//     response-scheduling behavior for alerting.
type Collector struct {
	// ProxyEntities tracks live counts of proxy participants/writers/readers/
	// topics in the entity index, labeled by entity_kind.
	ProxyEntities *prometheus.GaugeVec

	// DiscoveryMessages counts SPDP/SEDP messages transmitted or received,
	// labeled by protocol ("spdp"/"sedp") and direction via metric name.
	DiscoveryMessagesSent     *prometheus.CounterVec
	DiscoveryMessagesReceived *prometheus.CounterVec

	// DiscoveryMessagesDropped counts discovery messages dropped during
	// dispatch, labeled by protocol and drop_reason.
	DiscoveryMessagesDropped *prometheus.CounterVec

	// LeaseExpirations counts proxy participant leases that expired and
	// were reaped from the entity index.
	LeaseExpirations prometheus.Counter

	// ResponseSchedulerDelay observes the jittered delay applied before a
	// scheduled SPDP/SEDP response is sent.
	ResponseSchedulerDelay *prometheus.HistogramVec
}

// NewCollector creates a Collector with all discovery metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
//
// All metrics are created with the "ddsdisc_discovery_" prefix
// (namespace_subsystem) to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.ProxyEntities,
		c.DiscoveryMessagesSent,
		c.DiscoveryMessagesReceived,
		c.DiscoveryMessagesDropped,
		c.LeaseExpirations,
		c.ResponseSchedulerDelay,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		ProxyEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "proxy_entities",
			Help:      "Number of proxy entities currently held in the entity index, by kind.",
		}, []string{labelEntityKind}),

		DiscoveryMessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Total SPDP/SEDP discovery messages transmitted.",
		}, []string{labelProtocol}),

		DiscoveryMessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Total SPDP/SEDP discovery messages received.",
		}, []string{labelProtocol}),

		DiscoveryMessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_dropped_total",
			Help:      "Total SPDP/SEDP discovery messages dropped during dispatch, by reason.",
		}, []string{labelProtocol, labelDropReason}),

		LeaseExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lease_expirations_total",
			Help:      "Total proxy participant leases that expired and were reaped from the entity index.",
		}),

		ResponseSchedulerDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "response_scheduler_delay_seconds",
			Help:      "Jittered delay applied before a scheduled SPDP/SEDP response is sent.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{labelProtocol}),
	}
}

// -------------------------------------------------------------------------
// Discovery — Entity Index
// -------------------------------------------------------------------------

// SetProxyEntities sets the current live count of proxy entities of the
// given kind (e.g. "participant", "writer", "reader", "topic") held in the
// entity index.
func (c *Collector) SetProxyEntities(kind string, count float64) {
	c.ProxyEntities.WithLabelValues(kind).Set(count)
}

// IncLeaseExpirations increments the lease expiration counter. Called once
// per proxy participant reaped by the entity index's lease sweep.
func (c *Collector) IncLeaseExpirations() {
	c.LeaseExpirations.Inc()
}

// -------------------------------------------------------------------------
// Discovery — SPDP/SEDP Dispatch
// -------------------------------------------------------------------------

// IncDiscoveryMessagesSent increments the transmitted discovery message
// counter for the given protocol ("spdp" or "sedp").
func (c *Collector) IncDiscoveryMessagesSent(protocol string) {
	c.DiscoveryMessagesSent.WithLabelValues(protocol).Inc()
}

// IncDiscoveryMessagesReceived increments the received discovery message
// counter for the given protocol ("spdp" or "sedp").
func (c *Collector) IncDiscoveryMessagesReceived(protocol string) {
	c.DiscoveryMessagesReceived.WithLabelValues(protocol).Inc()
}

// IncDiscoveryMessagesDropped increments the dropped discovery message
// counter for the given protocol and drop reason.
func (c *Collector) IncDiscoveryMessagesDropped(protocol, reason string) {
	c.DiscoveryMessagesDropped.WithLabelValues(protocol, reason).Inc()
}

// ObserveResponseSchedulerDelay records the jittered delay, in seconds,
// applied before a scheduled SPDP/SEDP response was sent for the given
// protocol.
func (c *Collector) ObserveResponseSchedulerDelay(protocol string, seconds float64) {
	c.ResponseSchedulerDelay.WithLabelValues(protocol).Observe(seconds)
}
