package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dantte-lp/ddsdisc/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	if c.ProxyEntities == nil {
		t.Error("ProxyEntities is nil")
	}
	if c.DiscoveryMessagesSent == nil {
		t.Error("DiscoveryMessagesSent is nil")
	}
	if c.DiscoveryMessagesReceived == nil {
		t.Error("DiscoveryMessagesReceived is nil")
	}
	if c.DiscoveryMessagesDropped == nil {
		t.Error("DiscoveryMessagesDropped is nil")
	}
	if c.LeaseExpirations == nil {
		t.Error("LeaseExpirations is nil")
	}
	if c.ResponseSchedulerDelay == nil {
		t.Error("ResponseSchedulerDelay is nil")
	}

	// Verify all metrics are registered by gathering them.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	// No data yet, so families may be empty -- but registration must not panic.
	_ = families
}

func TestProxyEntities(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SetProxyEntities("participant", 3)
	c.SetProxyEntities("writer", 7)

	if val := gaugeValue(t, c.ProxyEntities, "participant"); val != 3 {
		t.Errorf("ProxyEntities(participant) = %v, want 3", val)
	}
	if val := gaugeValue(t, c.ProxyEntities, "writer"); val != 7 {
		t.Errorf("ProxyEntities(writer) = %v, want 7", val)
	}

	// Overwriting a previously-set kind replaces, not accumulates.
	c.SetProxyEntities("participant", 2)
	if val := gaugeValue(t, c.ProxyEntities, "participant"); val != 2 {
		t.Errorf("ProxyEntities(participant) after update = %v, want 2", val)
	}
}

func TestDiscoveryMessageCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncDiscoveryMessagesSent("spdp")
	c.IncDiscoveryMessagesSent("spdp")
	c.IncDiscoveryMessagesSent("sedp")

	if val := counterValue(t, c.DiscoveryMessagesSent, "spdp"); val != 2 {
		t.Errorf("DiscoveryMessagesSent(spdp) = %v, want 2", val)
	}
	if val := counterValue(t, c.DiscoveryMessagesSent, "sedp"); val != 1 {
		t.Errorf("DiscoveryMessagesSent(sedp) = %v, want 1", val)
	}

	c.IncDiscoveryMessagesReceived("spdp")

	if val := counterValue(t, c.DiscoveryMessagesReceived, "spdp"); val != 1 {
		t.Errorf("DiscoveryMessagesReceived(spdp) = %v, want 1", val)
	}

	c.IncDiscoveryMessagesDropped("sedp", "unknown_writer")
	c.IncDiscoveryMessagesDropped("sedp", "unknown_writer")

	if val := counterValue(t, c.DiscoveryMessagesDropped, "sedp", "unknown_writer"); val != 2 {
		t.Errorf("DiscoveryMessagesDropped(sedp, unknown_writer) = %v, want 2", val)
	}
}

func TestLeaseExpirationsAndResponseSchedulerDelay(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncLeaseExpirations()
	c.IncLeaseExpirations()
	c.IncLeaseExpirations()

	m := &dto.Metric{}
	if err := c.LeaseExpirations.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if val := m.GetCounter().GetValue(); val != 3 {
		t.Errorf("LeaseExpirations = %v, want 3", val)
	}

	c.ObserveResponseSchedulerDelay("spdp", 0.05)
	c.ObserveResponseSchedulerDelay("spdp", 0.1)

	hist, err := c.ResponseSchedulerDelay.GetMetricWithLabelValues("spdp")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}

	hm := &dto.Metric{}
	if err := hist.(prometheus.Histogram).Write(hm); err != nil {
		t.Fatalf("Write histogram: %v", err)
	}
	if got := hm.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("ResponseSchedulerDelay sample count = %v, want 2", got)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// gaugeValue reads the current value of a GaugeVec with the given labels.
func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
