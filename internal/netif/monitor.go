// Package netif watches for local network interface state changes and
// rebuilds the affected locator.Interface entries, generalizing the
// teacher's link-event fast path (internal/netio ifmon.go) from "tear down
// the BFD session on this link" to "rebuild address sets and the local
// participant's plist so they stop advertising/using a downed interface"
// (spec §4.B interface classification feeds every address-set build).
package netif

import (
	"context"
	"log/slog"
)

// Event represents a network interface state change.
type Event struct {
	// IfName is the network interface name (e.g. "eth0").
	IfName string
	// IfIndex is the kernel interface index.
	IfIndex int
	// Up indicates whether the interface transitioned to Up (true) or Down
	// (false); maps to IFF_UP|IFF_RUNNING in the kernel.
	Up bool
}

// Monitor watches for network interface state changes and emits events
// when interfaces go up or down.
//
// Implementations may use NETLINK_ROUTE (Linux), kqueue (BSD), or polling
// as the underlying mechanism; the interface stays minimal so discovery can
// react to link events without depending on a specific OS mechanism.
type Monitor interface {
	// Run starts monitoring interface state changes. It blocks until ctx is
	// cancelled. Detected events are sent to the channel returned by
	// Events(). Run must be called at most once.
	Run(ctx context.Context) error

	// Events returns a read-only channel receiving interface state change
	// events. The channel is created at construction time and closed when
	// Run returns. Callers should drain the channel after Run completes.
	Events() <-chan Event

	// Close releases any resources held by the monitor. If Run is still
	// active, the caller should cancel the context first.
	Close() error
}

// StubMonitor is a no-op Monitor that never emits events. It is used when
// no platform-specific monitor is available or interface monitoring is
// disabled (spec §1 Non-goals: interface enumeration is provided by the
// caller; this core only reacts to changes once told about them).
type StubMonitor struct {
	events chan Event
	logger *slog.Logger
}

// NewStubMonitor creates a no-op interface monitor.
func NewStubMonitor(logger *slog.Logger) *StubMonitor {
	return &StubMonitor{
		events: make(chan Event, 16),
		logger: logger.With(slog.String("component", "netif.stub")),
	}
}

// Run blocks until ctx is cancelled, then closes the events channel.
func (m *StubMonitor) Run(ctx context.Context) error {
	m.logger.Info("stub interface monitor started (no-op)")
	<-ctx.Done()
	close(m.events)
	m.logger.Info("stub interface monitor stopped")
	return nil
}

// Events returns the (always empty) event channel.
func (m *StubMonitor) Events() <-chan Event {
	return m.events
}

// Close is a no-op for the stub monitor.
func (m *StubMonitor) Close() error {
	return nil
}
