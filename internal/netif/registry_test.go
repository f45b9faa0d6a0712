package netif_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/netif"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistryInterfacesReturnsInitialSnapshot(t *testing.T) {
	t.Parallel()

	initial := []locator.Interface{{Name: "eth0", Index: 0}, {Name: "eth1", Index: 1}}
	r := netif.NewRegistry(initial, nil, testLogger())

	got := r.Interfaces()
	if len(got) != 2 {
		t.Fatalf("expected 2 interfaces, got %d", len(got))
	}
}

func TestApplyEventDownRemovesInterfaceFromSnapshot(t *testing.T) {
	t.Parallel()

	var rebuilt []locator.Interface
	initial := []locator.Interface{{Name: "eth0", Index: 0}, {Name: "eth1", Index: 1}}
	r := netif.NewRegistry(initial, func(interfaces []locator.Interface) { rebuilt = interfaces }, testLogger())

	r.ApplyEvent(netif.Event{IfName: "eth0", IfIndex: 0, Up: false})

	got := r.Interfaces()
	if len(got) != 1 || got[0].Name != "eth1" {
		t.Fatalf("expected only eth1 to remain, got %v", got)
	}
	if len(rebuilt) != 1 {
		t.Fatalf("expected onChange callback to fire with 1 interface, got %d", len(rebuilt))
	}
}

func TestApplyEventIgnoresUnknownInterface(t *testing.T) {
	t.Parallel()

	called := false
	r := netif.NewRegistry(nil, func([]locator.Interface) { called = true }, testLogger())

	r.ApplyEvent(netif.Event{IfName: "eth9", IfIndex: 9, Up: false})

	if called {
		t.Fatalf("did not expect onChange for an unknown interface index")
	}
}

func TestApplyEventNoOpWhenStateUnchanged(t *testing.T) {
	t.Parallel()

	calls := 0
	initial := []locator.Interface{{Name: "eth0", Index: 0}}
	r := netif.NewRegistry(initial, func([]locator.Interface) { calls++ }, testLogger())

	r.ApplyEvent(netif.Event{IfName: "eth0", IfIndex: 0, Up: true})
	if calls != 0 {
		t.Fatalf("expected no rebuild when the interface is already up, got %d calls", calls)
	}
}

func TestApplyEventUpAfterDownRestoresInterface(t *testing.T) {
	t.Parallel()

	initial := []locator.Interface{{Name: "eth0", Index: 0}}
	r := netif.NewRegistry(initial, nil, testLogger())

	r.ApplyEvent(netif.Event{IfName: "eth0", IfIndex: 0, Up: false})
	if len(r.Interfaces()) != 0 {
		t.Fatalf("expected eth0 to be excluded after down event")
	}

	r.ApplyEvent(netif.Event{IfName: "eth0", IfIndex: 0, Up: true})
	if len(r.Interfaces()) != 1 {
		t.Fatalf("expected eth0 to be restored after up event")
	}
}

func TestRegistryRunDrainsMonitorEventsUntilCancelled(t *testing.T) {
	t.Parallel()

	initial := []locator.Interface{{Name: "eth0", Index: 0}}
	r := netif.NewRegistry(initial, nil, testLogger())
	mon := netif.NewStubMonitor(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, mon) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after context cancellation")
	}
}
