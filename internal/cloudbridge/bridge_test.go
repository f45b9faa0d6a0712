package cloudbridge_test

import (
	"context"
	"io"
	"log/slog"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/cloudbridge"
	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

const (
	methodDisablePeer = "DisablePeer"
	methodEnablePeer  = "EnablePeer"
)

type mockCall struct {
	method        string
	addr          string
	communication string
}

// mockClient records GoBGP API calls for test assertions.
type mockClient struct {
	mu    sync.Mutex
	calls []mockCall
}

func newMockClient() *mockClient { return &mockClient{} }

func (m *mockClient) DisablePeer(_ context.Context, addr, communication string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mockCall{method: methodDisablePeer, addr: addr, communication: communication})
	return nil
}

func (m *mockClient) EnablePeer(_ context.Context, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mockCall{method: methodEnablePeer, addr: addr})
	return nil
}

func (m *mockClient) Close() error { return nil }

func (m *mockClient) getCalls() []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeIndex(t *testing.T) *entityindex.Index {
	t.Helper()
	return entityindex.New(testLogger())
}

// addCloudBridge registers a DS-bridge proxy participant with a single
// unicast metatraffic locator at addr, returning its GUID.
func addCloudBridge(t *testing.T, ix *entityindex.Index, addr string, leaseDuration time.Duration, now time.Time) guid.GUID {
	t.Helper()

	var prefix guid.Prefix
	prefix[0] = byte(len(addr))
	g := guid.GUID{Prefix: prefix, Entity: guid.EntityID{0, 0, 0, guid.KindParticipant}}

	pp, err := ix.CreateProxyParticipant(g, vendorquirk.VendorCloudDiscovery, leaseDuration, false, now)
	if err != nil {
		t.Fatalf("create proxy participant: %v", err)
	}

	loc := locator.FromNetipAddr(locator.KindUDPv4, netip.MustParseAddr(addr), 7400)
	intf := locator.Interface{Loc: loc, Index: 0}
	built, _ := addrset.FromLocatorLists(
		[]locator.Interface{intf}, []locator.Conn{&fakeConn{}},
		[]locator.Locator{loc}, nil, locator.Invalid, nil, addrset.BuilderConfig{},
	)
	pp.MetatrafficAddrSet = built

	return g
}

type fakeConn struct{}

func (f *fakeConn) Supports(locator.Kind) bool { return true }
func (f *fakeConn) IsMulticast() bool          { return false }
func (f *fakeConn) IsLoopback() bool           { return false }

func waitForCalls(t *testing.T, mock *mockClient, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(mock.getCalls()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d calls, got %d", n, len(mock.getCalls()))
}

func newTestBridge(mock *mockClient) *cloudbridge.Bridge {
	return cloudbridge.New(cloudbridge.Config{
		Client:       mock,
		Strategy:     cloudbridge.StrategyDisablePeer,
		Dampening:    cloudbridge.DampeningConfig{},
		PollInterval: 10 * time.Millisecond,
		Logger:       testLogger(),
	})
}

func TestBridgeEnablesPeerWhenDSBridgeDiscovered(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ix := fakeIndex(t)
	addCloudBridge(t, ix, "198.51.100.10", 10*time.Second, now)

	mock := newMockClient()
	b := newTestBridge(mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx, ix)
	}()

	waitForCalls(t, mock, 1)
	cancel()
	<-done

	calls := mock.getCalls()
	if calls[0].method != methodEnablePeer || calls[0].addr != "198.51.100.10" {
		t.Fatalf("expected EnablePeer(198.51.100.10), got %+v", calls[0])
	}
}

func TestBridgeDisablesPeerWhenDSBridgeLeaseExpires(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ix := fakeIndex(t)
	addCloudBridge(t, ix, "198.51.100.20", 20*time.Millisecond, now)

	mock := newMockClient()
	b := newTestBridge(mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx, ix)
	}()

	waitForCalls(t, mock, 1) // initial enable on discovery

	ix.ExpireLeases(time.Now().Add(time.Second))

	waitForCalls(t, mock, 2)
	cancel()
	<-done

	calls := mock.getCalls()
	last := calls[len(calls)-1]
	if last.method != methodDisablePeer || last.addr != "198.51.100.20" {
		t.Fatalf("expected a trailing DisablePeer(198.51.100.20), got %+v", calls)
	}
}

func TestBridgeIgnoresProxyParticipantsWithoutCloudBridgeQuirk(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ix := fakeIndex(t)
	other := guid.GUID{Prefix: guid.Prefix{1}, Entity: guid.EntityID{0, 0, 0, guid.KindParticipant}}
	if _, err := ix.CreateProxyParticipant(other, vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("create proxy participant: %v", err)
	}

	mock := newMockClient()
	b := newTestBridge(mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx, ix)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if calls := mock.getCalls(); len(calls) != 0 {
		t.Fatalf("expected no BGP calls for a non-cloud-bridge participant, got %+v", calls)
	}
}

func TestBridgeSuppressesRapidFlapsWhenDampeningEnabled(t *testing.T) {
	t.Parallel()

	ix := fakeIndex(t)
	mock := newMockClient()
	b := cloudbridge.New(cloudbridge.Config{
		Client:   mock,
		Strategy: cloudbridge.StrategyDisablePeer,
		Dampening: cloudbridge.DampeningConfig{
			Enabled:           true,
			SuppressThreshold: 1,
			ReuseThreshold:    0.5,
			MaxSuppressTime:   time.Minute,
			HalfLife:          time.Minute,
		},
		PollInterval: 10 * time.Millisecond,
		Logger:       testLogger(),
	})

	now := time.Now()
	addCloudBridge(t, ix, "198.51.100.30", 15*time.Millisecond, now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx, ix)
	}()

	waitForCalls(t, mock, 1) // initial enable, not yet suppressed (first sighting)

	ix.ExpireLeases(time.Now().Add(time.Second))

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	for _, c := range mock.getCalls() {
		if c.method == methodDisablePeer {
			t.Fatalf("expected the disable to be suppressed by dampening, got %+v", mock.getCalls())
		}
	}
}

