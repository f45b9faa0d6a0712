package transport_test

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/transport"
)

func newTunnelPair(t *testing.T) (*transport.TunnelConn, *transport.UDPConn) {
	t.Helper()

	gw, err := transport.NewUDPConn(transport.Config{LocalAddr: netip.MustParseAddr("127.0.0.1")}, testLogger())
	if err != nil {
		t.Fatalf("NewUDPConn(gateway): %v", err)
	}
	t.Cleanup(func() { gw.Close() })

	udp, err := transport.NewUDPConn(transport.Config{LocalAddr: netip.MustParseAddr("127.0.0.1")}, testLogger())
	if err != nil {
		t.Fatalf("NewUDPConn(tx): %v", err)
	}
	t.Cleanup(func() { udp.Close() })

	tunnel := transport.NewTunnelConn(udp, netip.MustParseAddr("127.0.0.1"), gw.LocalPort(), 99, testLogger())
	return tunnel, gw
}

func TestTunnelConnSupportsOnlyTunnelKind(t *testing.T) {
	t.Parallel()
	tunnel, _ := newTunnelPair(t)

	if !tunnel.Supports(locator.KindTunnel) {
		t.Fatalf("expected support for KindTunnel")
	}
	if tunnel.Supports(locator.KindUDPv4) {
		t.Fatalf("did not expect support for KindUDPv4")
	}
}

func TestTunnelConnSendUnwrapRoundTrip(t *testing.T) {
	t.Parallel()
	tunnel, gw := newTunnelPair(t)

	want := []byte("tunneled-rtps-message")
	if err := tunnel.Send(context.Background(), locator.Locator{Kind: locator.KindTunnel}, want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pkt, err := gw.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv at gateway: %v", err)
	}

	got, err := tunnel.Unwrap(pkt.Payload)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("unwrapped payload = %q, want %q", got, want)
	}
}

func TestTunnelConnUnwrapRejectsMismatchedDomainTag(t *testing.T) {
	t.Parallel()
	tunnel, gw := newTunnelPair(t)

	other := transport.NewTunnelConn(nil, netip.Addr{}, 0, 7, testLogger())

	if err := tunnel.Send(context.Background(), locator.Locator{Kind: locator.KindTunnel}, []byte("x")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pkt, err := gw.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}

	if _, err := other.Unwrap(pkt.Payload); err == nil {
		t.Fatalf("expected domain-tag mismatch error")
	}
}
