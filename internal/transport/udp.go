// Package transport provides the UDP and tunnel locator.Conn
// implementations the discovery core sends and receives builtin discovery
// traffic through. It generalizes the teacher's single-purpose BFD sender
// and listener into a connection that can address any RTPS locator kind
// and port, and adds the RTPS message framing builtin writers need.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/dantte-lp/ddsdisc/internal/locator"
)

// ErrConnClosed is returned by Send/Recv once Close has been called.
var ErrConnClosed = errors.New("transport: connection closed")

// ErrUnsupportedLocatorKind is returned when Send is asked to address a
// locator kind this UDPConn cannot reach.
var ErrUnsupportedLocatorKind = errors.New("transport: unsupported locator kind")

// RawPacket is a received datagram together with where it came from, handed
// upstream to the RTPS receive path for submessage parsing and, eventually,
// dispatch.Dispatcher.HandleSample.
type RawPacket struct {
	Payload []byte
	Src     locator.Locator
	IfName  string
}

// UDPConn is a locator.Conn backed by a single UDP socket, bound to one
// local interface address. It is deliberately address-family agnostic: the
// kind it Supports is fixed at construction from the bound address, mapping
// IPv4 to locator.KindUDPv4 and IPv6 to locator.KindUDPv6 (spec §3
// "XLocator"/"Conn").
//
// Unlike the teacher's UDPSender, which hardcodes TTL=255 GTSM and a single
// destination port, UDPConn sends to whatever port each locator.Locator
// names — RTPS discovery traffic addresses many distinct participants and
// ports, not one fixed peer.
type UDPConn struct {
	pc         net.PacketConn
	kind       locator.Kind
	ifName     string
	multicast  bool
	loopback   bool
	ttl        int
	mu         sync.Mutex
	closed     bool
	logger     *slog.Logger
}

// Config configures a UDPConn.
type Config struct {
	// LocalAddr is the address to bind; use the unspecified address
	// (0.0.0.0 / ::) to receive on all interfaces.
	LocalAddr netip.Addr
	// Port is the local UDP port to bind.
	Port uint16
	// IfName binds the socket to a specific interface via SO_BINDTODEVICE,
	// mirroring the teacher's micro-BFD per-member binding. Empty means no
	// interface binding.
	IfName string
	// MulticastGroups are additional multicast groups to join on this
	// socket at construction time (spec §4.B discovery multicast group).
	MulticastGroups []netip.Addr
	// TTL sets IP_TTL / IPV6_UNICAST_HOPS. Zero leaves the OS default,
	// unlike the teacher's fixed GTSM 255 — discovery traffic is not a
	// single-hop protocol guarded by GTSM.
	TTL int
	// Loopback marks this connection as the loopback transport, so
	// AddressSet construction can recognize it via IsLoopback.
	Loopback bool
}

// NewUDPConn opens a UDP socket per cfg.
func NewUDPConn(cfg Config, logger *slog.Logger) (*UDPConn, error) {
	isIPv6 := cfg.LocalAddr.Is6() && !cfg.LocalAddr.Is4In6()
	network := "udp4"
	kind := locator.KindUDPv4
	if isIPv6 {
		network = "udp6"
		kind = locator.KindUDPv6
	}

	laddr := netip.AddrPortFrom(cfg.LocalAddr, cfg.Port)
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return setConnOpts(c, isIPv6, cfg.TTL, cfg.IfName)
		},
	}

	pc, err := lc.ListenPacket(context.Background(), network, laddr.String())
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", laddr, err)
	}

	u := &UDPConn{
		pc:       pc,
		kind:     kind,
		ifName:   cfg.IfName,
		ttl:      cfg.TTL,
		loopback: cfg.Loopback,
		logger:   logger.With(slog.String("component", "transport.udp"), slog.String("local", laddr.String())),
	}

	for _, g := range cfg.MulticastGroups {
		if err := u.joinGroup(g); err != nil {
			_ = u.Close()
			return nil, fmt.Errorf("transport: join group %s: %w", g, err)
		}
		u.multicast = true
	}

	return u, nil
}

func (u *UDPConn) joinGroup(group netip.Addr) error {
	pc4, ok4 := u.pc.(*net.UDPConn)
	if !ok4 {
		return fmt.Errorf("transport: multicast join requires a *net.UDPConn")
	}
	if group.Is4() {
		p := ipv4PacketConn(pc4)
		return p.JoinGroup(nil, &net.UDPAddr{IP: net.IP(group.AsSlice())})
	}
	p := ipv6PacketConn(pc4)
	return p.JoinGroup(nil, &net.UDPAddr{IP: net.IP(group.AsSlice())})
}

func setConnOpts(c syscall.RawConn, isIPv6 bool, ttl int, ifName string) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		//nolint:gosec // G115: kernel fds are always small positive integers.
		intFD := int(fd)
		sockErr = setSockOpts(intFD, isIPv6, ttl, ifName)
	})
	if err != nil {
		return fmt.Errorf("raw conn control: %w", err)
	}
	return sockErr
}

func setSockOpts(fd int, isIPv6 bool, ttl int, ifName string) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if ifName != "" {
		if err := unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, ifName); err != nil {
			return fmt.Errorf("set SO_BINDTODEVICE(%s): %w", ifName, err)
		}
	}
	if ttl <= 0 {
		return nil
	}
	if isIPv6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, ttl); err != nil {
			return fmt.Errorf("set IPV6_UNICAST_HOPS: %w", err)
		}
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, ttl); err != nil {
		return fmt.Errorf("set IP_TTL: %w", err)
	}
	return nil
}

// Supports reports whether kind matches the address family this socket was
// bound with.
func (u *UDPConn) Supports(kind locator.Kind) bool {
	return kind == u.kind
}

// IsMulticast reports whether this socket has joined at least one
// multicast group.
func (u *UDPConn) IsMulticast() bool {
	return u.multicast
}

// IsLoopback reports whether this connection was constructed as the
// loopback transport.
func (u *UDPConn) IsLoopback() bool {
	return u.loopback
}

// Send writes payload to dst. Returns ErrUnsupportedLocatorKind if dst's
// kind does not match this connection's address family.
func (u *UDPConn) Send(_ context.Context, dst locator.Locator, payload []byte) error {
	if !u.Supports(dst.Kind) {
		return fmt.Errorf("transport: send to %s: %w", dst, ErrUnsupportedLocatorKind)
	}

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return fmt.Errorf("transport: send to %s: %w", dst, ErrConnClosed)
	}
	u.mu.Unlock()

	addr := net.UDPAddrFromAddrPort(netip.AddrPortFrom(dst.Addr(), uint16(dst.Port)))
	if _, err := u.pc.WriteTo(payload, addr); err != nil {
		return fmt.Errorf("transport: send to %s: %w", dst, err)
	}
	return nil
}

// Recv blocks for a single datagram or until ctx is cancelled.
func (u *UDPConn) Recv(ctx context.Context) (RawPacket, error) {
	if err := ctx.Err(); err != nil {
		return RawPacket{}, fmt.Errorf("transport recv: %w", err)
	}

	buf := make([]byte, 64*1024)
	n, addr, err := u.pc.ReadFrom(buf)
	if err != nil {
		u.mu.Lock()
		closed := u.closed
		u.mu.Unlock()
		if closed {
			return RawPacket{}, fmt.Errorf("transport recv: %w", ErrConnClosed)
		}
		return RawPacket{}, fmt.Errorf("transport recv: %w", err)
	}

	ap, ok := addr.(*net.UDPAddr)
	if !ok {
		return RawPacket{}, fmt.Errorf("transport recv: unexpected addr type %T", addr)
	}
	netAddr, ok := netip.AddrFromSlice(ap.IP)
	if !ok {
		return RawPacket{}, fmt.Errorf("transport recv: invalid source address %s", ap.IP)
	}

	return RawPacket{
		Payload: buf[:n],
		Src:     locator.FromNetipAddr(u.kind, netAddr.Unmap(), uint32(ap.Port)), //nolint:gosec // G115: UDP port always fits uint32.
		IfName:  u.ifName,
	}, nil
}

// LocalPort returns the UDP port this connection is bound to, useful when
// Config.Port was 0 and the OS picked an ephemeral port.
func (u *UDPConn) LocalPort() uint16 {
	addr, ok := u.pc.LocalAddr().(*net.UDPAddr)
	if !ok {
		return 0
	}
	return uint16(addr.Port) //nolint:gosec // G115: UDP ports are always within uint16 range.
}

// Close closes the underlying socket.
func (u *UDPConn) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	if err := u.pc.Close(); err != nil {
		return fmt.Errorf("transport: close: %w", err)
	}
	return nil
}
