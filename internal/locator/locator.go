// Package locator implements the RTPS locator and local-interface model:
// typed network addresses, interface metadata, and the "nearby address"
// classification used throughout address-set construction.
package locator

import (
	"bytes"
	"fmt"
	"net/netip"
)

// Kind identifies the transport a Locator addresses (RTPS 2.x Table 9.14,
// plus Cyclone's vendor extensions).
type Kind int32

const (
	// KindInvalid is the sentinel "no locator" value.
	KindInvalid Kind = 0
	KindUDPv4   Kind = 1
	KindUDPv6   Kind = 2
	KindTCPv4   Kind = 4
	KindTCPv6   Kind = 8
	// KindSHM is Cyclone's shared-memory pseudo-locator.
	KindSHM Kind = 0x4000
	// KindTunnel marks a locator reachable only via an overlay/tunnel
	// transport (redundant-networking extension, see internal/transport).
	KindTunnel Kind = 0x8000
)

// String renders k for logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUDPv4:
		return "udpv4"
	case KindUDPv6:
		return "udpv6"
	case KindTCPv4:
		return "tcpv4"
	case KindTCPv6:
		return "tcpv6"
	case KindSHM:
		return "shm"
	case KindTunnel:
		return "tunnel"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

// Locator is a typed, 16-byte-addressed network endpoint (RTPS 2.x
// Section 9.3.2.1, "Locator_t"). IPv4 addresses are carried in the IPv4-
// mapped IPv6 form (::ffff:a.b.c.d), matching the wire encoding.
type Locator struct {
	Kind    Kind
	Port    uint32
	Address [16]byte
}

// Invalid is the zero-value sentinel locator.
var Invalid = Locator{Kind: KindInvalid}

// IsInvalid reports whether l is the sentinel value.
func (l Locator) IsInvalid() bool {
	return l.Kind == KindInvalid
}

// IsUnspecified reports whether l has no usable address: either invalid or
// an all-zero address for its kind. Used where the spec's "srcloc may be
// unspec" language applies.
func (l Locator) IsUnspecified() bool {
	if l.IsInvalid() {
		return true
	}
	return l.Address == [16]byte{}
}

// SameAddress reports broadcast-safe equality: same kind and address, port
// ignored (spec §3: "port-independent comparisons are explicit").
func (l Locator) SameAddress(other Locator) bool {
	return l.Kind == other.Kind && l.Address == other.Address
}

// Equal reports full equality including port.
func (l Locator) Equal(other Locator) bool {
	return l.SameAddress(other) && l.Port == other.Port
}

// Addr returns l's address as a netip.Addr, for use with net/netip-based
// subnet and classification helpers. Only meaningful for IP-based kinds.
func (l Locator) Addr() netip.Addr {
	a := netip.AddrFrom16(l.Address)
	if l.Kind == KindUDPv4 || l.Kind == KindTCPv4 {
		if a.Is4In6() {
			return a.Unmap()
		}
	}
	return a
}

// FromNetipAddr builds a Locator from a netip.Addr, port and kind. IPv4
// addresses are stored in IPv4-mapped IPv6 form, matching the wire format.
func FromNetipAddr(kind Kind, addr netip.Addr, port uint32) Locator {
	var l Locator
	l.Kind = kind
	l.Port = port
	if addr.Is4() {
		var mapped [16]byte
		mapped[10], mapped[11] = 0xff, 0xff
		a4 := addr.As4()
		copy(mapped[12:], a4[:])
		l.Address = mapped
	} else {
		l.Address = addr.As16()
	}
	return l
}

func (l Locator) String() string {
	return fmt.Sprintf("%s:%s:%d", l.Kind, l.Addr(), l.Port)
}

// IsMulticastAddress reports whether l's address is a multicast address,
// i.e. is_mcaddr in the spec.
func IsMulticastAddress(l Locator) bool {
	a := l.Addr()
	return a.IsValid() && a.IsMulticast()
}

// ssmLow/ssmHigh bound the IPv4 SSM block (232.0.0.0/8, RFC 4607).
var ssmLow = netip.MustParseAddr("232.0.0.0")
var ssmHigh = netip.MustParseAddr("232.255.255.255")

// IsSSMMulticastAddress reports whether l's address is within the
// Source-Specific Multicast range (is_ssm_mcaddr in the spec): IPv4
// 232.0.0.0/8, or an IPv6 multicast address with the SSM flag bit set
// (RFC 4607 Section 4.13, flags bit pattern 0bu011).
func IsSSMMulticastAddress(l Locator) bool {
	a := l.Addr()
	if !a.IsValid() || !a.IsMulticast() {
		return false
	}
	if a.Is4() {
		return a.Compare(ssmLow) >= 0 && a.Compare(ssmHigh) <= 0
	}
	b := a.As16()
	return b[1]&0xf0 == 0x30
}

// IsLoopbackAddress reports whether l addresses the loopback range
// (is_loopbackaddr).
func IsLoopbackAddress(l Locator) bool {
	a := l.Addr()
	return a.IsValid() && a.IsLoopback()
}

// IsUnspecLocator reports whether l is the RTPS "unspecified" locator: kind
// set but address all-zero (is_unspec_locator).
func IsUnspecLocator(l Locator) bool {
	return !l.IsInvalid() && bytes.Equal(l.Address[:], make([]byte, 16))
}
