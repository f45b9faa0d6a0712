package transport

import (
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// groupJoiner is the minimal surface both golang.org/x/net packet-conn
// wrappers share, letting joinGroup stay address-family agnostic.
type groupJoiner interface {
	JoinGroup(ifi *net.Interface, group net.Addr) error
}

func ipv4PacketConn(c *net.UDPConn) groupJoiner {
	return ipv4.NewPacketConn(c)
}

func ipv6PacketConn(c *net.UDPConn) groupJoiner {
	return ipv6.NewPacketConn(c)
}
