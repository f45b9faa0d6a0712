// Package netpartition defines the capability-injection contract for the
// network-partitioning feature toggle (spec §4.E: "readers iterate...
// network-partition address sets").
package netpartition

import (
	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/guid"
)

// Capability is the common "is this feature active" probe.
type Capability interface {
	Active() bool
}

// Provider resolves a reader's effective address set under network
// partitioning rules, when active.
type Provider interface {
	Capability
	AddressSetFor(readerGUID guid.GUID, fallback *addrset.AddressSet) *addrset.AddressSet
}

// Noop is the default, always-inactive Provider: every reader uses its own
// address set unchanged.
type Noop struct{}

func (Noop) Active() bool { return false }

func (Noop) AddressSetFor(_ guid.GUID, fallback *addrset.AddressSet) *addrset.AddressSet {
	return fallback
}

var _ Provider = Noop{}
