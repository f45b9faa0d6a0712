// Package addrset builds and maintains the transmit-ready address sets
// attached to proxy participants and proxy endpoints (spec §4.B).
package addrset

import (
	"sync/atomic"

	"github.com/dantte-lp/ddsdisc/internal/locator"
)

// AddressSet is an unordered, reference-counted collection of XLocator
// values (spec §3). There are never two entries with the same
// (kind, address, port, conn).
type AddressSet struct {
	refs  atomic.Int32
	locs  []locator.XLocator
}

// New returns a fresh, empty AddressSet with one reference held by the
// caller.
func New() *AddressSet {
	as := &AddressSet{}
	as.refs.Store(1)
	return as
}

// Ref increments the reference count and returns as, for chained use at
// call sites that hand the set to a second owner (e.g. a proxy reader
// sharing its proxy participant's as_default).
func (as *AddressSet) Ref() *AddressSet {
	as.refs.Add(1)
	return as
}

// Unref decrements the reference count. Callers must stop using as once
// the count reaches zero; the zero-value AddressSet has no further owners
// and its backing storage becomes eligible for GC.
func (as *AddressSet) Unref() {
	as.refs.Add(-1)
}

// add appends loc unless an equal entry already exists.
func (as *AddressSet) add(loc locator.XLocator) {
	for _, existing := range as.locs {
		if existing.Equal(loc) {
			return
		}
	}
	as.locs = append(as.locs, loc)
}

// AnyUC reports whether the set holds at least one unicast XLocator.
func (as *AddressSet) AnyUC() bool {
	for _, l := range as.locs {
		if !locator.IsMulticastAddress(l.Locator) {
			return true
		}
	}
	return false
}

// EmptyMC reports whether the set holds no multicast XLocator.
func (as *AddressSet) EmptyMC() bool {
	for _, l := range as.locs {
		if locator.IsMulticastAddress(l.Locator) {
			return false
		}
	}
	return true
}

// EmptyUC reports whether the set holds no unicast XLocator.
func (as *AddressSet) EmptyUC() bool {
	return !as.AnyUC()
}

// Empty reports whether the set holds no entries at all.
func (as *AddressSet) Empty() bool {
	return len(as.locs) == 0
}

// ForAll calls fn for every XLocator in the set. Read-only; safe for
// concurrent callers per spec §5 ("read-only queries... are thread-safe").
func (as *AddressSet) ForAll(fn func(locator.XLocator)) {
	for _, l := range as.locs {
		fn(l)
	}
}

// Len returns the number of distinct entries.
func (as *AddressSet) Len() int {
	return len(as.locs)
}

// CopyUC returns a fresh AddressSet containing only as's unicast entries.
func (as *AddressSet) CopyUC() *AddressSet {
	out := New()
	as.ForAll(func(x locator.XLocator) {
		if !locator.IsMulticastAddress(x.Locator) {
			out.add(x)
		}
	})
	return out
}

// CopyMC returns a fresh AddressSet containing only as's multicast entries.
func (as *AddressSet) CopyMC() *AddressSet {
	out := New()
	as.ForAll(func(x locator.XLocator) {
		if locator.IsMulticastAddress(x.Locator) {
			out.add(x)
		}
	})
	return out
}

// UnionFrom merges every entry of src into as (deduplicating).
func (as *AddressSet) UnionFrom(src *AddressSet) {
	if src == nil {
		return
	}
	src.ForAll(func(x locator.XLocator) {
		as.add(x)
	})
}
