package addrset_test

import (
	"net/netip"
	"testing"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/locator"
)

type fakeConn struct {
	name string
}

func (f *fakeConn) Supports(locator.Kind) bool { return true }
func (f *fakeConn) IsMulticast() bool          { return false }
func (f *fakeConn) IsLoopback() bool           { return false }

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return a
}

// TestFromLocatorListsExternalRewrite covers S6: an advertised unicast
// locator matching an interface's external address is rewritten to the
// interface's primary address and that interface is enabled.
func TestFromLocatorListsExternalRewrite(t *testing.T) {
	t.Parallel()

	eth0 := locator.Interface{
		Loc:    locator.FromNetipAddr(locator.KindUDPv4, mustAddr(t, "10.0.0.1"), 0),
		ExtLoc: locator.FromNetipAddr(locator.KindUDPv4, mustAddr(t, "203.0.113.5"), 0),
		Index:  0,
	}
	conn0 := &fakeConn{name: "eth0"}
	uc := []locator.Locator{locator.FromNetipAddr(locator.KindUDPv4, mustAddr(t, "203.0.113.5"), 7410)}

	as, intfs := addrset.FromLocatorLists(
		[]locator.Interface{eth0}, []locator.Conn{conn0},
		uc, nil, locator.Invalid, nil, addrset.BuilderConfig{},
	)

	if as.Len() != 1 {
		t.Fatalf("expected exactly 1 XLocator, got %d", as.Len())
	}
	var got locator.XLocator
	as.ForAll(func(x locator.XLocator) { got = x })
	if !got.Locator.SameAddress(eth0.Loc) {
		t.Fatalf("expected rewritten address %v, got %v", eth0.Loc, got.Locator)
	}
	if got.Conn != conn0 {
		t.Fatal("expected XLocator bound to eth0's connection")
	}
	if !intfs.Has(0) {
		t.Fatal("expected interface 0 enabled in InterfaceSet")
	}
}

// TestFromLocatorListsLoopbackWithoutMatch covers S5: a loopback advertised
// address with a non-loopback-only interface set and no source locator
// yields an empty set and direct=false (observed via an empty InterfaceSet
// since nothing was marked direct/enabled).
func TestFromLocatorListsLoopbackWithoutMatch(t *testing.T) {
	t.Parallel()

	eth0 := locator.Interface{
		Loc:   locator.FromNetipAddr(locator.KindUDPv4, mustAddr(t, "10.0.0.1"), 0),
		Index: 0,
	}
	uc := []locator.Locator{locator.FromNetipAddr(locator.KindUDPv4, mustAddr(t, "127.0.0.1"), 7410)}

	as, intfs := addrset.FromLocatorLists(
		[]locator.Interface{eth0}, []locator.Conn{&fakeConn{}},
		uc, nil, locator.Invalid, nil, addrset.BuilderConfig{},
	)

	if !as.Empty() {
		t.Fatalf("expected empty address set, got %d entries", as.Len())
	}
	if !intfs.Empty() {
		t.Fatal("expected no interfaces enabled")
	}
}

// TestFromLocatorListsMulticastGating verifies invariant 4: an SSM address
// is only admitted when the SSM bit is set, even if ASM is allowed.
func TestFromLocatorListsMulticastGating(t *testing.T) {
	t.Parallel()

	eth0 := locator.Interface{
		Loc:       locator.FromNetipAddr(locator.KindUDPv4, mustAddr(t, "10.0.0.1"), 0),
		MCCapable: true,
		Index:     0,
	}
	uc := []locator.Locator{locator.FromNetipAddr(locator.KindUDPv4, mustAddr(t, "10.0.0.1"), 7410)}
	mc := []locator.Locator{locator.FromNetipAddr(locator.KindUDPv4, mustAddr(t, "232.1.2.3"), 7400)}

	as, _ := addrset.FromLocatorLists(
		[]locator.Interface{eth0}, []locator.Conn{&fakeConn{}},
		uc, mc, locator.Invalid, nil,
		addrset.BuilderConfig{AllowMulticast: addrset.AllowASM},
	)
	if !as.EmptyMC() {
		t.Fatal("expected SSM address to be rejected when only ASM is allowed")
	}

	as2, _ := addrset.FromLocatorLists(
		[]locator.Interface{eth0}, []locator.Conn{&fakeConn{}},
		uc, mc, locator.Invalid, nil,
		addrset.BuilderConfig{AllowMulticast: addrset.AllowASM | addrset.AllowSSM},
	)
	if as2.EmptyMC() {
		t.Fatal("expected SSM address to be admitted once SSM bit is set")
	}
}
