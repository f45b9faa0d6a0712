package addrset

import (
	"github.com/dantte-lp/ddsdisc/internal/locator"
)

// MulticastPolicy is the allow_multicast bitset named in spec §6's
// configuration surface.
type MulticastPolicy uint8

const (
	AllowASM MulticastPolicy = 1 << iota
	AllowSSM
	AllowSPDP
	AllowASMDefault
	AllowSPDPASM
)

// Has reports whether bit is set in p.
func (p MulticastPolicy) Has(bit MulticastPolicy) bool {
	return p&bit != 0
}

// BuilderConfig carries the domain-level knobs the builder consults (spec
// §4.B and §6).
type BuilderConfig struct {
	// AllowMulticast gates which multicast addresses may be admitted.
	AllowMulticast MulticastPolicy
	// MulticastTTL is the domain's multicast hop limit; >1 is read as "
	// assume multicast routing works" per spec §4.B step 6.
	MulticastTTL uint8
	// DontRoute disables the "distant address, pick a routing-capable
	// interface" fallback (spec §4.B step 3).
	DontRoute bool
}

// locatorSet is the per-call mutable builder state threaded through the
// steps of spec §4.B's algorithm.
type locatorSet struct {
	interfaces []locator.Interface
	conns      []locator.Conn // conns[i] is the transmit connection for interfaces[i]
	cfg        BuilderConfig
	out        *AddressSet
	intfs      locator.InterfaceSet
	direct     bool
}

// FromLocatorLists implements addrset_from_locatorlists (spec §4.B).
//
// interfaces and conns are parallel slices indexed by locator.Interface.Index.
// inherited, if non-nil, seeds the InterfaceSet fallback in step 5.
func FromLocatorLists(
	interfaces []locator.Interface,
	conns []locator.Conn,
	uc, mc []locator.Locator,
	srcloc locator.Locator,
	inherited *locator.InterfaceSet,
	cfg BuilderConfig,
) (*AddressSet, locator.InterfaceSet) {
	ls := &locatorSet{
		interfaces: interfaces,
		conns:      conns,
		cfg:        cfg,
		out:        New(),
	}

	allowLoopback := computeAllowLoopback(interfaces, uc)

	// Step 3: advertised unicast locators.
	for _, l := range uc {
		ls.addOne(l, allowLoopback)
	}

	// Step 4: fall back to the source locator if nothing matched yet.
	if ls.out.Empty() && !srcloc.IsUnspecified() {
		ls.addOne(srcloc, allowLoopback)
	}

	// Step 5/6: interface-set fallback for subsequent multicast admission.
	if ls.out.Empty() && inherited != nil {
		ls.intfs.Union(*inherited)
	} else if !ls.direct && cfg.MulticastTTL > 1 {
		for _, intf := range interfaces {
			if !intf.LinkLocal && !intf.Loopback {
				ls.intfs.Set(intf.Index)
			}
		}
	}

	// Step 7: advertised multicast locators, gated by enabled+mc-capable
	// interfaces and the allow_multicast policy.
	for _, m := range mc {
		ls.addMulticast(m)
	}

	return ls.out, ls.intfs
}

// computeAllowLoopback implements spec §4.B step 2.
func computeAllowLoopback(interfaces []locator.Interface, uc []locator.Locator) bool {
	allLocalLoopback := len(interfaces) > 0
	for _, intf := range interfaces {
		if !intf.Loopback {
			allLocalLoopback = false
			break
		}
	}
	if allLocalLoopback {
		return true
	}

	allUCLoopback := len(uc) > 0
	for _, l := range uc {
		if !locator.IsLoopbackAddress(l) {
			allUCLoopback = false
			break
		}
	}
	if allUCLoopback {
		return true
	}

	for _, l := range uc {
		if locator.IsLoopbackAddress(l) {
			continue
		}
		if n, _ := locator.IsNearbyAddress(l, interfaces); n == locator.Self {
			return true
		}
	}
	return false
}

// addOne implements addrset_from_locatorlists_add_one (spec §4.B step 3):
// rewrite, classify, and admit a single advertised unicast locator.
func (ls *locatorSet) addOne(l locator.Locator, allowLoopback bool) {
	if l.IsInvalid() || l.IsUnspecified() {
		return
	}
	if locator.IsLoopbackAddress(l) && !allowLoopback {
		return
	}

	l = ls.rewriteExternal(l)
	l = ls.rewriteLegacyNAT(l)

	n, idx := locator.IsNearbyAddress(l, ls.interfaces)
	switch n {
	case locator.Self, locator.Local:
		ls.out.add(locator.XLocator{Locator: l, Conn: ls.connFor(idx)})
		ls.intfs.Set(idx)
		ls.direct = true
	case locator.Distant:
		if ls.cfg.DontRoute {
			return
		}
		if i, ok := firstRoutingCapable(ls.interfaces); ok {
			ls.out.add(locator.XLocator{Locator: l, Conn: ls.connFor(i)})
		}
	case locator.Unreachable:
		// dropped
	}
}

// rewriteExternal implements "External-address rewriting": if l matches the
// external address of some interface, substitute that interface's primary
// address.
func (ls *locatorSet) rewriteExternal(l locator.Locator) locator.Locator {
	for _, intf := range ls.interfaces {
		if l.SameAddress(intf.ExtLoc) && !intf.ExtLoc.IsInvalid() {
			rewritten := intf.Loc
			rewritten.Port = l.Port
			return rewritten
		}
	}
	return l
}

// rewriteLegacyNAT implements "Legacy NAT-mask rewriting" (UDPv4 only,
// single-interface domains only, spec §4.B step 3 and Design Notes §9's
// open question about multi-interface behavior being unspecified — this
// implementation asserts single-interface and no-ops otherwise).
func (ls *locatorSet) rewriteLegacyNAT(l locator.Locator) locator.Locator {
	if l.Kind != locator.KindUDPv4 {
		return l
	}
	if len(ls.interfaces) != 1 {
		return l
	}
	intf := ls.interfaces[0]
	if intf.ExtMask.IsInvalid() || intf.ExtLoc.IsInvalid() {
		return l
	}
	mask := intf.ExtMask.Address
	ext := intf.ExtLoc.Address
	own := intf.Loc.Address

	inExtSubnet := true
	for i := range mask {
		if mask[i] == 0 {
			continue
		}
		if l.Address[i]&mask[i] != ext[i]&mask[i] {
			inExtSubnet = false
			break
		}
	}
	if !inExtSubnet {
		return l
	}

	out := l
	for i := range mask {
		if mask[i] != 0 {
			out.Address[i] = (out.Address[i] &^ mask[i]) | (own[i] & mask[i])
		}
	}
	return out
}

// addMulticast implements spec §4.B step 7.
func (ls *locatorSet) addMulticast(m locator.Locator) {
	if m.IsInvalid() || m.IsUnspecified() {
		return
	}

	isSSM := locator.IsSSMMulticastAddress(m)
	if isSSM {
		if !ls.cfg.AllowMulticast.Has(AllowSSM) {
			return
		}
	} else if !ls.cfg.AllowMulticast.Has(AllowASM) {
		return
	}

	ls.intfs.ForEach(func(idx uint8) {
		intf := findInterface(ls.interfaces, idx)
		if intf == nil || !intf.MCCapable {
			return
		}
		ls.out.add(locator.XLocator{Locator: m, Conn: ls.connFor(idx)})
	})
}

func (ls *locatorSet) connFor(idx uint8) locator.Conn {
	if int(idx) < len(ls.conns) {
		return ls.conns[idx]
	}
	return nil
}

func findInterface(interfaces []locator.Interface, idx uint8) *locator.Interface {
	for i := range interfaces {
		if interfaces[i].Index == idx {
			return &interfaces[i]
		}
	}
	return nil
}

// firstRoutingCapable returns the first interface that is neither
// link-local nor loopback (spec §4.B step 3, DISTANT case).
func firstRoutingCapable(interfaces []locator.Interface) (uint8, bool) {
	for _, intf := range interfaces {
		if !intf.LinkLocal && !intf.Loopback {
			return intf.Index, true
		}
	}
	return 0, false
}
