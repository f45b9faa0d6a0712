// Package entityindex owns the GUID-keyed registries of local and remote
// discovery entities: participants, proxy participants, proxy topics,
// proxy writers and proxy readers (spec §4.A). It is the single place that
// knows which entities exist and how they are related (ownership,
// liveliness leases, privileged-participant dependency chains).
package entityindex

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/lease"
	"github.com/dantte-lp/ddsdisc/internal/plist"
	"github.com/dantte-lp/ddsdisc/internal/qos"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

// Participant is a local DDS participant, the thing whose identity SPDP
// advertises to the rest of the domain (spec §3 "Participant").
type Participant struct {
	GUID      guid.GUID
	DomainID  uint32
	CreatedAt time.Time

	mu    sync.RWMutex
	plist *plist.Plist
}

// Plist returns a copy-by-reference of the participant's current built
// discovery data. Callers must not mutate the returned value.
func (p *Participant) Plist() *plist.Plist {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.plist
}

// SetPlist replaces the participant's built discovery data, e.g. after a
// QoS change forces a fresh build_participant_plist (spec §4.C).
func (p *Participant) SetPlist(pl *plist.Plist) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plist = pl
}

// ProxyParticipant represents a remote participant learned via SPDP (spec
// §3 "ProxyParticipant"). It owns the ProxyTopics discovered from that
// peer; ProxyWriters and ProxyReaders are owned by the Index itself and
// only carry a non-owning back-reference here (spec §4.A ownership note).
type ProxyParticipant struct {
	GUID     guid.GUID
	VendorID vendorquirk.VendorID
	Quirks   vendorquirk.Quirks

	BuiltinEndpointSet plist.BuiltinEndpointSet

	// Seq is the sequence number of the last SPDP alive sample applied to
	// this proxy participant's state, used to reject stale re-announcements
	// that arrive out of order (spec §3 "seq", §8 testable property 2).
	Seq uint64

	// IsSecure records whether the peer's last applied SPDP sample carried
	// the secure-announcer builtin endpoint together with an identity token
	// (spec §4.D step 5).
	IsSecure bool

	// MetatrafficAddrSet carries the locators discovery traffic (SPDP/SEDP)
	// is sent to; DataAddrSet carries the locators user data defaults to
	// when an endpoint does not narrow it further (spec §4.B).
	MetatrafficAddrSet *addrset.AddressSet
	DataAddrSet        *addrset.AddressSet

	// PrivilegedPPGUID is set when this participant is assumed to depend on
	// a co-located DDSI2/OpenSplice gateway for liveliness (spec §4.D step 8,
	// zero GUID when not dependent).
	PrivilegedPPGUID guid.GUID

	// Implicit marks a proxy participant that was never announced via SPDP
	// and was instead synthesized from an incoming SEDP endpoint (spec §4.E
	// implicit creation, cloud-bridge / minimal-BES-mode peers).
	Implicit bool

	Lease *lease.Lease

	mu          sync.RWMutex
	proxyTopics map[guid.GUID]*ProxyTopic
	// dependents holds the GUIDs of proxy participants whose PrivilegedPPGUID
	// points at this one, so deleting a DDSI2 gateway can cascade to the
	// participants it was carrying (spec §4.D step 8 dependency chain).
	dependents map[guid.GUID]struct{}
}

func newProxyParticipant(g guid.GUID, vendor vendorquirk.VendorID, ld time.Duration, now time.Time) *ProxyParticipant {
	return &ProxyParticipant{
		GUID:        g,
		VendorID:    vendor,
		Quirks:      vendorquirk.Of(vendor),
		Lease:       lease.New(g, ld, now),
		proxyTopics: make(map[guid.GUID]*ProxyTopic),
		dependents:  make(map[guid.GUID]struct{}),
	}
}

// Topics returns a snapshot slice of the proxy topics this participant
// currently owns.
func (pp *ProxyParticipant) Topics() []*ProxyTopic {
	pp.mu.RLock()
	defer pp.mu.RUnlock()
	out := make([]*ProxyTopic, 0, len(pp.proxyTopics))
	for _, t := range pp.proxyTopics {
		out = append(out, t)
	}
	return out
}

// ProxyTopic represents a remote topic learned via SEDP topic discovery
// (spec §3 "ProxyTopic", Cyclone topic-discovery extension).
type ProxyTopic struct {
	GUID     guid.GUID
	Name     string
	TypeName string
	QoS      qos.QoS
}

// proxyEndpointCommon is embedded by ProxyWriter and ProxyReader; it holds
// the fields both kinds of proxy endpoint share (spec §3 "ProxyWriter" /
// "ProxyReader").
type proxyEndpointCommon struct {
	GUID      guid.GUID
	PPGUID    guid.GUID // non-owning back-link to the owning ProxyParticipant
	TopicName string
	TypeName  string
	QoS       qos.QoS
	AddrSet   *addrset.AddressSet
	Alive     bool

	// nextDelivSeqLowword tracks next_deliv_seq_lowword (spec §4.F dispatcher
	// monotonicity, §8 property 8): the dispatcher advances it to
	// sampleinfo.seq+1 after processing a sample from this proxy writer,
	// even when the sample's payload failed to parse.
	nextDelivSeqLowword atomic.Uint32
}

// NextDelivSeqLowword returns the low word of the next sequence number this
// proxy endpoint expects to deliver.
func (c *proxyEndpointCommon) NextDelivSeqLowword() uint32 {
	return c.nextDelivSeqLowword.Load()
}

// AdvanceDelivSeq sets next_deliv_seq_lowword to uint32(seq+1), the
// dispatcher's post-processing step (spec §4.F, §8 property 8).
func (c *proxyEndpointCommon) AdvanceDelivSeq(seq uint64) {
	c.nextDelivSeqLowword.Store(uint32(seq + 1))
}

// ProxyWriter represents a remote DataWriter learned via SEDP publication
// discovery.
type ProxyWriter struct {
	proxyEndpointCommon
}

// NewProxyWriter builds a live ProxyWriter for g, ready for
// Index.CreateProxyWriter.
func NewProxyWriter(g guid.GUID, topicName string, q qos.QoS, as *addrset.AddressSet) *ProxyWriter {
	return &ProxyWriter{proxyEndpointCommon{GUID: g, TopicName: topicName, QoS: q, AddrSet: as, Alive: true}}
}

// ProxyReader represents a remote DataReader learned via SEDP subscription
// discovery.
type ProxyReader struct {
	proxyEndpointCommon
	FavoursSSM bool
}

// NewProxyReader builds a live ProxyReader for g, ready for
// Index.CreateProxyReader.
func NewProxyReader(g guid.GUID, topicName string, q qos.QoS, as *addrset.AddressSet) *ProxyReader {
	return &ProxyReader{proxyEndpointCommon: proxyEndpointCommon{GUID: g, TopicName: topicName, QoS: q, AddrSet: as, Alive: true}}
}
