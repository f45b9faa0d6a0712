// Package sedp implements the Simple Endpoint Discovery Protocol: reliable,
// per-endpoint announcement of writers, readers and topics between already
// SPDP-discovered participants (spec §4.E).
package sedp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/plist"
	"github.com/dantte-lp/ddsdisc/internal/qos"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

// Kind distinguishes which SEDP builtin endpoint a sample arrived on.
type Kind int

const (
	KindWriter Kind = iota
	KindReader
	KindTopic
)

// Config carries the knobs HandleSedpChecks and the alive handlers consult.
type Config struct {
	DefaultLeaseDuration time.Duration
	AddrSet              addrset.BuilderConfig
	// DSBridgeEnabled allows a cloud-vendor SEDP sample to implicitly create
	// its proxy participant even though the peer never sent SPDP (spec §4.E
	// implicit creation, SPEC_FULL §[SUPPLEMENT]).
	DSBridgeEnabled bool
}

// Engine drives inbound SEDP handling and implicit proxy-participant
// creation.
type Engine struct {
	cfg        Config
	index      *entityindex.Index
	interfaces []locator.Interface
	conns      []locator.Conn
	logger     *slog.Logger
}

// New returns an Engine bound to index.
func New(cfg Config, index *entityindex.Index, interfaces []locator.Interface, conns []locator.Conn, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		index:      index,
		interfaces: interfaces,
		conns:      conns,
		logger:     logger.With(slog.String("component", "sedp")),
	}
}

// checkSedpKindAndGUID implements check_sedp_kind_and_guid: the entity kind
// byte of a SEDP sample's GUID must agree with the builtin endpoint it
// arrived on.
func checkSedpKindAndGUID(kind Kind, g guid.GUID) bool {
	switch kind {
	case KindWriter:
		return g.Entity.Kind() == guid.KindWriterWithKey || g.Entity.Kind() == guid.KindWriterNoKey
	case KindReader:
		return g.Entity.Kind() == guid.KindReaderWithKey || g.Entity.Kind() == guid.KindReaderNoKey
	case KindTopic:
		return g.Entity.Kind() == guid.KindTopic
	default:
		return false
	}
}

// HandleChecks implements handle_sedp_checks (spec §4.E "handle_sedp_checks
// preamble"): validates a SEDP sample and returns (creating if necessary)
// its owning proxy participant.
func (e *Engine) HandleChecks(
	kind Kind,
	entityGUID guid.GUID,
	data *plist.Plist,
	vendor vendorquirk.VendorID,
	locals []guid.GUID,
	tnow time.Time,
) (*entityindex.ProxyParticipant, error) {
	if !checkSedpKindAndGUID(kind, entityGUID) {
		return nil, fmt.Errorf("sedp: entity kind/guid mismatch for %s", entityGUID)
	}
	ppGUID := entityGUID.ParticipantGUID()

	if data.Present.Has(plist.PresentParticipantGUID) && data.ParticipantGUID != ppGUID {
		return nil, fmt.Errorf("sedp: endpoint/participant guid mismatch for %s", entityGUID)
	}
	if e.index.IsTombstoned(ppGUID, tnow) {
		return nil, fmt.Errorf("sedp: participant %s is a known-dead local guid", ppGUID)
	}
	for _, l := range locals {
		if l == ppGUID {
			return nil, fmt.Errorf("sedp: %s belongs to a local participant", ppGUID)
		}
	}
	// topic_name/type_name ride along in the QoS plist for this port (see
	// plist.BuildEndpointPlist); a sample carrying neither is malformed.
	if !data.Present.Has(plist.PresentQos) || data.QoS.EntityName == "" {
		return nil, fmt.Errorf("sedp: %s carries no topic/type name", entityGUID)
	}

	pp, ok := e.index.LookupProxyParticipant(ppGUID)
	if ok {
		return pp, nil
	}

	e.logger.Debug("sedp sample from unknown proxy participant, creating implicitly",
		slog.String("participant", ppGUID.String()),
		slog.String("entity", entityGUID.String()))
	return e.implicitlyCreateProxyParticipant(ppGUID, vendor, tnow)
}

// implicitlyCreateProxyParticipant implements implicitly_create_proxypp
// (spec §4.E implicit creation): a cloud-discovery-service bridge, or an
// Eclipse/OpenSplice peer running in minimal-BES mode, may be known only
// through its SEDP traffic.
func (e *Engine) implicitlyCreateProxyParticipant(ppGUID guid.GUID, vendor vendorquirk.VendorID, tnow time.Time) (*entityindex.ProxyParticipant, error) {
	quirks := vendorquirk.Of(vendor)
	if !quirks.Has(vendorquirk.QuirkCloudBridge) && !quirks.Has(vendorquirk.QuirkEclipseOpenSpliceDDSI2Dependent) {
		return nil, fmt.Errorf("sedp: refusing to implicitly create proxy participant %s for vendor without an implicit-creation quirk", ppGUID)
	}
	if quirks.Has(vendorquirk.QuirkCloudBridge) && !e.cfg.DSBridgeEnabled {
		return nil, fmt.Errorf("sedp: cloud discovery-service bridge is not enabled, refusing implicit creation of %s", ppGUID)
	}
	return e.index.CreateProxyParticipant(ppGUID, vendor, e.cfg.DefaultLeaseDuration, true, tnow)
}

// mergeEndpointDefaults implements the vendor-specific QoS merge
// (ddsi_xqos_mergein_missing plus the autodispose quirk, spec §4.E "vendor-
// specific QoS quirks").
func mergeEndpointDefaults(kind Kind, q qos.QoS, defaults qos.QoS, vendor vendorquirk.VendorID) qos.QoS {
	qos.MergeInMissing(&q, defaults, qos.MaskAll)
	if kind == KindWriter && !vendorquirk.IsEclipseOrAdlink(vendor) {
		q.Liveliness.AutodisposeUnregistered = false
	}
	return q
}

// EndpointAliveSample is an inbound SEDP writer/reader sample.
type EndpointAliveSample struct {
	Kind      Kind // KindWriter or KindReader
	GUID      guid.GUID
	Data      *plist.Plist
	SrcLocator locator.Locator
}

// HandleAliveEndpoint implements handle_sedp_alive_endpoint (spec §4.E
// "alive endpoint handling").
func (e *Engine) HandleAliveEndpoint(sample EndpointAliveSample, vendor vendorquirk.VendorID, locals []guid.GUID, defaults qos.QoS, tnow time.Time) error {
	pp, err := e.HandleChecks(sample.Kind, sample.GUID, sample.Data, vendor, locals, tnow)
	if err != nil {
		return err
	}

	q := mergeEndpointDefaults(sample.Kind, sample.Data.QoS, defaults, vendor)

	as, _ := addrset.FromLocatorLists(
		e.interfaces, e.conns,
		sample.Data.UnicastLocators.List, sample.Data.MulticastLocators.List,
		sample.SrcLocator, nil, e.cfg.AddrSet,
	)
	if as.Empty() && pp.DataAddrSet != nil {
		as.UnionFrom(pp.DataAddrSet)
	}

	// SEDP is reliable and endpoints may re-announce to update QoS; a repeat
	// announcement of an already-known writer/reader updates it in place
	// instead of being dropped as a duplicate (spec §4.E "either update the
	// existing proxy or create a new one").
	switch sample.Kind {
	case KindWriter:
		if _, ok := e.index.LookupProxyWriter(sample.GUID); ok {
			return e.index.UpdateProxyWriter(sample.GUID, q.EntityName, q, as)
		}
		return e.index.CreateProxyWriter(pp.GUID, entityindex.NewProxyWriter(sample.GUID, q.EntityName, q, as))
	case KindReader:
		if _, ok := e.index.LookupProxyReader(sample.GUID); ok {
			return e.index.UpdateProxyReader(sample.GUID, q.EntityName, q, as)
		}
		return e.index.CreateProxyReader(pp.GUID, entityindex.NewProxyReader(sample.GUID, q.EntityName, q, as))
	default:
		return fmt.Errorf("sedp: HandleAliveEndpoint called with topic kind")
	}
}

// HandleDeadEndpoint implements handle_sedp_dead_endpoint (spec §4.E "dead
// endpoint handling").
func (e *Engine) HandleDeadEndpoint(kind Kind, g guid.GUID) error {
	switch kind {
	case KindWriter:
		return e.index.DeleteProxyWriter(g)
	case KindReader:
		return e.index.DeleteProxyReader(g)
	default:
		return fmt.Errorf("sedp: HandleDeadEndpoint called with topic kind")
	}
}

// TopicAliveSample is an inbound SEDP topic sample (Cyclone topic-discovery
// extension, spec §4.E).
type TopicAliveSample struct {
	GUID guid.GUID
	Data *plist.Plist
}

// HandleAliveTopic implements handle_sedp_alive_topic.
func (e *Engine) HandleAliveTopic(sample TopicAliveSample, vendor vendorquirk.VendorID, locals []guid.GUID, tnow time.Time) error {
	pp, err := e.HandleChecks(KindTopic, sample.GUID, sample.Data, vendor, locals, tnow)
	if err != nil {
		return err
	}
	t := &entityindex.ProxyTopic{
		GUID: sample.GUID,
		Name: sample.Data.QoS.EntityName,
		QoS:  sample.Data.QoS,
	}
	return e.index.CreateProxyTopic(pp.GUID, t)
}

// HandleDeadTopic implements handle_sedp_dead_topic.
func (e *Engine) HandleDeadTopic(ppGUID, topicGUID guid.GUID) error {
	return e.index.DeleteProxyTopic(ppGUID, topicGUID)
}
