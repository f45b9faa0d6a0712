// Package spdp implements the Simple Participant Discovery Protocol: the
// periodic best-effort multicast (and directed unicast reply) by which
// participants announce themselves and learn of their peers (spec §4.D).
package spdp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/discovery/scheduler"
	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/plist"
	"github.com/dantte-lp/ddsdisc/internal/security"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

// secureBES is every secure-variant builtin endpoint bit (spec §4.D step 5).
const secureBES = plist.BESSecureParticipantAnnouncer | plist.BESSecureParticipantDetector |
	plist.BESSecurePublicationAnnouncer | plist.BESSecurePublicationDetector |
	plist.BESSecureSubscriptionAnnouncer | plist.BESSecureSubscriptionDetector

// Config carries the domain-level knobs this engine's inbound and outbound
// paths consult (spec §6's Domain configuration surface, SPEC_FULL
// §[AMBIENT]).
type Config struct {
	DomainID  uint32
	DomainTag string

	// DefaultLeaseDuration is used when a peer's QoS carries no explicit
	// liveliness lease duration (spec §4.D step 7).
	DefaultLeaseDuration time.Duration

	SPDPResponseDelayMax         time.Duration
	UnicastResponseToSPDPMessages bool

	AddrSet addrset.BuilderConfig
}

// Engine drives both directions of SPDP for one local domain participant
// set (spec §4.D).
type Engine struct {
	cfg        Config
	sec        security.Provider
	index      *entityindex.Index
	interfaces []locator.Interface
	conns      []locator.Conn
	logger     *slog.Logger
	clock      func() time.Time
}

// New returns an Engine bound to index, using interfaces/conns (parallel,
// indexed by locator.Interface.Index) to build address sets. sec governs the
// secure-flag handling of step 5 (spec §4.D step 5, §AMBIENT-SECURITY); a
// nil sec behaves like security.Noop{} (no peer is ever treated as secure).
func New(cfg Config, sec security.Provider, index *entityindex.Index, interfaces []locator.Interface, conns []locator.Conn, logger *slog.Logger) *Engine {
	if sec == nil {
		sec = security.Noop{}
	}
	return &Engine{
		cfg:        cfg,
		sec:        sec,
		index:      index,
		interfaces: interfaces,
		conns:      conns,
		logger:     logger.With(slog.String("component", "spdp")),
		clock:      time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

// Write announces src on wr (spec §4.D "outbound Write").
func (e *Engine) Write(wr plist.BuiltinWriter, src plist.ParticipantSource) error {
	p := plist.BuildParticipantPlist(src)
	return plist.WriteAndFiniPlist(wr, p, true, e.now)
}

// DisposeUnregister announces the deletion of the local participant g
// (spec §4.D "outbound DisposeUnregister").
func (e *Engine) DisposeUnregister(wr plist.BuiltinWriter, g guid.GUID) error {
	p := plist.BuildParticipantDisposePlist(g, plist.StatusInfoDispose|plist.StatusInfoUnregister)
	return plist.WriteAndFiniPlist(wr, p, false, e.now)
}

// AliveSample is an inbound SPDP alive sample together with the RTPS
// submessage metadata HandleAlive needs beyond the parsed plist itself.
type AliveSample struct {
	Data          *plist.Plist
	SourceLocator locator.Locator

	// Seq is the sample's sequence number (the RTPS Data submessage's
	// writerSN), used to reject stale re-announcements out of order (spec
	// §4.D step 4, §8 testable property 2: "new.seq > old.seq").
	Seq uint64
}

// HandleAlive implements handle_spdp_alive (spec §4.D): validates the
// sample, applies vendor quirks, builds the peer's address sets, and
// creates or refreshes its ProxyParticipant. It returns the resulting
// proxy participant and whether it was newly created (false means an
// existing one's lease was simply renewed).
func (e *Engine) HandleAlive(sample AliveSample, locals []guid.GUID, tnow time.Time) (*entityindex.ProxyParticipant, bool, error) {
	data := sample.Data

	// Step 1: domain filter.
	if data.Present.Has(plist.PresentDomainID) && data.DomainID != e.cfg.DomainID {
		return nil, false, fmt.Errorf("spdp: domain id %d does not match local domain %d", data.DomainID, e.cfg.DomainID)
	}
	if e.cfg.DomainTag != "" && data.Present.Has(plist.PresentDomainTag) && data.DomainTag != e.cfg.DomainTag {
		return nil, false, fmt.Errorf("spdp: domain tag %q does not match local tag %q", data.DomainTag, e.cfg.DomainTag)
	}

	// Step 2: required parameters.
	if !data.Present.Has(plist.PresentParticipantGUID) {
		return nil, false, fmt.Errorf("spdp: missing PARTICIPANT_GUID")
	}
	if !data.Present.Has(plist.PresentBuiltinEndpointSet) {
		return nil, false, fmt.Errorf("spdp: missing BUILTIN_ENDPOINT_SET")
	}
	peerGUID := data.ParticipantGUID

	// Step 3: ignore samples that describe one of our own local participants.
	for _, l := range locals {
		if l == peerGUID {
			return nil, false, nil
		}
	}

	// Step 4: duplicate suppression against a recently-deleted participant.
	if e.index.IsTombstoned(peerGUID, tnow) {
		e.logger.Debug("ignoring spdp alive for tombstoned participant", slog.String("guid", peerGUID.String()))
		return nil, false, nil
	}

	quirks := vendorquirk.Of(data.VendorID)
	bes := data.BuiltinEndpointSet
	if quirks.Has(vendorquirk.QuirkRTIMissingPMD) {
		bes |= plist.BESParticipantMessageDataWriter | plist.BESParticipantMessageDataReader
	}

	// Step 5: secure flag handling (spec §4.D step 5, scenario S2). A
	// secure-announcer bit with no identity token is not trustworthy; mask
	// off every security-related builtin endpoint and treat the peer as
	// non-secure rather than rejecting it outright.
	hasToken := data.Present.Has(plist.PresentIdentityToken)
	isSecure := false
	if bes&secureBES != 0 {
		if hasToken {
			isSecure = true
		} else {
			bes &^= secureBES
			if e.sec.Active() {
				e.logger.Warn("peer announced secure builtin endpoints with no identity token, masking",
					slog.String("guid", peerGUID.String()))
			}
		}
	}

	isDDSI2 := plist.ParticipantIsDDSI2FromFlags(data.AdlinkVersionInfo.Flags)

	leaseDuration := e.cfg.DefaultLeaseDuration
	if data.Present.Has(plist.PresentQos) && data.QoS.Liveliness.LeaseDuration != 0 {
		leaseDuration = time.Duration(data.QoS.Liveliness.LeaseDuration)
	}

	// Step 4 (continued): an existing proxy participant is refreshed rather
	// than recreated. Its lease is always renewed; its state (BES, address
	// sets, secure flag) is only merged in when the sample is newer than
	// what is stored, or the proxy was only ever implicitly created via SEDP
	// (spec §4.D step 4, §8 testable property 2).
	if existing, ok := e.index.LookupProxyParticipant(peerGUID); ok {
		existing.Lease.Renew(tnow)
		if sample.Seq > existing.Seq || existing.Implicit {
			metaAS, dataAS, ok := e.buildAddressSets(data, sample.SourceLocator)
			if !ok {
				e.logger.Debug("spdp update rejected: no unicast address in address set",
					slog.String("guid", peerGUID.String()))
				return existing, false, nil
			}
			if err := e.index.UpdateProxyParticipant(peerGUID, sample.Seq, bes, isSecure, metaAS, dataAS); err != nil {
				e.logger.Warn("failed to merge spdp update into proxy participant",
					slog.String("guid", peerGUID.String()), slog.Any("error", err))
			}
		}
		return existing, false, nil
	}

	// Step 9: reject a brand-new peer outright if it offers no usable
	// unicast address (spec §4.D step 9, §7 resource-exhaustion drop).
	metaAS, dataAS, ok := e.buildAddressSets(data, sample.SourceLocator)
	if !ok {
		return nil, false, fmt.Errorf("spdp: %s offers no unicast address, rejecting (no address)", peerGUID)
	}

	pp, err := e.index.CreateProxyParticipant(peerGUID, data.VendorID, leaseDuration, false, tnow)
	if err != nil {
		return nil, false, fmt.Errorf("spdp: %w", err)
	}
	pp.BuiltinEndpointSet = bes
	pp.Seq = sample.Seq
	pp.IsSecure = isSecure
	pp.MetatrafficAddrSet = metaAS
	pp.DataAddrSet = dataAS

	// Step 8: privileged-participant dependency linking (spec §4.D step 8).
	if !isDDSI2 && quirks.Has(vendorquirk.QuirkEclipseOpenSpliceDDSI2Dependent) {
		if gateway, ok := e.findDDSI2Gateway(peerGUID); ok {
			if err := e.index.SetPrivilegedParticipant(peerGUID, gateway); err != nil {
				e.logger.Warn("failed to link privileged participant",
					slog.String("dependent", peerGUID.String()),
					slog.String("privileged", gateway.String()),
					slog.Any("error", err))
			}
		}
	}

	e.logger.Info("proxy participant discovered via spdp",
		slog.String("guid", peerGUID.String()),
		slog.Bool("ddsi2", isDDSI2),
		slog.Bool("secure", isSecure))

	return pp, true, nil
}

// buildAddressSets constructs the metatraffic and default-data address sets
// for a proxy participant (spec §4.B, §4.D step 9). ok is false when either
// set ends up with no unicast address, in which case the caller must reject
// the sample rather than act on the returned sets.
func (e *Engine) buildAddressSets(data *plist.Plist, srcloc locator.Locator) (metaAS, dataAS *addrset.AddressSet, ok bool) {
	metaUC := data.MetatrafficUnicastLocators.List
	metaMC := data.MetatrafficMulticastLocators.List
	metaAS, intfs := addrset.FromLocatorLists(e.interfaces, e.conns, metaUC, metaMC, srcloc, nil, e.cfg.AddrSet)

	defUC := data.DefaultUnicastLocators.List
	defMC := data.DefaultMulticastLocators.List
	dataAS, _ = addrset.FromLocatorLists(e.interfaces, e.conns, defUC, defMC, srcloc, &intfs, e.cfg.AddrSet)

	if !metaAS.AnyUC() || !dataAS.AnyUC() {
		return metaAS, dataAS, false
	}
	return metaAS, dataAS, true
}

// findDDSI2Gateway looks for an existing proxy participant that shares
// dependent's GUID prefix (i.e. runs on the same host/domain instance) and
// is itself flagged as a DDSI2-capable gateway (spec §4.D step 8). This
// core has no host-identity channel beyond the GUID prefix, so same-prefix
// is the only signal available to it; a genuine multi-participant-per-host
// Eclipse deployment additionally needs the ADLINK_PARTICIPANT_VERSION_INFO
// host string match, which callers may layer on top via the returned GUID.
func (e *Engine) findDDSI2Gateway(dependent guid.GUID) (guid.GUID, bool) {
	for _, pp := range e.index.ProxyParticipants() {
		if pp.GUID == dependent {
			continue
		}
		if pp.GUID.SamePrefix(dependent) && pp.Quirks.Has(vendorquirk.QuirkEclipseOpenSpliceDDSI2Dependent) {
			continue // a sibling dependent, not the gateway itself
		}
		if pp.GUID.SamePrefix(dependent) {
			return pp.GUID, true
		}
	}
	return guid.GUID{}, false
}

// HandleDead implements handle_spdp_dead (spec §4.D): deletes the proxy
// participant and everything it owns or that depends on it.
func (e *Engine) HandleDead(peerGUID guid.GUID, tnow time.Time) ([]guid.GUID, error) {
	deleted, err := e.index.DeleteProxyParticipant(peerGUID, tnow)
	if err != nil {
		return nil, fmt.Errorf("spdp: %w", err)
	}
	return deleted, nil
}

// RespondTo implements respond_to_spdp (spec §4.G): schedules a reply from
// every local participant to dest, either via a directed queued event or by
// rescheduling each local's periodic broadcast, depending on configuration.
func (e *Engine) RespondTo(locals []scheduler.LocalParticipant, dest guid.GUID, tnow time.Time, queue scheduler.DirectedQueue) {
	scheduler.ScheduleResponses(locals, dest, tnow, e.cfg.SPDPResponseDelayMax, e.cfg.UnicastResponseToSPDPMessages, queue)
}
