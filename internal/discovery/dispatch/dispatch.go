// Package dispatch implements the discovery dispatcher: the single point
// that demultiplexes an inbound builtin-reader sample to the SPDP, SEDP or
// PMD engine by its destination entity id, and maintains each proxy
// writer's delivery sequence bookkeeping (spec §4.F).
package dispatch

import (
	"log/slog"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/discovery/sedp"
	"github.com/dantte-lp/ddsdisc/internal/discovery/spdp"
	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/plist"
	"github.com/dantte-lp/ddsdisc/internal/pmd"
	"github.com/dantte-lp/ddsdisc/internal/qos"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

// Sample is an inbound RTPS data sample addressed to one of the builtin
// discovery reader entity ids, already normalized (Data/DataFrag flags,
// inline-QoS parsing) by the RTPS receive path upstream of this package
// (spec §4.F preamble).
type Sample struct {
	// ReaderEntityID is the destination builtin reader this sample arrived
	// on; it alone selects which protocol handles the sample.
	ReaderEntityID guid.EntityID
	// WriterGUID is the GUID of the remote entity that wrote the sample:
	// the peer participant for SPDP, the peer endpoint/topic for SEDP, the
	// peer participant for PMD.
	WriterGUID guid.GUID
	// Seq is the sample's sequence number, used to advance the owning
	// proxy writer's next_deliv_seq_lowword (spec §8 property 8). SPDP
	// samples have no associated proxy writer and never update one.
	Seq uint64
	// Alive is false for a dispose/unregister sample (STATUSINFO carried
	// DISPOSE|UNREGISTER).
	Alive      bool
	Data       *plist.Plist
	SrcLocator locator.Locator
	Vendor     vendorquirk.VendorID
	// PMDKind is set by the decoder when ReaderEntityID names the
	// ParticipantMessageData builtin reader; PMD's payload is a distinct
	// serialized type, not a plist, so it rides in its own field rather
	// than Data.
	PMDKind pmd.Kind
}

// Dispatcher owns no state of its own beyond the engines it forwards to; it
// exists to centralize the entity-id switch spec §4.F describes as
// `builtins_dqueue_handler`.
type Dispatcher struct {
	spdp   *spdp.Engine
	sedp   *sedp.Engine
	pmd    *pmd.Manager
	index  *entityindex.Index
	logger *slog.Logger
}

// New returns a Dispatcher forwarding to the given engines.
func New(spdpEngine *spdp.Engine, sedpEngine *sedp.Engine, pmdManager *pmd.Manager, index *entityindex.Index, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		spdp:   spdpEngine,
		sedp:   sedpEngine,
		pmd:    pmdManager,
		index:  index,
		logger: logger.With(slog.String("component", "dispatch")),
	}
}

// HandleSample implements builtins_dqueue_handler's dispatch step (spec
// §4.F): it routes s to the owning protocol engine by ReaderEntityID, then
// advances the originating proxy writer's delivery sequence, unconditionally
// and even when the routed handler reports an error, matching "even on
// parse failure" (spec §4.F, §8 property 8).
func (d *Dispatcher) HandleSample(s Sample, locals []guid.GUID, endpointDefaults qos.QoS, tnow time.Time) {
	switch s.ReaderEntityID {
	case SPDPBuiltinParticipantReader, SPDPBuiltinParticipantSecureWriter:
		d.handleSPDP(s, locals, tnow)
		// SPDP samples have no associated proxy writer (spec §4.F), so there
		// is no next_deliv_seq_lowword to advance here.
		return

	case SEDPBuiltinPublicationsReader:
		d.handleSEDPEndpoint(sedp.KindWriter, s, locals, endpointDefaults, tnow)

	case SEDPBuiltinSubscriptionsReader:
		d.handleSEDPEndpoint(sedp.KindReader, s, locals, endpointDefaults, tnow)

	case SEDPBuiltinTopicReader:
		d.handleSEDPTopic(s, locals, tnow)

	case P2PBuiltinParticipantMessageReader:
		d.handlePMD(s, tnow)

	default:
		d.logger.Debug("dropping sample for unrecognized builtin reader",
			slog.String("writer_guid", s.WriterGUID.String()))
		return
	}

	d.advanceSeq(s)
}

func (d *Dispatcher) handleSPDP(s Sample, locals []guid.GUID, tnow time.Time) {
	if !s.Alive {
		if _, err := d.spdp.HandleDead(s.WriterGUID, tnow); err != nil {
			d.logger.Debug("spdp dead sample dropped", slog.Any("error", err))
		}
		return
	}
	if _, _, err := d.spdp.HandleAlive(spdp.AliveSample{Data: s.Data, SourceLocator: s.SrcLocator, Seq: s.Seq}, locals, tnow); err != nil {
		d.logger.Debug("spdp alive sample dropped", slog.Any("error", err))
	}
}

func (d *Dispatcher) handleSEDPEndpoint(kind sedp.Kind, s Sample, locals []guid.GUID, defaults qos.QoS, tnow time.Time) {
	if !s.Alive {
		if err := d.sedp.HandleDeadEndpoint(kind, s.WriterGUID); err != nil {
			d.logger.Debug("sedp dead endpoint dropped", slog.Any("error", err))
		}
		return
	}
	sample := sedp.EndpointAliveSample{Kind: kind, GUID: s.WriterGUID, Data: s.Data, SrcLocator: s.SrcLocator}
	if err := d.sedp.HandleAliveEndpoint(sample, s.Vendor, locals, defaults, tnow); err != nil {
		d.logger.Debug("sedp alive endpoint dropped", slog.Any("error", err))
	}
}

func (d *Dispatcher) handleSEDPTopic(s Sample, locals []guid.GUID, tnow time.Time) {
	if !s.Alive {
		if err := d.sedp.HandleDeadTopic(s.WriterGUID.ParticipantGUID(), s.WriterGUID); err != nil {
			d.logger.Debug("sedp dead topic dropped", slog.Any("error", err))
		}
		return
	}
	sample := sedp.TopicAliveSample{GUID: s.WriterGUID, Data: s.Data}
	if err := d.sedp.HandleAliveTopic(sample, s.Vendor, locals, tnow); err != nil {
		d.logger.Debug("sedp alive topic dropped", slog.Any("error", err))
	}
}

func (d *Dispatcher) handlePMD(s Sample, tnow time.Time) {
	d.pmd.HandleMessage(s.WriterGUID, s.PMDKind, tnow)
}

// advanceSeq implements the dispatcher's monotonicity postcondition (spec
// §4.F, §8 property 8): whichever entity kind s.WriterGUID names, advance
// that proxy writer's next_deliv_seq_lowword. Proxy readers and topics carry
// no delivery sequence of their own in this core (they are never the source
// of a reliable writer-side retransmission), so only a proxy writer match
// has anything to advance.
func (d *Dispatcher) advanceSeq(s Sample) {
	w, ok := d.index.LookupProxyWriter(s.WriterGUID)
	if !ok {
		return
	}
	w.AdvanceDelivSeq(s.Seq)
}
