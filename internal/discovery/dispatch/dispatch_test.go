package dispatch

import (
	"io"
	"log/slog"
	"net/netip"
	"testing"
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSrcLocator is a unicast address on the test SPDP engine's only
// interface, so an SPDP alive sample sent from it passes the engine's
// unicast-address check via the source-locator fallback.
var testSrcLocator = locator.FromNetipAddr(locator.KindUDPv4, netip.MustParseAddr("10.0.0.1"), 7411)

func newTestDispatcher() (*Dispatcher, *entityindex.Index) {
	ix := entityindex.New(testLogger())
	interfaces := []locator.Interface{{Loc: testSrcLocator, ExtLoc: testSrcLocator, Kind: locator.KindUDPv4, Name: "eth0", Index: 0}}
	spdpEngine := spdp.New(spdp.Config{DefaultLeaseDuration: 10 * time.Second}, nil, ix, interfaces, nil, testLogger())
	sedpEngine := sedp.New(sedp.Config{DefaultLeaseDuration: 10 * time.Second}, ix, nil, nil, testLogger())
	pmdManager := pmd.New(ix, nil, time.Second, testLogger())
	return New(spdpEngine, sedpEngine, pmdManager, ix, testLogger()), ix
}

func participantGUID(b byte) guid.GUID {
	return guid.GUID{Prefix: guid.Prefix{b}, Entity: guid.EntityID{0, 0, 0, guid.KindParticipant}}
}

func writerGUID(b byte) guid.GUID {
	return guid.GUID{Prefix: guid.Prefix{b}, Entity: guid.EntityID{0, 0, 1, guid.KindWriterWithKey}}
}

func withTopicQoS(name string) *plist.Plist {
	p := plist.New()
	p.Present = plist.PresentQos
	p.QoS = qos.QoS{EntityName: name}
	return p
}

func TestHandleSampleRoutesSPDPAlive(t *testing.T) {
	d, ix := newTestDispatcher()
	g := participantGUID(1)

	data := plist.New()
	data.Present = plist.PresentParticipantGUID | plist.PresentBuiltinEndpointSet
	data.ParticipantGUID = g

	d.HandleSample(Sample{ReaderEntityID: SPDPBuiltinParticipantReader, WriterGUID: g, Alive: true, Data: data, SrcLocator: testSrcLocator}, nil, qos.QoS{}, time.Unix(1, 0))

	if _, ok := ix.LookupProxyParticipant(g); !ok {
		t.Fatalf("expected spdp alive sample to create a proxy participant")
	}
}

func TestHandleSampleRoutesSPDPDead(t *testing.T) {
	d, ix := newTestDispatcher()
	g := participantGUID(2)
	now := time.Unix(1, 0)
	if _, err := ix.CreateProxyParticipant(g, vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	d.HandleSample(Sample{ReaderEntityID: SPDPBuiltinParticipantReader, WriterGUID: g, Alive: false}, nil, qos.QoS{}, now)

	if _, ok := ix.LookupProxyParticipant(g); ok {
		t.Fatalf("expected spdp dead sample to remove the proxy participant")
	}
}

func TestHandleSampleRoutesSEDPPublicationAndAdvancesSeq(t *testing.T) {
	d, ix := newTestDispatcher()
	now := time.Unix(1, 0)
	if _, err := ix.CreateProxyParticipant(participantGUID(3), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("setup: %v", err)
	}
	wg := writerGUID(3)

	d.HandleSample(Sample{
		ReaderEntityID: SEDPBuiltinPublicationsReader,
		WriterGUID:     wg,
		Alive:          true,
		Data:           withTopicQoS("square"),
		Vendor:         vendorquirk.VendorEclipseCyclone,
		Seq:            41,
	}, nil, qos.QoS{}, now)

	w, ok := ix.LookupProxyWriter(wg)
	if !ok {
		t.Fatalf("expected a proxy writer to be registered")
	}
	if got := w.NextDelivSeqLowword(); got != 42 {
		t.Fatalf("expected next_deliv_seq_lowword 42, got %d", got)
	}
}

func TestHandleSampleDropsUnknownReaderEntityID(t *testing.T) {
	d, ix := newTestDispatcher()
	unknown := guid.EntityID{0xff, 0xff, 0xff, 0xc2}

	d.HandleSample(Sample{ReaderEntityID: unknown, WriterGUID: participantGUID(4)}, nil, qos.QoS{}, time.Unix(1, 0))

	if len(ix.ProxyParticipants()) != 0 {
		t.Fatalf("expected no state change for an unrecognized reader entity id")
	}
}

func TestHandleSampleRoutesPMDToLeaseRenewal(t *testing.T) {
	d, ix := newTestDispatcher()
	now := time.Unix(1, 0)
	pp, err := ix.CreateProxyParticipant(participantGUID(5), vendorquirk.VendorEclipseCyclone, 5*time.Second, false, now)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	later := now.Add(4 * time.Second)
	d.HandleSample(Sample{ReaderEntityID: P2PBuiltinParticipantMessageReader, WriterGUID: participantGUID(5), PMDKind: pmd.KindManualLivelinessByParticipant}, nil, qos.QoS{}, later)

	if pp.Lease.Expired(later) {
		t.Fatalf("expected lease to still be valid right after renewal")
	}
}
