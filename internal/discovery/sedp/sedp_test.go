package sedp

import (
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/plist"
	"github.com/dantte-lp/ddsdisc/internal/qos"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ppGUID(b byte) guid.GUID {
	return guid.GUID{Prefix: guid.Prefix{b}, Entity: guid.EntityID{0, 0, 0, guid.KindParticipant}}
}

func writerGUID(b byte) guid.GUID {
	return guid.GUID{Prefix: guid.Prefix{b}, Entity: guid.EntityID{0, 0, 1, guid.KindWriterWithKey}}
}

func readerGUID(b byte) guid.GUID {
	return guid.GUID{Prefix: guid.Prefix{b}, Entity: guid.EntityID{0, 0, 1, guid.KindReaderWithKey}}
}

func topicGUID(b byte) guid.GUID {
	return guid.GUID{Prefix: guid.Prefix{b}, Entity: guid.EntityID{0, 0, 1, guid.KindTopic}}
}

func baseConfig() Config {
	return Config{DefaultLeaseDuration: 10 * time.Second}
}

func withTopicQoS(name string) *plist.Plist {
	p := plist.New()
	p.Present = plist.PresentQos
	p.QoS = qos.QoS{EntityName: name}
	return p
}

// addrSetWithOneEntry builds a non-empty AddressSet via the exported
// builder, matching a locator against an interface's own primary address so
// it classifies as Self and survives admission.
func addrSetWithOneEntry() *addrset.AddressSet {
	addr := netip.MustParseAddr("10.0.0.1")
	eth0 := locator.Interface{Loc: locator.FromNetipAddr(locator.KindUDPv4, addr, 0), Index: 0}
	uc := []locator.Locator{locator.FromNetipAddr(locator.KindUDPv4, addr, 7412)}
	as, _ := addrset.FromLocatorLists([]locator.Interface{eth0}, nil, uc, nil, locator.Invalid, nil, addrset.BuilderConfig{})
	return as
}

func TestHandleChecksRejectsKindGUIDMismatch(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())

	_, err := e.HandleChecks(KindWriter, readerGUID(1), withTopicQoS("t"), vendorquirk.VendorEclipseCyclone, nil, time.Unix(1, 0))
	if err == nil {
		t.Fatalf("expected kind/guid mismatch to be rejected")
	}
}

func TestHandleChecksRejectsLocalParticipant(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	g := writerGUID(2)

	_, err := e.HandleChecks(KindWriter, g, withTopicQoS("t"), vendorquirk.VendorEclipseCyclone, []guid.GUID{g.ParticipantGUID()}, time.Unix(1, 0))
	if err == nil {
		t.Fatalf("expected local participant's own endpoint to be rejected")
	}
}

func TestHandleChecksLooksUpExistingProxyParticipant(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	now := time.Unix(1, 0)

	pp, err := ix.CreateProxyParticipant(ppGUID(3), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	got, err := e.HandleChecks(KindWriter, writerGUID(3), withTopicQoS("t"), vendorquirk.VendorEclipseCyclone, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.GUID != pp.GUID {
		t.Fatalf("expected existing proxy participant %s, got %s", pp.GUID, got.GUID)
	}
}

func TestHandleChecksRefusesImplicitCreationForPlainVendor(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())

	_, err := e.HandleChecks(KindWriter, writerGUID(4), withTopicQoS("t"), vendorquirk.VendorRTIConnext, nil, time.Unix(1, 0))
	if err == nil {
		t.Fatalf("expected implicit creation to be refused for a vendor without the quirk")
	}
}

func TestHandleChecksImplicitlyCreatesForDSBridgeWhenEnabled(t *testing.T) {
	ix := entityindex.New(testLogger())
	cfg := baseConfig()
	cfg.DSBridgeEnabled = true
	e := New(cfg, ix, nil, nil, testLogger())

	pp, err := e.HandleChecks(KindWriter, writerGUID(5), withTopicQoS("t"), vendorquirk.VendorCloudDiscovery, nil, time.Unix(1, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pp.Implicit {
		t.Fatalf("expected implicitly created proxy participant to be marked Implicit")
	}
}

func TestMergeEndpointDefaultsForcesAutodisposeFalseForNonEclipseAdlinkWriter(t *testing.T) {
	q := qos.QoS{Liveliness: qos.Liveliness{AutodisposeUnregistered: true}}
	merged := mergeEndpointDefaults(KindWriter, q, qos.QoS{}, vendorquirk.VendorRTIConnext)
	if merged.Liveliness.AutodisposeUnregistered {
		t.Fatalf("expected autodispose_unregistered to be forced false for a non-Eclipse/Adlink writer")
	}
}

func TestMergeEndpointDefaultsTrustsEclipseWriter(t *testing.T) {
	q := qos.QoS{Liveliness: qos.Liveliness{AutodisposeUnregistered: true}}
	merged := mergeEndpointDefaults(KindWriter, q, qos.QoS{}, vendorquirk.VendorEclipseCyclone)
	if !merged.Liveliness.AutodisposeUnregistered {
		t.Fatalf("expected autodispose_unregistered to be trusted verbatim from an Eclipse writer")
	}
}

func TestHandleAliveEndpointCreatesProxyWriter(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	now := time.Unix(1, 0)
	if _, err := ix.CreateProxyParticipant(ppGUID(6), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sample := EndpointAliveSample{Kind: KindWriter, GUID: writerGUID(6), Data: withTopicQoS("square")}
	if err := e.HandleAliveEndpoint(sample, vendorquirk.VendorEclipseCyclone, nil, qos.QoS{}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w, ok := ix.LookupProxyWriter(writerGUID(6))
	if !ok {
		t.Fatalf("expected a proxy writer to be registered")
	}
	if w.TopicName != "square" {
		t.Fatalf("unexpected topic name %q", w.TopicName)
	}
	if !w.Alive {
		t.Fatalf("expected newly created proxy writer to be alive")
	}
}

func TestHandleAliveEndpointUpdatesExistingProxyWriter(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	now := time.Unix(1, 0)
	if _, err := ix.CreateProxyParticipant(ppGUID(20), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sample := EndpointAliveSample{Kind: KindWriter, GUID: writerGUID(20), Data: withTopicQoS("square")}
	if err := e.HandleAliveEndpoint(sample, vendorquirk.VendorEclipseCyclone, nil, qos.QoS{}, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// A reliable re-announcement of the same writer, e.g. with a changed
	// topic/QoS, must update the existing proxy writer rather than being
	// dropped as a duplicate (spec §4.E "either update the existing proxy
	// or create a new one").
	resample := EndpointAliveSample{Kind: KindWriter, GUID: writerGUID(20), Data: withTopicQoS("circle")}
	if err := e.HandleAliveEndpoint(resample, vendorquirk.VendorEclipseCyclone, nil, qos.QoS{}, now.Add(time.Second)); err != nil {
		t.Fatalf("unexpected error on re-announce: %v", err)
	}

	w, ok := ix.LookupProxyWriter(writerGUID(20))
	if !ok {
		t.Fatalf("expected the proxy writer to still be registered")
	}
	if w.TopicName != "circle" {
		t.Fatalf("expected re-announcement to update topic name, got %q", w.TopicName)
	}
	if !w.Alive {
		t.Fatalf("expected updated proxy writer to be alive")
	}
}

func TestHandleAliveEndpointCreatesProxyReader(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	now := time.Unix(1, 0)
	if _, err := ix.CreateProxyParticipant(ppGUID(7), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sample := EndpointAliveSample{Kind: KindReader, GUID: readerGUID(7), Data: withTopicQoS("square")}
	if err := e.HandleAliveEndpoint(sample, vendorquirk.VendorEclipseCyclone, nil, qos.QoS{}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := ix.LookupProxyReader(readerGUID(7)); !ok {
		t.Fatalf("expected a proxy reader to be registered")
	}
}

func TestHandleAliveEndpointFallsBackToParticipantDataAddrSet(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	now := time.Unix(1, 0)
	pp, err := ix.CreateProxyParticipant(ppGUID(8), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	pp.DataAddrSet = addrSetWithOneEntry()

	sample := EndpointAliveSample{Kind: KindWriter, GUID: writerGUID(8), Data: withTopicQoS("square")}
	if err := e.HandleAliveEndpoint(sample, vendorquirk.VendorEclipseCyclone, nil, qos.QoS{}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w, _ := ix.LookupProxyWriter(writerGUID(8))
	if w.AddrSet == nil || w.AddrSet.Empty() {
		t.Fatalf("expected the proxy writer to inherit the participant's default address set")
	}
}

func TestHandleDeadEndpointRemovesWriterAndReader(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	now := time.Unix(1, 0)
	if _, err := ix.CreateProxyParticipant(ppGUID(9), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("setup: %v", err)
	}
	sample := EndpointAliveSample{Kind: KindWriter, GUID: writerGUID(9), Data: withTopicQoS("square")}
	if err := e.HandleAliveEndpoint(sample, vendorquirk.VendorEclipseCyclone, nil, qos.QoS{}, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := e.HandleDeadEndpoint(KindWriter, writerGUID(9)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ix.LookupProxyWriter(writerGUID(9)); ok {
		t.Fatalf("expected proxy writer to be removed")
	}
}

func TestHandleAliveTopicRegistersProxyTopic(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	now := time.Unix(1, 0)
	if _, err := ix.CreateProxyParticipant(ppGUID(10), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sample := TopicAliveSample{GUID: topicGUID(10), Data: withTopicQoS("square")}
	if err := e.HandleAliveTopic(sample, vendorquirk.VendorEclipseCyclone, nil, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pp, _ := ix.LookupProxyParticipant(ppGUID(10))
	topics := pp.Topics()
	if len(topics) != 1 || topics[0].Name != "square" {
		t.Fatalf("expected one proxy topic named square, got %v", topics)
	}
}

func TestHandleDeadTopicRemovesIt(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), ix, nil, nil, testLogger())
	now := time.Unix(1, 0)
	if _, err := ix.CreateProxyParticipant(ppGUID(11), vendorquirk.VendorEclipseCyclone, 10*time.Second, false, now); err != nil {
		t.Fatalf("setup: %v", err)
	}
	sample := TopicAliveSample{GUID: topicGUID(11), Data: withTopicQoS("square")}
	if err := e.HandleAliveTopic(sample, vendorquirk.VendorEclipseCyclone, nil, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := e.HandleDeadTopic(ppGUID(11), topicGUID(11)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pp, _ := ix.LookupProxyParticipant(ppGUID(11))
	if len(pp.Topics()) != 0 {
		t.Fatalf("expected proxy topic to be removed")
	}
}
