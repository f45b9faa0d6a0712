package spdp

import (
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/plist"
	"github.com/dantte-lp/ddsdisc/internal/security"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func peerGUID(b byte) guid.GUID {
	return guid.GUID{Prefix: guid.Prefix{b}, Entity: guid.EntityID{0, 0, 0, guid.KindParticipant}}
}

func baseConfig() Config {
	return Config{
		DomainID:             0,
		DefaultLeaseDuration: 10 * time.Second,
	}
}

// testInterfaceAndLocator returns a single loopback-free interface and a
// unicast locator on it, so buildAddressSets' step 9 unicast-address check
// (spec §4.D step 9) is satisfied via the source-locator fallback without
// the sample needing to advertise its own locators.
func testInterfaceAndLocator() ([]locator.Interface, locator.Locator) {
	loc := locator.FromNetipAddr(locator.KindUDPv4, netip.MustParseAddr("10.0.0.1"), 7411)
	intf := locator.Interface{Loc: loc, ExtLoc: loc, Kind: locator.KindUDPv4, Name: "eth0", Index: 0}
	return []locator.Interface{intf}, loc
}

func TestHandleAliveCreatesProxyParticipant(t *testing.T) {
	ix := entityindex.New(testLogger())
	interfaces, srcloc := testInterfaceAndLocator()
	e := New(baseConfig(), security.Noop{}, ix, interfaces, nil, testLogger())
	now := time.Unix(1000, 0)

	g := peerGUID(2)
	data := plist.New()
	data.Present = plist.PresentParticipantGUID | plist.PresentBuiltinEndpointSet | plist.PresentDomainID
	data.ParticipantGUID = g
	data.DomainID = 0
	data.BuiltinEndpointSet = plist.BESParticipantAnnouncer | plist.BESParticipantDetector

	pp, created, err := e.HandleAlive(AliveSample{Data: data, SourceLocator: srcloc, Seq: 1}, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected a new proxy participant to be created")
	}
	if pp.GUID != g {
		t.Fatalf("unexpected guid %s", pp.GUID)
	}
	if pp.Seq != 1 {
		t.Fatalf("expected seq to be recorded, got %d", pp.Seq)
	}
}

func TestHandleAliveRejectsWrongDomain(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), security.Noop{}, ix, nil, nil, testLogger())

	data := plist.New()
	data.Present = plist.PresentParticipantGUID | plist.PresentBuiltinEndpointSet | plist.PresentDomainID
	data.ParticipantGUID = peerGUID(3)
	data.DomainID = 99

	_, _, err := e.HandleAlive(AliveSample{Data: data}, nil, time.Unix(1000, 0))
	if err == nil {
		t.Fatalf("expected domain mismatch to be rejected")
	}
}

func TestHandleAliveIgnoresLocalParticipant(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), security.Noop{}, ix, nil, nil, testLogger())
	g := peerGUID(4)

	data := plist.New()
	data.Present = plist.PresentParticipantGUID | plist.PresentBuiltinEndpointSet
	data.ParticipantGUID = g

	pp, created, err := e.HandleAlive(AliveSample{Data: data}, []guid.GUID{g}, time.Unix(1000, 0))
	if err != nil || created || pp != nil {
		t.Fatalf("expected no-op for local participant, got pp=%v created=%v err=%v", pp, created, err)
	}
}

func TestHandleAliveRejectsNoUnicastAddress(t *testing.T) {
	ix := entityindex.New(testLogger())
	e := New(baseConfig(), security.Noop{}, ix, nil, nil, testLogger())

	g := peerGUID(6)
	data := plist.New()
	data.Present = plist.PresentParticipantGUID | plist.PresentBuiltinEndpointSet
	data.ParticipantGUID = g

	// No interfaces, no source locator, no advertised locators: neither
	// address set can end up with a unicast address (spec §4.D step 9).
	_, created, err := e.HandleAlive(AliveSample{Data: data}, nil, time.Unix(1000, 0))
	if err == nil {
		t.Fatalf("expected rejection for lack of any unicast address")
	}
	if created {
		t.Fatalf("expected no proxy participant to be created")
	}
}

func TestHandleAliveMergesNewerSeqIntoExisting(t *testing.T) {
	ix := entityindex.New(testLogger())
	interfaces, srcloc := testInterfaceAndLocator()
	e := New(baseConfig(), security.Noop{}, ix, interfaces, nil, testLogger())
	now := time.Unix(1000, 0)

	g := peerGUID(7)
	data := plist.New()
	data.Present = plist.PresentParticipantGUID | plist.PresentBuiltinEndpointSet
	data.ParticipantGUID = g
	data.BuiltinEndpointSet = plist.BESParticipantAnnouncer

	if _, _, err := e.HandleAlive(AliveSample{Data: data, SourceLocator: srcloc, Seq: 1}, nil, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	updated := plist.New()
	updated.Present = plist.PresentParticipantGUID | plist.PresentBuiltinEndpointSet
	updated.ParticipantGUID = g
	updated.BuiltinEndpointSet = plist.BESParticipantAnnouncer | plist.BESPublicationAnnouncer

	pp, created, err := e.HandleAlive(AliveSample{Data: updated, SourceLocator: srcloc, Seq: 2}, nil, now.Add(time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("expected existing proxy participant to be reused, not recreated")
	}
	if pp.Seq != 2 {
		t.Fatalf("expected seq to advance to 2, got %d", pp.Seq)
	}
	if pp.BuiltinEndpointSet&plist.BESPublicationAnnouncer == 0 {
		t.Fatalf("expected merged builtin endpoint set to carry the new bit")
	}
}

func TestHandleDeadRemovesProxyParticipant(t *testing.T) {
	ix := entityindex.New(testLogger())
	interfaces, srcloc := testInterfaceAndLocator()
	e := New(baseConfig(), security.Noop{}, ix, interfaces, nil, testLogger())
	now := time.Unix(1000, 0)
	g := peerGUID(5)

	data := plist.New()
	data.Present = plist.PresentParticipantGUID | plist.PresentBuiltinEndpointSet
	data.ParticipantGUID = g
	if _, _, err := e.HandleAlive(AliveSample{Data: data, SourceLocator: srcloc}, nil, now); err != nil {
		t.Fatalf("setup: %v", err)
	}

	deleted, err := e.HandleDead(g, now)
	if err != nil {
		t.Fatalf("handle dead: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != g {
		t.Fatalf("expected %s to be deleted, got %v", g, deleted)
	}
}
