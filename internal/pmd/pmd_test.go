package pmd

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleMessageRenewsLease(t *testing.T) {
	ix := entityindex.New(testLogger())
	now := time.Unix(1000, 0)
	ppGUID := guid.GUID{Prefix: guid.Prefix{1}, Entity: guid.EntityID{0, 0, 0, guid.KindParticipant}}
	pp, err := ix.CreateProxyParticipant(ppGUID, vendorquirk.VendorEclipseCyclone, 5*time.Second, false, now)
	if err != nil {
		t.Fatalf("create proxy participant: %v", err)
	}

	m := New(ix, nil, time.Second, testLogger())
	later := now.Add(4 * time.Second)
	m.HandleMessage(ppGUID, KindManualLivelinessByParticipant, later)

	if pp.Lease.Expired(later) {
		t.Fatalf("expected lease to still be valid right after renewal")
	}
	if pp.Lease.Expired(later.Add(4 * time.Second)) {
		t.Fatalf("expected renewal to extend expiry by the full lease duration")
	}
}

func TestHandleMessageIgnoresUnknownParticipant(t *testing.T) {
	ix := entityindex.New(testLogger())
	m := New(ix, nil, time.Second, testLogger())
	m.HandleMessage(guid.GUID{Prefix: guid.Prefix{9}}, KindAutomaticLiveliness, time.Unix(1, 0))
}

type fakeSender struct{ sent int }

func (f *fakeSender) SendParticipantMessage(guid.GUID, Kind, []byte) error {
	f.sent++
	return nil
}

func TestRunAssertionsSendsUntilCanceled(t *testing.T) {
	sender := &fakeSender{}
	m := New(entityindex.New(testLogger()), sender, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	m.RunAssertions(ctx, guid.GUID{Prefix: guid.Prefix{1}})

	if sender.sent == 0 {
		t.Fatalf("expected at least one liveliness assertion to be sent")
	}
}
