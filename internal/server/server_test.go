package server_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/server"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

func testGUID(b byte) guid.GUID {
	return guid.GUID{
		Prefix: guid.Prefix{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, b},
		Entity: guid.EntityID{0x00, 0x00, 0x01, guid.KindParticipant},
	}
}

// setupTestServer creates a real HTTP server backed by an entityindex.Index
// and returns the test server and its backing index. The server and any
// background work are cleaned up when the test finishes.
func setupTestServer(t *testing.T) (*httptest.Server, *entityindex.Index) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	ix := entityindex.New(logger)

	path, handler := server.New(ix, logger)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, ix
}

func getJSON(t *testing.T, url string, status int, out any) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		t.Fatalf("GET %s: status = %d, want %d", url, resp.StatusCode, status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func TestListParticipantsEmpty(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)

	var views []server.ProxyParticipantView
	getJSON(t, srv.URL+"/admin/v1/participants", http.StatusOK, &views)

	if len(views) != 0 {
		t.Errorf("expected 0 participants, got %d", len(views))
	}
}

func TestListParticipants(t *testing.T) {
	t.Parallel()

	srv, ix := setupTestServer(t)

	g := testGUID(0x01)
	if _, err := ix.CreateProxyParticipant(g, vendorquirk.VendorEclipseCyclone, time.Minute, false, time.Now()); err != nil {
		t.Fatalf("CreateProxyParticipant: %v", err)
	}

	var views []server.ProxyParticipantView
	getJSON(t, srv.URL+"/admin/v1/participants", http.StatusOK, &views)

	if len(views) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(views))
	}
	if views[0].GUID != g.String() {
		t.Errorf("GUID = %q, want %q", views[0].GUID, g.String())
	}
	if views[0].Expired {
		t.Error("freshly-created participant reported as expired")
	}
}

func TestGetParticipant(t *testing.T) {
	t.Parallel()

	srv, ix := setupTestServer(t)

	g := testGUID(0x02)
	if _, err := ix.CreateProxyParticipant(g, vendorquirk.VendorCloudDiscovery, time.Minute, true, time.Now()); err != nil {
		t.Fatalf("CreateProxyParticipant: %v", err)
	}

	var view server.ProxyParticipantView
	getJSON(t, srv.URL+"/admin/v1/participants/"+g.String(), http.StatusOK, &view)

	if !view.Implicit {
		t.Error("Implicit = false, want true")
	}
}

func TestGetParticipantNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)

	g := testGUID(0xff)
	getJSON(t, srv.URL+"/admin/v1/participants/"+g.String(), http.StatusNotFound, nil)
}

func TestGetParticipantInvalidGUID(t *testing.T) {
	t.Parallel()

	srv, _ := setupTestServer(t)

	getJSON(t, srv.URL+"/admin/v1/participants/not-a-guid", http.StatusBadRequest, nil)
}

func TestListLeases(t *testing.T) {
	t.Parallel()

	srv, ix := setupTestServer(t)

	g := testGUID(0x03)
	if _, err := ix.CreateProxyParticipant(g, vendorquirk.VendorEclipseCyclone, time.Minute, false, time.Now()); err != nil {
		t.Fatalf("CreateProxyParticipant: %v", err)
	}

	var leases []server.LeaseView
	getJSON(t, srv.URL+"/admin/v1/leases", http.StatusOK, &leases)

	if len(leases) != 1 {
		t.Fatalf("expected 1 lease, got %d", len(leases))
	}
	if leases[0].GUID != g.String() {
		t.Errorf("GUID = %q, want %q", leases[0].GUID, g.String())
	}
	if leases[0].Expired {
		t.Error("freshly-created lease reported as expired")
	}
}
