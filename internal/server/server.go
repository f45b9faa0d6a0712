// Package server implements the admin/introspection HTTP surface for the
// discovery daemon: read-only JSON views of the entity index for operator
// tooling such as ddsdisc-ctl.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
)

// Sentinel errors for the server package.
var (
	// ErrMissingGUID indicates no guid path segment was supplied where one is required.
	ErrMissingGUID = errors.New("missing guid parameter")

	// ErrInvalidGUID indicates the guid path segment could not be parsed.
	ErrInvalidGUID = errors.New("invalid guid parameter")
)

// Server serves read-only JSON introspection endpoints backed by an
// entityindex.Index. Each handler is a thin adapter between HTTP and the
// internal domain; it performs no mutation.
type Server struct {
	index  *entityindex.Index
	logger *slog.Logger
}

// New creates a Server and returns the base path and HTTP handler to mount
// it under, mirroring the teacher's "New returns path, handler" shape so a
// caller can `mux.Handle(server.New(...))` without caring about routing
// internals.
func New(index *entityindex.Index, logger *slog.Logger, mws ...Middleware) (string, http.Handler) {
	srv := &Server{
		index:  index,
		logger: logger.With(slog.String("component", "server")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/v1/participants", srv.listParticipants)
	mux.HandleFunc("GET /admin/v1/participants/{guid}", srv.getParticipant)
	mux.HandleFunc("GET /admin/v1/leases", srv.listLeases)

	var handler http.Handler = mux
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}

	return "/admin/v1/", handler
}

// -------------------------------------------------------------------------
// Wire types
// -------------------------------------------------------------------------

// ProxyParticipantView is the JSON projection of an entityindex.ProxyParticipant.
type ProxyParticipantView struct {
	GUID        string    `json:"guid"`
	VendorID    uint16    `json:"vendor_id"`
	Implicit    bool      `json:"implicit"`
	Privileged  string    `json:"privileged_guid,omitempty"`
	Expired     bool      `json:"expired"`
	ExpiresAt   time.Time `json:"expires_at"`
	TopicCount  int       `json:"topic_count"`
}

// LeaseView is the JSON projection of a single proxy participant's lease state.
type LeaseView struct {
	GUID      string        `json:"guid"`
	Duration  time.Duration `json:"duration_ns"`
	ExpiresAt time.Time     `json:"expires_at"`
	Expired   bool          `json:"expired"`
}

// errorResponse is the JSON body written on handler failure.
type errorResponse struct {
	Error string `json:"error"`
}

// -------------------------------------------------------------------------
// Handlers
// -------------------------------------------------------------------------

// listParticipants returns every proxy participant currently held in the
// entity index.
func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	pps := s.index.ProxyParticipants()

	views := make([]ProxyParticipantView, 0, len(pps))
	for _, pp := range pps {
		views = append(views, proxyParticipantToView(pp, now))
	}

	s.logger.DebugContext(r.Context(), "listParticipants", slog.Int("count", len(views)))
	writeJSON(w, http.StatusOK, views)
}

// getParticipant returns a single proxy participant by GUID.
func (s *Server) getParticipant(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("guid")
	if raw == "" {
		writeError(w, http.StatusBadRequest, ErrMissingGUID)
		return
	}

	g, err := guid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%s: %w", ErrInvalidGUID, err))
		return
	}

	pp, ok := s.index.LookupProxyParticipant(g)
	if !ok {
		writeError(w, http.StatusNotFound, entityindex.ErrProxyParticipantNotFound)
		return
	}

	writeJSON(w, http.StatusOK, proxyParticipantToView(pp, time.Now()))
}

// listLeases returns the liveliness lease state of every proxy participant,
// the view ddsdisc-ctl's `leases` subcommand renders.
func (s *Server) listLeases(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	pps := s.index.ProxyParticipants()

	views := make([]LeaseView, 0, len(pps))
	for _, pp := range pps {
		views = append(views, LeaseView{
			GUID:      pp.GUID.String(),
			Duration:  pp.Lease.Duration(),
			ExpiresAt: pp.Lease.ExpiresAt(),
			Expired:   pp.Lease.Expired(now),
		})
	}

	writeJSON(w, http.StatusOK, views)
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func proxyParticipantToView(pp *entityindex.ProxyParticipant, now time.Time) ProxyParticipantView {
	view := ProxyParticipantView{
		GUID:       pp.GUID.String(),
		VendorID:   uint16(pp.VendorID[0])<<8 | uint16(pp.VendorID[1]),
		Implicit:   pp.Implicit,
		Expired:    pp.Lease.Expired(now),
		ExpiresAt:  pp.Lease.ExpiresAt(),
		TopicCount: len(pp.Topics()),
	}
	var zero guid.GUID
	if pp.PrivilegedPPGUID != zero {
		view.Privileged = pp.PrivilegedPPGUID.String()
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
