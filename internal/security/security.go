// Package security defines the capability-injection contract for the
// DDS-Security feature toggle (spec Design Notes §9: "Dynamic feature
// toggles... replace with capability objects injected at construction").
// It does not implement the security plugin itself — only the narrow
// surface discovery needs.
package security

import "github.com/dantte-lp/ddsdisc/internal/guid"

// Capability is the common "is this feature active" probe every toggle
// exposes; a no-op default always returns false.
type Capability interface {
	Active() bool
}

// Provider is consulted by plist builders and the SPDP/SEDP engines when
// deciding whether to emit security PIDs and whether to treat a remote
// participant as secure (spec §4.D step 5, §4.C "security info").
type Provider interface {
	Capability

	// IdentityToken returns this participant's identity token, if any.
	IdentityToken() (token []byte, present bool)

	// EndpointSecurityInfo returns the security_info blob for guid, if the
	// endpoint is security-protected.
	EndpointSecurityInfo(g guid.GUID) (info []byte, present bool)
}

// Noop is the default, always-inactive Provider.
type Noop struct{}

func (Noop) Active() bool { return false }

func (Noop) IdentityToken() ([]byte, bool) { return nil, false }

func (Noop) EndpointSecurityInfo(guid.GUID) ([]byte, bool) { return nil, false }

var _ Provider = Noop{}
