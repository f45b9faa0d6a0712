// Package shm defines the capability-injection contract for the shared-
// memory transport feature toggle (spec §4.C "If the SHM feature is
// enabled, the shared-memory locator is prepended... to signal higher
// priority").
package shm

import "github.com/dantte-lp/ddsdisc/internal/locator"

// Capability is the common "is this feature active" probe.
type Capability interface {
	Active() bool
}

// Provider supplies the local shared-memory pseudo-locator when active.
type Provider interface {
	Capability
	Locator() (loc locator.Locator, ok bool)
}

// Noop is the default, always-inactive Provider.
type Noop struct{}

func (Noop) Active() bool                        { return false }
func (Noop) Locator() (locator.Locator, bool) { return locator.Invalid, false }

var _ Provider = Noop{}
