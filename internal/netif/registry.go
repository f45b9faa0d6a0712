package netif

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dantte-lp/ddsdisc/internal/locator"
)

// RebuildFunc is invoked whenever the registry's interface set changes; the
// caller supplies the callback that rebuilds the local participant's plist
// and every address set derived from locator.Interface membership (spec
// §4.B, §4.C "build_participant_plist").
type RebuildFunc func(interfaces []locator.Interface)

// Registry holds the current, live view of the node's discovery-eligible
// interfaces and keeps it in sync with Monitor events, generalizing the
// teacher's "react to link down, tear down the session" pattern
// (internal/bfd.Manager.ReconcileSessions) to "react to link change, rebuild
// everything derived from the interface set".
type Registry struct {
	mu         sync.RWMutex
	interfaces map[int]locator.Interface // keyed by IfIndex
	order      []int                     // IfIndex insertion order, preserves Interface.Index assignment
	down       map[int]struct{}          // IfIndex set currently excluded from snapshots
	logger     *slog.Logger
	onChange   RebuildFunc
}

// NewRegistry builds a Registry seeded with the statically configured
// interfaces (spec §1 Non-goals: interface enumeration is the caller's
// responsibility; this core only classifies and reacts), keyed by each
// interface's Index field.
func NewRegistry(initial []locator.Interface, onChange RebuildFunc, logger *slog.Logger) *Registry {
	r := &Registry{
		interfaces: make(map[int]locator.Interface, len(initial)),
		down:       make(map[int]struct{}),
		logger:     logger.With(slog.String("component", "netif.registry")),
		onChange:   onChange,
	}
	for _, intf := range initial {
		idx := int(intf.Index)
		r.interfaces[idx] = intf
		r.order = append(r.order, idx)
	}
	return r
}

// Interfaces returns a snapshot of the currently up interfaces, in stable
// Index order, ready to pass to addrset.FromLocatorLists.
func (r *Registry) Interfaces() []locator.Interface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// ApplyEvent marks an interface up or down by kernel index; when that
// changes the "currently usable" set, it invokes onChange with the new
// snapshot. Events for an index not in the registry (an interface this
// domain never bound) are ignored.
func (r *Registry) ApplyEvent(ev Event) {
	r.mu.Lock()
	if _, ok := r.interfaces[ev.IfIndex]; !ok {
		r.mu.Unlock()
		r.logger.Debug("ignoring event for unknown interface",
			slog.String("if_name", ev.IfName), slog.Int("if_index", ev.IfIndex))
		return
	}

	_, wasDown := r.down[ev.IfIndex]
	if ev.Up && !wasDown {
		r.mu.Unlock()
		return // already up, no state change
	}
	if !ev.Up && wasDown {
		r.mu.Unlock()
		return // already down, no state change
	}

	if ev.Up {
		delete(r.down, ev.IfIndex)
	} else {
		r.down[ev.IfIndex] = struct{}{}
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Info("interface state changed",
		slog.String("if_name", ev.IfName), slog.Bool("up", ev.Up))
	if r.onChange != nil {
		r.onChange(snapshot)
	}
}

func (r *Registry) snapshotLocked() []locator.Interface {
	out := make([]locator.Interface, 0, len(r.order))
	for _, idx := range r.order {
		if _, down := r.down[idx]; down {
			continue
		}
		out = append(out, r.interfaces[idx])
	}
	return out
}

// Run drains mon's events into the registry until ctx is cancelled or the
// monitor's event channel closes.
func (r *Registry) Run(ctx context.Context, mon Monitor) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-mon.Events():
			if !ok {
				return nil
			}
			r.ApplyEvent(ev)
		}
	}
}
