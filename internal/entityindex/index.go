package entityindex

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/plist"
	"github.com/dantte-lp/ddsdisc/internal/qos"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

// Sentinel errors for Index operations.
var (
	ErrParticipantNotFound      = errors.New("participant not found")
	ErrDuplicateParticipant     = errors.New("duplicate participant")
	ErrProxyParticipantNotFound = errors.New("proxy participant not found")
	ErrDuplicateProxyParticipant = errors.New("duplicate proxy participant")
	ErrProxyTopicNotFound       = errors.New("proxy topic not found")
	ErrProxyWriterNotFound      = errors.New("proxy writer not found")
	ErrDuplicateProxyWriter     = errors.New("duplicate proxy writer")
	ErrProxyReaderNotFound      = errors.New("proxy reader not found")
	ErrDuplicateProxyReader     = errors.New("duplicate proxy reader")
)

// tombstoneTTL is how long a deleted participant's GUID is remembered, long
// enough to reject a stray retransmitted SPDP/SEDP sample that still
// references it (spec §4.D "DeletedParticipants" / duplicate suppression).
const tombstoneTTL = 2 * time.Minute

// proxyWriterEntry and proxyReaderEntry pair a proxy endpoint with the
// participant GUID that owns it, for fast cascade-delete on participant
// teardown without walking every endpoint.
type proxyWriterEntry struct {
	writer *ProxyWriter
	ppGUID guid.GUID
}

type proxyReaderEntry struct {
	reader *ProxyReader
	ppGUID guid.GUID
}

// Index owns every participant, proxy participant, proxy topic, proxy
// writer and proxy reader known to this discovery core, and provides the
// CRUD and lookup API discovery engines drive (spec §4.A).
type Index struct {
	mu sync.RWMutex

	participants      map[guid.GUID]*Participant
	proxyParticipants map[guid.GUID]*ProxyParticipant
	proxyWriters      map[guid.GUID]*proxyWriterEntry
	proxyReaders      map[guid.GUID]*proxyReaderEntry

	// deletedParticipants tombstones recently-deleted proxy participant
	// GUIDs with their expiry time (spec §4.A "DeletedParticipants").
	deletedParticipants map[guid.GUID]time.Time

	logger *slog.Logger
}

// New returns an empty Index.
func New(logger *slog.Logger) *Index {
	return &Index{
		participants:        make(map[guid.GUID]*Participant),
		proxyParticipants:   make(map[guid.GUID]*ProxyParticipant),
		proxyWriters:        make(map[guid.GUID]*proxyWriterEntry),
		proxyReaders:        make(map[guid.GUID]*proxyReaderEntry),
		deletedParticipants: make(map[guid.GUID]time.Time),
		logger:              logger.With(slog.String("component", "entityindex")),
	}
}

// -------------------------------------------------------------------------
// Local participants
// -------------------------------------------------------------------------

// CreateParticipant registers a new local participant.
func (ix *Index) CreateParticipant(g guid.GUID, domainID uint32, now time.Time) (*Participant, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.participants[g]; exists {
		return nil, fmt.Errorf("create participant %s: %w", g, ErrDuplicateParticipant)
	}
	p := &Participant{GUID: g, DomainID: domainID, CreatedAt: now}
	ix.participants[g] = p
	return p, nil
}

// LookupParticipant returns the local participant for g, if any.
func (ix *Index) LookupParticipant(g guid.GUID) (*Participant, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.participants[g]
	return p, ok
}

// DeleteParticipant removes a local participant.
func (ix *Index) DeleteParticipant(g guid.GUID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.participants[g]; !exists {
		return fmt.Errorf("delete participant %s: %w", g, ErrParticipantNotFound)
	}
	delete(ix.participants, g)
	return nil
}

// -------------------------------------------------------------------------
// Proxy participants
// -------------------------------------------------------------------------

// CreateProxyParticipant registers a new remote participant learned via
// SPDP (or implicitly via SEDP; spec §4.E implicit creation).
func (ix *Index) CreateProxyParticipant(
	g guid.GUID,
	vendor vendorquirk.VendorID,
	leaseDuration time.Duration,
	implicit bool,
	now time.Time,
) (*ProxyParticipant, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.isTombstonedLocked(g, now) {
		ix.logger.Debug("creating proxy participant for recently-deleted guid", slog.String("guid", g.String()))
	}
	if _, exists := ix.proxyParticipants[g]; exists {
		return nil, fmt.Errorf("create proxy participant %s: %w", g, ErrDuplicateProxyParticipant)
	}
	pp := newProxyParticipant(g, vendor, leaseDuration, now)
	pp.Implicit = implicit
	ix.proxyParticipants[g] = pp
	ix.logger.Info("proxy participant created",
		slog.String("guid", g.String()),
		slog.Bool("implicit", implicit))
	return pp, nil
}

// LookupProxyParticipant returns the proxy participant for g, if any.
func (ix *Index) LookupProxyParticipant(g guid.GUID) (*ProxyParticipant, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	pp, ok := ix.proxyParticipants[g]
	return pp, ok
}

// IsTombstoned reports whether g was deleted within the tombstone window
// and should be treated as a stale duplicate rather than recreated.
func (ix *Index) IsTombstoned(g guid.GUID, now time.Time) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.isTombstonedLocked(g, now)
}

func (ix *Index) isTombstonedLocked(g guid.GUID, now time.Time) bool {
	expiry, ok := ix.deletedParticipants[g]
	return ok && now.Before(expiry)
}

// UpdateProxyParticipant merges a newer SPDP alive sample's state into an
// already-known proxy participant (spec §4.D step 4 / §8 testable property
// 2: "new.seq > old.seq OR old.implicitly_created"). Callers are expected
// to have already checked that condition; this just applies the merge and
// clears the implicit flag, since the participant is now confirmed via
// SPDP.
func (ix *Index) UpdateProxyParticipant(
	g guid.GUID,
	seq uint64,
	bes plist.BuiltinEndpointSet,
	isSecure bool,
	metaAddrSet, dataAddrSet *addrset.AddressSet,
) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	pp, ok := ix.proxyParticipants[g]
	if !ok {
		return fmt.Errorf("update proxy participant %s: %w", g, ErrProxyParticipantNotFound)
	}
	pp.Seq = seq
	pp.BuiltinEndpointSet = bes
	pp.IsSecure = isSecure
	pp.MetatrafficAddrSet = metaAddrSet
	pp.DataAddrSet = dataAddrSet
	pp.Implicit = false
	return nil
}

// SetPrivilegedParticipant records that dependent depends on privileged for
// liveliness (spec §4.D step 8 DDSI2/DS-bridge slaving). It maintains the
// reverse dependents index used by cascading deletes.
func (ix *Index) SetPrivilegedParticipant(dependent, privileged guid.GUID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	dep, ok := ix.proxyParticipants[dependent]
	if !ok {
		return fmt.Errorf("set privileged participant for %s: %w", dependent, ErrProxyParticipantNotFound)
	}
	priv, ok := ix.proxyParticipants[privileged]
	if !ok {
		return fmt.Errorf("set privileged participant %s: %w", privileged, ErrProxyParticipantNotFound)
	}
	dep.PrivilegedPPGUID = privileged
	priv.mu.Lock()
	priv.dependents[dependent] = struct{}{}
	priv.mu.Unlock()
	return nil
}

// DeleteProxyParticipant removes a remote participant and cascades the
// deletion to every proxy topic, writer and reader it owns, and to every
// dependent participant slaved to it (spec §4.D step 8, §4.A "delete
// cascades"). The deleted GUID is tombstoned for tombstoneTTL.
func (ix *Index) DeleteProxyParticipant(g guid.GUID, now time.Time) ([]guid.GUID, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.deleteProxyParticipantLocked(g, now)
}

func (ix *Index) deleteProxyParticipantLocked(g guid.GUID, now time.Time) ([]guid.GUID, error) {
	pp, ok := ix.proxyParticipants[g]
	if !ok {
		return nil, fmt.Errorf("delete proxy participant %s: %w", g, ErrProxyParticipantNotFound)
	}

	deleted := []guid.GUID{g}

	for wg, entry := range ix.proxyWriters {
		if entry.ppGUID == g {
			delete(ix.proxyWriters, wg)
		}
	}
	for rg, entry := range ix.proxyReaders {
		if entry.ppGUID == g {
			delete(ix.proxyReaders, rg)
		}
	}

	pp.mu.Lock()
	dependents := make([]guid.GUID, 0, len(pp.dependents))
	for d := range pp.dependents {
		dependents = append(dependents, d)
	}
	pp.mu.Unlock()

	delete(ix.proxyParticipants, g)
	ix.deletedParticipants[g] = now.Add(tombstoneTTL)
	ix.logger.Info("proxy participant deleted", slog.String("guid", g.String()))

	for _, d := range dependents {
		sub, err := ix.deleteProxyParticipantLocked(d, now)
		if err != nil {
			continue
		}
		deleted = append(deleted, sub...)
	}
	return deleted, nil
}

// -------------------------------------------------------------------------
// Proxy topics
// -------------------------------------------------------------------------

// CreateProxyTopic registers a proxy topic owned by ppGUID.
func (ix *Index) CreateProxyTopic(ppGUID guid.GUID, t *ProxyTopic) error {
	ix.mu.RLock()
	pp, ok := ix.proxyParticipants[ppGUID]
	ix.mu.RUnlock()
	if !ok {
		return fmt.Errorf("create proxy topic %s: %w", t.GUID, ErrProxyParticipantNotFound)
	}
	pp.mu.Lock()
	pp.proxyTopics[t.GUID] = t
	pp.mu.Unlock()
	return nil
}

// DeleteProxyTopic removes a proxy topic from its owning participant.
func (ix *Index) DeleteProxyTopic(ppGUID, topicGUID guid.GUID) error {
	ix.mu.RLock()
	pp, ok := ix.proxyParticipants[ppGUID]
	ix.mu.RUnlock()
	if !ok {
		return fmt.Errorf("delete proxy topic %s: %w", topicGUID, ErrProxyParticipantNotFound)
	}
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if _, exists := pp.proxyTopics[topicGUID]; !exists {
		return fmt.Errorf("delete proxy topic %s: %w", topicGUID, ErrProxyTopicNotFound)
	}
	delete(pp.proxyTopics, topicGUID)
	return nil
}

// -------------------------------------------------------------------------
// Proxy writers / readers
// -------------------------------------------------------------------------

// CreateProxyWriter registers a remote writer owned (non-exclusively) by
// ppGUID (spec §4.A: "ProxyWriter/Reader owned by index with non-owning
// GUID back-link").
func (ix *Index) CreateProxyWriter(ppGUID guid.GUID, w *ProxyWriter) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.proxyWriters[w.GUID]; exists {
		return fmt.Errorf("create proxy writer %s: %w", w.GUID, ErrDuplicateProxyWriter)
	}
	w.PPGUID = ppGUID
	ix.proxyWriters[w.GUID] = &proxyWriterEntry{writer: w, ppGUID: ppGUID}
	return nil
}

// LookupProxyWriter returns the proxy writer for g, if any.
func (ix *Index) LookupProxyWriter(g guid.GUID) (*ProxyWriter, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entry, ok := ix.proxyWriters[g]
	if !ok {
		return nil, false
	}
	return entry.writer, true
}

// UpdateProxyWriter applies a repeat SEDP alive announcement to an
// already-known proxy writer in place, rather than erroring as a duplicate
// (spec §4.E: "either update the existing proxy or create a new one"). The
// writer's topic name, QoS and address set are replaced with the freshly
// announced values and it is marked alive again.
func (ix *Index) UpdateProxyWriter(g guid.GUID, topicName string, q qos.QoS, as *addrset.AddressSet) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entry, ok := ix.proxyWriters[g]
	if !ok {
		return fmt.Errorf("update proxy writer %s: %w", g, ErrProxyWriterNotFound)
	}
	entry.writer.TopicName = topicName
	entry.writer.QoS = q
	entry.writer.AddrSet = as
	entry.writer.Alive = true
	return nil
}

// DeleteProxyWriter removes a proxy writer.
func (ix *Index) DeleteProxyWriter(g guid.GUID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.proxyWriters[g]; !exists {
		return fmt.Errorf("delete proxy writer %s: %w", g, ErrProxyWriterNotFound)
	}
	delete(ix.proxyWriters, g)
	return nil
}

// CreateProxyReader registers a remote reader owned (non-exclusively) by
// ppGUID.
func (ix *Index) CreateProxyReader(ppGUID guid.GUID, r *ProxyReader) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.proxyReaders[r.GUID]; exists {
		return fmt.Errorf("create proxy reader %s: %w", r.GUID, ErrDuplicateProxyReader)
	}
	r.PPGUID = ppGUID
	ix.proxyReaders[r.GUID] = &proxyReaderEntry{reader: r, ppGUID: ppGUID}
	return nil
}

// LookupProxyReader returns the proxy reader for g, if any.
func (ix *Index) LookupProxyReader(g guid.GUID) (*ProxyReader, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entry, ok := ix.proxyReaders[g]
	if !ok {
		return nil, false
	}
	return entry.reader, true
}

// UpdateProxyReader applies a repeat SEDP alive announcement to an
// already-known proxy reader in place, rather than erroring as a duplicate
// (spec §4.E: "either update the existing proxy or create a new one"). The
// reader's topic name, QoS and address set are replaced with the freshly
// announced values and it is marked alive again.
func (ix *Index) UpdateProxyReader(g guid.GUID, topicName string, q qos.QoS, as *addrset.AddressSet) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entry, ok := ix.proxyReaders[g]
	if !ok {
		return fmt.Errorf("update proxy reader %s: %w", g, ErrProxyReaderNotFound)
	}
	entry.reader.TopicName = topicName
	entry.reader.QoS = q
	entry.reader.AddrSet = as
	entry.reader.Alive = true
	return nil
}

// DeleteProxyReader removes a proxy reader.
func (ix *Index) DeleteProxyReader(g guid.GUID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.proxyReaders[g]; !exists {
		return fmt.Errorf("delete proxy reader %s: %w", g, ErrProxyReaderNotFound)
	}
	delete(ix.proxyReaders, g)
	return nil
}

// -------------------------------------------------------------------------
// Liveliness and garbage collection
// -------------------------------------------------------------------------

// ExpireLeases scans every proxy participant and deletes those whose lease
// has expired, returning every GUID removed by the resulting cascades
// (spec §4.A liveliness: "caller is responsible for the eventual delete").
func (ix *Index) ExpireLeases(now time.Time) []guid.GUID {
	ix.mu.Lock()
	var expired []guid.GUID
	for g, pp := range ix.proxyParticipants {
		if pp.Lease.Expired(now) {
			expired = append(expired, g)
		}
	}
	ix.mu.Unlock()

	var deleted []guid.GUID
	for _, g := range expired {
		removed, err := ix.DeleteProxyParticipant(g, now)
		if err != nil {
			continue
		}
		deleted = append(deleted, removed...)
	}
	return deleted
}

// ReapTombstones drops tombstone entries whose expiry has passed, bounding
// the deletedParticipants table's memory (spec §4.A).
func (ix *Index) ReapTombstones(now time.Time) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	n := 0
	for g, expiry := range ix.deletedParticipants {
		if !now.Before(expiry) {
			delete(ix.deletedParticipants, g)
			n++
		}
	}
	return n
}

// ProxyParticipants returns a snapshot slice of every known proxy
// participant, for admin/introspection surfaces.
func (ix *Index) ProxyParticipants() []*ProxyParticipant {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*ProxyParticipant, 0, len(ix.proxyParticipants))
	for _, pp := range ix.proxyParticipants {
		out = append(out, pp)
	}
	return out
}
