// Package pmd implements the ParticipantMessageData liveliness-assertion
// protocol: the periodic heartbeat every participant with manual-by-
// participant writers must emit, and the inbound handling that renews a
// remote participant's lease on receipt (spec §4.D "liveliness",
// §[AMBIENT-PMD]). It is the RTPS analogue of the teacher's RFC 9747 echo
// function: no handshake, no negotiation, pure periodic send/receive with
// demux on arrival.
package pmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
)

// Kind distinguishes the three PARTICIPANT_MESSAGE_DATA kinds RTPS 2.x
// defines (9.6.3.9): an automatic-liveliness heartbeat needs no reply
// tracking, manual-by-participant and manual-by-topic assertions renew
// different lease scopes upstream of this package.
type Kind uint32

const (
	KindAutomaticLiveliness        Kind = 0
	KindManualLivelinessByParticipant Kind = 1
	KindManualLivelinessByTopic    Kind = 2
)

// Sender transmits a PARTICIPANT_MESSAGE_DATA sample from the local
// participant local, tagged with kind (spec §[AMBIENT-PMD]).
type Sender interface {
	SendParticipantMessage(local guid.GUID, kind Kind, data []byte) error
}

// Manager drives both directions of the PMD protocol: periodic local
// assertion and inbound lease renewal.
type Manager struct {
	index    *entityindex.Index
	sender   Sender
	interval time.Duration
	logger   *slog.Logger
}

// New returns a Manager that asserts liveliness every interval and renews
// proxy participant leases in index on receipt.
func New(index *entityindex.Index, sender Sender, interval time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		index:    index,
		sender:   sender,
		interval: interval,
		logger:   logger.With(slog.String("component", "pmd")),
	}
}

// HandleMessage processes an inbound PARTICIPANT_MESSAGE_DATA sample,
// renewing the sending participant's proxy lease (spec §4.D "liveliness").
// An unknown sender is not an error: the first SPDP announcement from a
// peer often arrives after its first liveliness assertion.
func (m *Manager) HandleMessage(from guid.GUID, kind Kind, now time.Time) {
	pp, ok := m.index.LookupProxyParticipant(from.ParticipantGUID())
	if !ok {
		m.logger.Debug("liveliness assertion from unknown participant", slog.String("guid", from.String()))
		return
	}
	pp.Lease.Renew(now)
	m.logger.Debug("renewed proxy participant lease",
		slog.String("guid", from.String()),
		slog.Int("kind", int(kind)))
}

// RunAssertions periodically sends a manual-by-participant liveliness
// assertion for local until ctx is canceled, mirroring the teacher's
// ticker-driven session send loop.
func (m *Manager) RunAssertions(ctx context.Context, local guid.GUID) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.sender.SendParticipantMessage(local, KindManualLivelinessByParticipant, nil); err != nil {
				m.logger.Warn("failed to send liveliness assertion",
					slog.String("guid", local.String()),
					slog.Any("error", err))
			}
		}
	}
}
