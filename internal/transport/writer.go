package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/plist"
)

// BuiltinEndpointWriter adapts a UDPConn/addrset.AddressSet pair into a
// plist.BuiltinWriter: it frames the serialized payload handed to it by
// plist.WriteAndFiniPlist into an RTPS message and fans it out to every
// locator in its target address set (spec §4.H). One instance exists per
// local builtin writer entity (SPDP, SEDP publications/subscriptions/topic).
type BuiltinEndpointWriter struct {
	senderPrefix guid.Prefix
	readerID     guid.EntityID
	writerID     guid.EntityID
	targets      func() *addrset.AddressSet
	seq          atomic.Uint64
	logger       *slog.Logger
}

// NewBuiltinEndpointWriter builds a writer for the local writerID entity,
// addressing samples to readerID (the matching builtin reader entity id,
// spec §6), resolving its target locators lazily via targets so the caller
// can swap in a live, growing address set (e.g. "every known proxy
// participant's metatraffic locators") without rebuilding the writer.
func NewBuiltinEndpointWriter(senderPrefix guid.Prefix, readerID, writerID guid.EntityID, targets func() *addrset.AddressSet, logger *slog.Logger) *BuiltinEndpointWriter {
	return &BuiltinEndpointWriter{
		senderPrefix: senderPrefix,
		readerID:     readerID,
		writerID:     writerID,
		targets:      targets,
		logger:       logger.With(slog.String("component", "transport.writer"), slog.String("writer_entity", fmt.Sprintf("%x", writerID))),
	}
}

// WriteSample implements plist.BuiltinWriter.
func (w *BuiltinEndpointWriter) WriteSample(payload []byte, statusInfo plist.StatusInfo, timestamp time.Time) error {
	seq := w.seq.Add(1)
	sec := int32(timestamp.Unix())            //nolint:gosec // G115: RTPS timestamp seconds is a 32-bit field; this core does not need to survive past 2038 by spec.
	fracNano := uint32(timestamp.Nanosecond()) //nolint:gosec // G115: nanosecond-of-second always fits uint32.
	msg := EncodeMessage(w.senderPrefix, w.readerID, w.writerID, seq, sec, fracNano, payload)

	as := w.targets()
	if as == nil || as.Empty() {
		w.logger.Debug("no targets for sample", slog.Uint64("seq", seq), slog.Any("status_info", statusInfo))
		return nil
	}

	var firstErr error
	as.ForAll(func(xl locator.XLocator) {
		conn, ok := xl.Conn.(*UDPConn)
		if !ok {
			return
		}
		if err := conn.Send(context.Background(), xl.Locator, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	if firstErr != nil {
		return fmt.Errorf("transport: write sample seq=%d: %w", seq, firstErr)
	}
	return nil
}
