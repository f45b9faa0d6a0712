package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoConns indicates that Receiver.Run was called without any
// connections to read from.
var ErrNoConns = errors.New("transport receiver: no connections provided")

// Handler processes one received discovery packet. It is expected to parse
// the RTPS message and route its submessages onward, typically ending in a
// dispatch.Dispatcher.HandleSample call per contained Data submessage.
type Handler func(RawPacket)

// Receiver runs a receive loop per UDPConn, handing each datagram to a
// Handler, mirroring the teacher's per-listener goroutine fan-in
// (internal/netio Receiver.Run) generalized away from the BFD-specific
// unmarshal/demux step.
type Receiver struct {
	logger *slog.Logger
}

// NewReceiver builds a Receiver that logs under the given logger.
func NewReceiver(logger *slog.Logger) *Receiver {
	return &Receiver{logger: logger.With(slog.String("component", "transport.receiver"))}
}

// Run reads from every conn concurrently until ctx is cancelled, blocking
// until all per-connection goroutines return.
func (r *Receiver) Run(ctx context.Context, handle Handler, conns ...*UDPConn) error {
	if len(conns) == 0 {
		return fmt.Errorf("receiver: %w", ErrNoConns)
	}

	done := make(chan struct{}, len(conns))
	for _, c := range conns {
		go func(conn *UDPConn) {
			r.recvLoop(ctx, conn, handle)
			done <- struct{}{}
		}(c)
	}

	for range conns {
		<-done
	}
	return nil
}

func (r *Receiver) recvLoop(ctx context.Context, conn *UDPConn, handle Handler) {
	for {
		if ctx.Err() != nil {
			return
		}
		pkt, err := conn.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrConnClosed) {
				return
			}
			r.logger.Warn("recv error", slog.String("error", err.Error()))
			continue
		}
		handle(pkt)
	}
}
