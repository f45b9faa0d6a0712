// Package scheduler computes the pseudo-random response delay SPDP replies
// are spread over, and decides whether a pending response should reschedule
// an existing periodic event or queue a one-shot directed event (spec §4.G).
package scheduler

import (
	"time"

	"github.com/dantte-lp/ddsdisc/internal/guid"
)

// pseudoRandomConstants is the fixed set of 64-bit mixing constants the
// delay function folds each GUID/timestamp word against. There is nothing
// cryptographic about this: it only needs to spread concurrent responders
// across a window, not resist prediction (SPEC_FULL §[SUPPLEMENT]).
var pseudoRandomConstants = [10]uint64{
	15385148050874689571,
	17503036526311582379,
	11075621958654396447,
	9748227842331024047,
	14689485562394710107,
	17256284993973210745,
	9288286355086959209,
	17718429552426935775,
	10054290541876311021,
	13417933704571658407,
}

// PseudoRandomDelay derives a deterministic 32-bit pseudo-random value from
// two GUIDs and a timestamp, used to spread SPDP responses to a given peer
// across many local participants without a shared, lockable RNG (spec §4.G
// "pseudo_random_delay").
func PseudoRandomDelay(x, y guid.GUID, tnow time.Time) uint32 {
	cs := &pseudoRandomConstants

	a := prefixWord(x, 0)
	b := prefixWord(x, 1)
	c := prefixWord(x, 2)
	d := entityWord(x)
	e := prefixWord(y, 0)
	f := prefixWord(y, 1)
	g := prefixWord(y, 2)
	h := entityWord(y)

	nanos := uint64(tnow.UnixNano())
	i := uint32(nanos >> 32)
	j := uint32(nanos)

	var m uint64
	m += (uint64(a) + cs[0]) * (uint64(b) + cs[1])
	m += (uint64(c) + cs[2]) * (uint64(d) + cs[3])
	m += (uint64(e) + cs[4]) * (uint64(f) + cs[5])
	m += (uint64(g) + cs[6]) * (uint64(h) + cs[7])
	m += (uint64(i) + cs[8]) * (uint64(j) + cs[9])
	return uint32(m >> 32)
}

func prefixWord(g guid.GUID, word int) uint32 {
	off := word * 4
	return uint32(g.Prefix[off])<<24 | uint32(g.Prefix[off+1])<<16 | uint32(g.Prefix[off+2])<<8 | uint32(g.Prefix[off+3])
}

func entityWord(g guid.GUID) uint32 {
	return uint32(g.Entity[0])<<24 | uint32(g.Entity[1])<<16 | uint32(g.Entity[2])<<8 | uint32(g.Entity[3])
}

// ResponseDelay scales a raw PseudoRandomDelay value down to the configured
// maximum response window (spec §4.G: "delay_norm has roughly 30 bits of
// entropy; delay scales it into [0, spdpResponseDelayMax]").
func ResponseDelay(raw uint32, spdpResponseDelayMax time.Duration) time.Duration {
	delayNorm := raw >> 2
	maxMillis := spdpResponseDelayMax.Milliseconds()
	delay := time.Duration(int64(delayNorm) * maxMillis / 1000)
	if delay > spdpResponseDelayMax {
		delay = spdpResponseDelayMax
	}
	return delay
}

// PendingResponse is a scheduled SPDP reply to one peer, computed for one
// local participant (spec §4.G).
type PendingResponse struct {
	LocalGUID  guid.GUID
	PeerGUID   guid.GUID
	ScheduleAt time.Time
}

// Rescheduler is implemented by a local participant's periodic SPDP xevent:
// when unicast responses are disabled, a pending response is folded into
// the next periodic broadcast instead of a directed reply (spec §4.G
// "reschedule-if-unicast-response-off").
type Rescheduler interface {
	RescheduleIfEarlier(t time.Time)
}

// DirectedQueue is implemented by the outbound event queue that carries
// one-shot directed SPDP replies (spec §4.G "queue-directed-event").
type DirectedQueue interface {
	QueueDirectedSPDP(at time.Time, from, to guid.GUID)
}

// ScheduleResponses computes and dispatches a response for every local
// participant to dest, implementing respond_to_spdp (spec §4.G). When
// unicastResponses is false, responses reschedule each participant's
// existing periodic SPDP event instead of queueing a directed one, since a
// participant with unicast responses disabled can never be involved in the
// delete-before-fire race the directed path guards against.
func ScheduleResponses(
	locals []LocalParticipant,
	dest guid.GUID,
	tnow time.Time,
	spdpResponseDelayMax time.Duration,
	unicastResponses bool,
	queue DirectedQueue,
) {
	for _, lp := range locals {
		raw := PseudoRandomDelay(lp.GUID, dest, tnow)
		delay := ResponseDelay(raw, spdpResponseDelayMax)
		at := tnow.Add(delay)
		if !unicastResponses {
			lp.Periodic.RescheduleIfEarlier(at)
			continue
		}
		queue.QueueDirectedSPDP(at, lp.GUID, dest)
	}
}

// LocalParticipant is the narrow view ScheduleResponses needs of a local
// participant: its identity and its periodic SPDP rescheduler.
type LocalParticipant struct {
	GUID     guid.GUID
	Periodic Rescheduler
}
