// Package lease implements liveliness lease tracking for proxy
// participants (spec §3 "Lease", §4.D, §5).
package lease

import (
	"sync/atomic"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/guid"
)

// Infinity marks a lease that never expires (spec §3: "DDS_INFINITY means
// never expires"), used for leases slaved to a privileged participant.
const Infinity time.Duration = -1

// Lease is the liveliness contract for a proxy participant. Renewal is
// lock-free via atomic operations (spec §5: "Lease state uses atomic
// pointer (minl_auto) plus an atomic expiry timestamp; renewal is
// lock-free").
type Lease struct {
	duration time.Duration // immutable after construction
	expiry   atomic.Int64  // UnixNano; renewal only advances it
	owner    guid.GUID
}

// New creates a Lease for owner with the given duration, expiring at
// now+duration (or never, if duration is Infinity).
func New(owner guid.GUID, duration time.Duration, now time.Time) *Lease {
	l := &Lease{duration: duration, owner: owner}
	l.expiry.Store(expiryNanos(duration, now))
	return l
}

func expiryNanos(duration time.Duration, now time.Time) int64 {
	if duration == Infinity {
		return int64(^uint64(0) >> 1) // math.MaxInt64, avoids importing math for one constant
	}
	return now.Add(duration).UnixNano()
}

// Duration returns the lease's configured duration.
func (l *Lease) Duration() time.Duration {
	return l.duration
}

// Owner returns the GUID this lease protects.
func (l *Lease) Owner() guid.GUID {
	return l.owner
}

// Renew advances the lease's expiry to now+duration, per spec §3: "renewal
// only advances expiry" — a renewal that would move expiry backwards
// (a stale, reordered renewal) is a no-op.
func (l *Lease) Renew(now time.Time) {
	if l.duration == Infinity {
		return
	}
	next := expiryNanos(l.duration, now)
	for {
		cur := l.expiry.Load()
		if next <= cur {
			return
		}
		if l.expiry.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Expired reports whether the lease has expired as of now.
func (l *Lease) Expired(now time.Time) bool {
	if l.duration == Infinity {
		return false
	}
	return now.UnixNano() >= l.expiry.Load()
}

// ExpiresAt returns the absolute expiry time.
func (l *Lease) ExpiresAt() time.Time {
	if l.duration == Infinity {
		return time.Time{}
	}
	return time.Unix(0, l.expiry.Load())
}
