package lease_test

import (
	"testing"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/lease"
)

func TestLeaseExpiryAndRenew(t *testing.T) {
	t.Parallel()

	t0 := time.Unix(1000, 0)
	l := lease.New(guid.GUID{}, 10*time.Second, t0)

	if l.Expired(t0.Add(5 * time.Second)) {
		t.Fatal("lease should not be expired before duration elapses")
	}
	if !l.Expired(t0.Add(11 * time.Second)) {
		t.Fatal("lease should be expired after duration elapses")
	}

	l.Renew(t0.Add(8 * time.Second))
	if l.Expired(t0.Add(15 * time.Second)) {
		t.Fatal("renewal should have pushed expiry forward")
	}
}

func TestLeaseRenewNeverMovesBackward(t *testing.T) {
	t.Parallel()

	t0 := time.Unix(1000, 0)
	l := lease.New(guid.GUID{}, 10*time.Second, t0)
	l.Renew(t0.Add(20 * time.Second)) // expiry now ~30s

	// A stale, reordered renewal from an earlier time must not move expiry
	// backward.
	l.Renew(t0.Add(1 * time.Second))
	if l.Expired(t0.Add(25 * time.Second)) {
		t.Fatal("renewal must only advance expiry, never retreat it")
	}
}

func TestLeaseInfinityNeverExpires(t *testing.T) {
	t.Parallel()

	t0 := time.Unix(1000, 0)
	l := lease.New(guid.GUID{}, lease.Infinity, t0)
	if l.Expired(t0.Add(1000000 * time.Hour)) {
		t.Fatal("infinite lease must never expire")
	}
}
