package cloudbridge

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// -------------------------------------------------------------------------
// Flap dampening for DS-bridge lease transitions
// -------------------------------------------------------------------------
//
// A cloud-bridge participant's lease can flap under load exactly like a
// BFD peer can: each expiry/renewal pair would otherwise immediately
// disable/enable the corresponding BGP peer, churning routes. This
// generalizes the teacher's RFC 5882 Section 3.2 BFD flap dampener
// (internal/gobgp/dampening.go) to key on DS-bridge GUID instead of a BFD
// peer address; the penalty/decay/suppress state machine is unchanged.

// DampeningConfig configures the lease-flap dampening parameters.
type DampeningConfig struct {
	// Enabled controls whether flap dampening is active. When false, all
	// lease transitions are passed through immediately.
	Enabled bool

	// SuppressThreshold is the penalty value above which events are
	// suppressed. Typical value: 3.
	SuppressThreshold float64

	// ReuseThreshold is the penalty value below which suppressed events are
	// allowed again. Must be less than SuppressThreshold. Typical value: 2.
	ReuseThreshold float64

	// MaxSuppressTime bounds how long a single bridge can be suppressed
	// regardless of penalty level. Typical value: 60s.
	MaxSuppressTime time.Duration

	// HalfLife is the time for the penalty to decay by half. Typical
	// value: 15s.
	HalfLife time.Duration
}

// DefaultDampeningConfig returns sensible defaults, mirroring the teacher's
// BFD dampener defaults.
func DefaultDampeningConfig() DampeningConfig {
	return DampeningConfig{
		Enabled:           false,
		SuppressThreshold: 3,
		ReuseThreshold:    2,
		MaxSuppressTime:   60 * time.Second,
		HalfLife:          15 * time.Second,
	}
}

// Dampener tracks flap penalties per DS-bridge GUID and decides whether
// lease transitions should be suppressed.
type Dampener struct {
	cfg    DampeningConfig
	peers  map[string]*bridgePenalty
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

type bridgePenalty struct {
	penalty         float64
	lastUpdate      time.Time
	suppressed      bool
	suppressedSince time.Time
}

// DampenerOption configures optional Dampener parameters.
type DampenerOption func(*Dampener)

// WithClock sets a custom time function, for tests that want to control
// time progression without sleeping.
func WithClock(now func() time.Time) DampenerOption {
	return func(d *Dampener) { d.now = now }
}

// NewDampener creates a flap dampener with the given configuration.
func NewDampener(cfg DampeningConfig, logger *slog.Logger, opts ...DampenerOption) *Dampener {
	d := &Dampener{
		cfg:    cfg,
		peers:  make(map[string]*bridgePenalty),
		logger: logger.With(slog.String("component", "cloudbridge.dampener")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ShouldSuppress records a lease-expiry event for bridgeKey and reports
// whether it should be suppressed due to excessive flapping.
func (d *Dampener) ShouldSuppress(bridgeKey string) bool {
	if !d.cfg.Enabled {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	bp := d.getOrCreate(bridgeKey, now)
	d.decay(bp, now)

	bp.penalty += 1.0
	bp.lastUpdate = now

	if bp.suppressed && now.Sub(bp.suppressedSince) >= d.cfg.MaxSuppressTime {
		d.unsuppress(bp, bridgeKey)
		return false
	}

	if !bp.suppressed && bp.penalty >= d.cfg.SuppressThreshold {
		bp.suppressed = true
		bp.suppressedSince = now
		d.logger.Warn("bridge suppressed due to flap dampening",
			slog.String("bridge", bridgeKey),
			slog.Float64("penalty", bp.penalty),
			slog.Float64("threshold", d.cfg.SuppressThreshold),
		)
	}

	return bp.suppressed
}

// ShouldSuppressRenew reports whether a lease-renewal event for bridgeKey
// should be suppressed, to prevent partial-recovery route flaps.
func (d *Dampener) ShouldSuppressRenew(bridgeKey string) bool {
	if !d.cfg.Enabled {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	bp, exists := d.peers[bridgeKey]
	if !exists {
		return false
	}

	d.decay(bp, now)

	if bp.suppressed && now.Sub(bp.suppressedSince) >= d.cfg.MaxSuppressTime {
		d.unsuppress(bp, bridgeKey)
		return false
	}
	if bp.suppressed && bp.penalty < d.cfg.ReuseThreshold {
		d.unsuppress(bp, bridgeKey)
		return false
	}

	return bp.suppressed
}

// Reset removes the penalty tracking for a bridge, e.g. when its proxy
// participant is permanently deleted rather than merely lease-expired.
func (d *Dampener) Reset(bridgeKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.peers, bridgeKey)
}

func (d *Dampener) getOrCreate(bridgeKey string, now time.Time) *bridgePenalty {
	bp, exists := d.peers[bridgeKey]
	if !exists {
		bp = &bridgePenalty{lastUpdate: now}
		d.peers[bridgeKey] = bp
	}
	return bp
}

// decay applies exponential decay to the penalty: penalty *= 2^(-elapsed/halfLife).
func (d *Dampener) decay(bp *bridgePenalty, now time.Time) {
	if d.cfg.HalfLife <= 0 || bp.penalty == 0 {
		return
	}
	elapsed := now.Sub(bp.lastUpdate)
	if elapsed <= 0 {
		return
	}
	halfLives := float64(elapsed) / float64(d.cfg.HalfLife)
	bp.penalty *= math.Pow(0.5, halfLives)
	bp.lastUpdate = now
	if bp.penalty < 0.001 {
		bp.penalty = 0
	}
}

func (d *Dampener) unsuppress(bp *bridgePenalty, bridgeKey string) {
	bp.suppressed = false
	bp.suppressedSince = time.Time{}
	bp.penalty = 0
	d.logger.Info("bridge unsuppressed, flap dampening cleared", slog.String("bridge", bridgeKey))
}
