package cloudbridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
)

// Strategy determines how a DS-bridge lease transition affects BGP.
type Strategy string

// StrategyDisablePeer disables/enables the BGP peer keyed by the bridge's
// advertised metatraffic unicast address on lease expiry/renewal. It is the
// only strategy implemented, mirroring the teacher's gobgp integration
// (internal/gobgp.StrategyDisablePeer is likewise the only implemented
// strategy there).
const StrategyDisablePeer Strategy = "disable-peer"

// Config configures a Bridge.
type Config struct {
	Client       Client
	Strategy     Strategy
	Dampening    DampeningConfig
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Bridge polls the entity index for DS-bridge proxy participants (those
// carrying vendorquirk.QuirkCloudBridge) and reacts to their lease
// expiring or renewing by disabling/enabling the corresponding BGP peer,
// through a dampener that absorbs rapid flapping (spec §4.D step 8).
type Bridge struct {
	client   Client
	strategy Strategy
	dampener *Dampener
	interval time.Duration
	logger   *slog.Logger

	// tracked holds the last-known peer address for every DS-bridge
	// currently present in the index, keyed by GUID string. A bridge
	// dropping out of this map (because entityindex.Index deleted its
	// proxy participant, whether via explicit dispose or via its own
	// lease-expiry sweep) is this watcher's down signal; one reappearing
	// is its up signal. Polling pp.Lease.Expired directly is not safe
	// here since the index may tombstone and remove an expired proxy
	// participant before the next scan observes it as expired.
	tracked map[string]string
}

// New builds a Bridge from cfg.
func New(cfg Config) *Bridge {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Bridge{
		client:     cfg.Client,
		strategy:   cfg.Strategy,
		dampener:   NewDampener(cfg.Dampening, cfg.Logger),
		interval:   interval,
		logger:     cfg.Logger.With(slog.String("component", "cloudbridge.bridge")),
		tracked:    make(map[string]string),
	}
}

// Run polls ix every interval until ctx is cancelled, reacting to DS-bridge
// lease transitions.
func (b *Bridge) Run(ctx context.Context, ix *entityindex.Index) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("cloud bridge watcher started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("cloud bridge watcher stopped")
			return nil
		case <-ticker.C:
			b.scan(ctx, ix)
		}
	}
}

// scan diffs the current set of DS-bridge proxy participants against the
// previous poll: a bridge's GUID dropping out of the index (whether via
// explicit disposal or the index's own lease-expiry sweep) drives a
// disable; one appearing (first discovery or after a prior expiry) drives
// an enable.
func (b *Bridge) scan(ctx context.Context, ix *entityindex.Index) {
	present := make(map[string]string)

	for _, pp := range ix.ProxyParticipants() {
		if !pp.Quirks.Has(vendorquirk.QuirkCloudBridge) {
			continue
		}
		addr, ok := gatewayAddr(pp)
		if !ok {
			continue
		}
		key := pp.GUID.String()
		present[key] = addr

		if _, wasTracked := b.tracked[key]; !wasTracked {
			b.handleRenewed(ctx, key, addr)
		}
	}

	for key, addr := range b.tracked {
		if _, stillPresent := present[key]; !stillPresent {
			b.handleExpired(ctx, key, addr)
		}
	}

	b.tracked = present
}

func (b *Bridge) handleExpired(ctx context.Context, key, addr string) {
	if b.dampener.ShouldSuppress(key) {
		b.logger.Warn("DS-bridge lease expiry suppressed by flap dampening", slog.String("bridge", key))
		return
	}
	b.logger.Info("DS-bridge lease expired, disabling BGP peer", slog.String("bridge", key), slog.String("peer", addr))
	if err := b.applyExpired(ctx, addr); err != nil {
		b.logger.Error("failed to disable BGP peer for expired DS-bridge",
			slog.String("bridge", key), slog.String("peer", addr), slog.String("error", err.Error()))
	}
}

func (b *Bridge) handleRenewed(ctx context.Context, key, addr string) {
	if b.dampener.ShouldSuppressRenew(key) {
		b.logger.Warn("DS-bridge lease renewal suppressed by flap dampening", slog.String("bridge", key))
		return
	}
	b.logger.Info("DS-bridge lease renewed, enabling BGP peer", slog.String("bridge", key), slog.String("peer", addr))
	if err := b.applyRenewed(ctx, addr); err != nil {
		b.logger.Error("failed to enable BGP peer for renewed DS-bridge",
			slog.String("bridge", key), slog.String("peer", addr), slog.String("error", err.Error()))
	}
}

func (b *Bridge) applyExpired(ctx context.Context, addr string) error {
	switch b.strategy {
	case StrategyDisablePeer:
		if err := b.client.DisablePeer(ctx, addr, "ddsdisc: DS-bridge lease expired"); err != nil {
			return fmt.Errorf("disable peer %s: %w", addr, err)
		}
		return nil
	default:
		return fmt.Errorf("unrecognized cloudbridge strategy %q", b.strategy)
	}
}

func (b *Bridge) applyRenewed(ctx context.Context, addr string) error {
	switch b.strategy {
	case StrategyDisablePeer:
		if err := b.client.EnablePeer(ctx, addr); err != nil {
			return fmt.Errorf("enable peer %s: %w", addr, err)
		}
		return nil
	default:
		return fmt.Errorf("unrecognized cloudbridge strategy %q", b.strategy)
	}
}

// gatewayAddr returns the first unicast metatraffic locator address
// advertised by pp, the address this core treats as the bridge's BGP
// peering address.
func gatewayAddr(pp *entityindex.ProxyParticipant) (string, bool) {
	if pp.MetatrafficAddrSet == nil {
		return "", false
	}
	var addr string
	var found bool
	pp.MetatrafficAddrSet.ForAll(func(xl locator.XLocator) {
		if found || locator.IsMulticastAddress(xl.Locator) {
			return
		}
		addr = xl.Locator.Addr().String()
		found = true
	})
	return addr, found
}
