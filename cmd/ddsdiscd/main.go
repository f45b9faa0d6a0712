// ddsdiscd is the discovery daemon: it runs one local DDS-RTPS domain
// participant's SPDP/SEDP discovery state machine, serves it over the
// admin HTTP surface and Prometheus metrics, and optionally bridges
// DS-bridge proxy participant lease state into BGP via cloudbridge.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"runtime/trace"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/dantte-lp/ddsdisc/internal/addrset"
	"github.com/dantte-lp/ddsdisc/internal/cloudbridge"
	"github.com/dantte-lp/ddsdisc/internal/config"
	"github.com/dantte-lp/ddsdisc/internal/discovery/dispatch"
	"github.com/dantte-lp/ddsdisc/internal/discovery/sedp"
	"github.com/dantte-lp/ddsdisc/internal/discovery/spdp"
	"github.com/dantte-lp/ddsdisc/internal/entityindex"
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/metrics"
	"github.com/dantte-lp/ddsdisc/internal/plist"
	"github.com/dantte-lp/ddsdisc/internal/pmd"
	"github.com/dantte-lp/ddsdisc/internal/qos"
	"github.com/dantte-lp/ddsdisc/internal/security"
	"github.com/dantte-lp/ddsdisc/internal/server"
	"github.com/dantte-lp/ddsdisc/internal/transport"
	"github.com/dantte-lp/ddsdisc/internal/vendorquirk"
	appversion "github.com/dantte-lp/ddsdisc/internal/version"
)

// shutdownTimeout is the maximum time to wait for HTTP servers to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// flightRecorderMinAge is the minimum window age for the flight recorder.
const flightRecorderMinAge = 500 * time.Millisecond

// flightRecorderMaxBytes is the upper bound on flight recorder window size.
const flightRecorderMaxBytes = 2 * 1024 * 1024 // 2 MiB

// RTPS well-known port formula constants (RTPS 2.5 spec §9.6.1.1):
// metatrafficMulticastPort = PB + DG*domainID + d0.
const (
	rtpsPortBase         = 7400
	rtpsDomainGain       = 250
	rtpsMetaMulticastOff = 0
	rtpsMetaUnicastOff   = 10
)

// spdpAnnounceInterval is how often the local participant re-announces
// itself over SPDP multicast.
const spdpAnnounceInterval = 3 * time.Second

// leaseHousekeepingInterval is how often expired leases and tombstones are
// reaped from the entity index.
const leaseHousekeepingInterval = 1 * time.Second

// pmdAssertionInterval drives pmd.Manager.RunAssertions' automatic
// liveliness cadence for the local participant.
const pmdAssertionInterval = 1 * time.Second

// spdpMulticastGroupAddr is the conventional RTPS discovery multicast address.
const spdpMulticastGroupAddr = "239.255.0.1"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("ddsdiscd starting",
		slog.String("version", appversion.Version),
		slog.String("admin_addr", cfg.GRPC.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.Uint64("domain_id", uint64(cfg.Domain.DomainID)),
	)

	fr := startFlightRecorder(logger)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	index := entityindex.New(logger)

	if err := runDaemon(cfg, index, collector, reg, logger, *configPath, logLevel, fr); err != nil {
		logger.Error("ddsdiscd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("ddsdiscd stopped")
	return 0
}

// runDaemon wires up the discovery engines, transport, admin/metrics HTTP
// servers and supervises them with an errgroup under a signal-aware
// context, mirroring the teacher's runServers supervision shape.
func runDaemon(
	cfg *config.Config,
	index *entityindex.Index,
	collector *metrics.Collector,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
	fr *trace.FlightRecorder,
) error {
	interfaces, err := buildInterfaces(cfg.Interfaces)
	if err != nil {
		return fmt.Errorf("build interfaces: %w", err)
	}

	metaPort := rtpsPortBase + rtpsDomainGain*int(cfg.Domain.DomainID) + rtpsMetaUnicastOff
	mcastPort := rtpsPortBase + rtpsDomainGain*int(cfg.Domain.DomainID) + rtpsMetaMulticastOff

	mcastGroup, err := netip.ParseAddr(spdpMulticastGroupAddr)
	if err != nil {
		return fmt.Errorf("parse multicast group: %w", err)
	}
	mcastLoc := locator.FromNetipAddr(locator.KindUDPv4, mcastGroup, uint32(mcastPort)) //nolint:gosec // G115: port derived from domain id within uint32 range by construction.

	udpConns, mcastConn, err := openConns(interfaces, metaPort, mcastPort, mcastGroup, logger)
	if err != nil {
		return fmt.Errorf("open transport connections: %w", err)
	}
	defer closeConns(udpConns, mcastConn, logger)

	conns := make([]locator.Conn, len(udpConns))
	for i, c := range udpConns {
		conns[i] = c
	}

	localGUID := newLocalParticipantGUID()
	if _, err := index.CreateParticipant(localGUID, cfg.Domain.DomainID, time.Now()); err != nil {
		return fmt.Errorf("register local participant: %w", err)
	}

	allowMulticast, err := config.ParseAllowMulticast(cfg.Domain.AllowMulticast)
	if err != nil {
		return fmt.Errorf("parse allow_multicast: %w", err)
	}
	builderCfg := addrset.BuilderConfig{
		AllowMulticast: multicastPolicyFromTokens(allowMulticast),
		MulticastTTL:   cfg.Domain.MulticastTTL,
		DontRoute:      cfg.Domain.DontRoute,
	}

	spdpEngine := spdp.New(spdp.Config{
		DomainID:                      cfg.Domain.DomainID,
		DomainTag:                     cfg.Domain.DomainTag,
		DefaultLeaseDuration:          100 * time.Second,
		SPDPResponseDelayMax:          cfg.Domain.SPDPResponseDelayMax,
		UnicastResponseToSPDPMessages: true,
		AddrSet:                       builderCfg,
	}, security.Noop{}, index, interfaces, conns, logger)

	sedpEngine := sedp.New(sedp.Config{
		DefaultLeaseDuration: 100 * time.Second,
		AddrSet:              builderCfg,
		DSBridgeEnabled:      cfg.CloudBridge.Enabled,
	}, index, interfaces, conns, logger)

	announceWriter := newMulticastWriter(localGUID.Prefix, dispatch.SPDPBuiltinParticipantReader,
		dispatch.SPDPBuiltinParticipantWriter, interfaces, conns, mcastLoc, builderCfg, logger)

	pmdWriter := newMulticastWriter(localGUID.Prefix, dispatch.P2PBuiltinParticipantMessageReader,
		dispatch.P2PBuiltinParticipantMessageWriter, interfaces, conns, mcastLoc, builderCfg, logger)
	pmdSender := &builtinPMDSender{writer: pmdWriter}
	pmdManager := pmd.New(index, pmdSender, pmdAssertionInterval, logger)

	dispatcher := dispatch.New(spdpEngine, sedpEngine, pmdManager, index, logger)

	participantSrc := buildParticipantSource(localGUID, cfg, interfaces)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	startReceiveLoop(gCtx, g, udpConns, mcastConn, dispatcher, collector, logger)
	startAnnounceLoop(gCtx, g, spdpEngine, announceWriter, participantSrc, logger)
	startHousekeepingLoop(gCtx, g, index, collector, logger)
	startPMDLoop(gCtx, g, pmdManager, localGUID)

	bridgeClient, err := startCloudBridge(gCtx, g, cfg.CloudBridge, index, logger)
	if err != nil {
		return fmt.Errorf("start cloudbridge: %w", err)
	}
	defer closeCloudBridgeClient(bridgeClient, logger)

	adminSrv := newAdminServer(cfg.GRPC, index, logger)
	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	startHTTPServers(gCtx, g, cfg, adminSrv, metricsSrv, logger)
	startDaemonGoroutines(gCtx, g, configPath, logLevel, logger)

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, fr, adminSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Transport wiring
// -------------------------------------------------------------------------

func buildInterfaces(ics []config.InterfaceConfig) ([]locator.Interface, error) {
	interfaces := make([]locator.Interface, 0, len(ics))
	for i, ic := range ics {
		addr, err := ic.Addr()
		if err != nil {
			return nil, err
		}
		extAddr, err := ic.ExtAddr()
		if err != nil {
			return nil, err
		}

		loc := locator.FromNetipAddr(locator.KindUDPv4, addr, 0)
		extLoc := locator.FromNetipAddr(locator.KindUDPv4, extAddr, 0)

		interfaces = append(interfaces, locator.Interface{
			Loc:       loc,
			ExtLoc:    extLoc,
			Kind:      locator.KindUDPv4,
			Name:      ic.Name,
			Loopback:  addr.IsLoopback(),
			MCCapable: ic.MulticastCapable,
			Index:     uint8(i), //nolint:gosec // G115: interface count is bounded by locator.MaxXmitConns.
		})
	}
	return interfaces, nil
}

// openConns opens one metatraffic unicast UDPConn per interface plus a
// single shared multicast UDPConn joining the SPDP discovery group for
// receiving.
func openConns(interfaces []locator.Interface, metaPort, mcastPort int, mcastGroup netip.Addr, logger *slog.Logger) ([]*transport.UDPConn, *transport.UDPConn, error) {
	conns := make([]*transport.UDPConn, 0, len(interfaces))
	for _, ifc := range interfaces {
		uc, err := transport.NewUDPConn(transport.Config{
			LocalAddr: ifc.Loc.Addr(),
			Port:      uint16(metaPort), //nolint:gosec // G115: port derived from domain id within uint16 range by construction.
			IfName:    ifc.Name,
			Loopback:  ifc.Loopback,
		}, logger)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return nil, nil, err
		}
		conns = append(conns, uc)
	}

	mc, err := transport.NewUDPConn(transport.Config{
		LocalAddr:       netip.IPv4Unspecified(),
		Port:            uint16(mcastPort), //nolint:gosec // G115: see above.
		MulticastGroups: []netip.Addr{mcastGroup},
	}, logger)
	if err != nil {
		for _, c := range conns {
			_ = c.Close()
		}
		return nil, nil, err
	}

	return conns, mc, nil
}

func closeConns(conns []*transport.UDPConn, mcastConn *transport.UDPConn, logger *slog.Logger) {
	for _, c := range conns {
		if err := c.Close(); err != nil {
			logger.Warn("failed to close transport connection", slog.String("error", err.Error()))
		}
	}
	if mcastConn != nil {
		if err := mcastConn.Close(); err != nil {
			logger.Warn("failed to close multicast connection", slog.String("error", err.Error()))
		}
	}
}

// newMulticastWriter builds a BuiltinEndpointWriter whose targets are the
// SPDP discovery multicast group across every multicast-capable interface.
func newMulticastWriter(
	prefix guid.Prefix,
	readerID, writerID guid.EntityID,
	interfaces []locator.Interface,
	conns []locator.Conn,
	mcastLoc locator.Locator,
	builderCfg addrset.BuilderConfig,
	logger *slog.Logger,
) *transport.BuiltinEndpointWriter {
	var inherited locator.InterfaceSet
	for _, ifc := range interfaces {
		if ifc.MCCapable {
			inherited.Set(ifc.Index)
		}
	}

	targets := func() *addrset.AddressSet {
		as, _ := addrset.FromLocatorLists(interfaces, conns, nil, []locator.Locator{mcastLoc}, locator.Locator{}, &inherited, builderCfg)
		return as
	}

	return transport.NewBuiltinEndpointWriter(prefix, readerID, writerID, targets, logger)
}

// -------------------------------------------------------------------------
// Inbound receive — decode gap is documented, not papered over
// -------------------------------------------------------------------------

// startReceiveLoop runs the receive loop over every transport connection.
// There is no RTPS submessage decoder in this core yet: inbound bytes are
// accounted for in metrics as dropped (reason "decode_not_implemented")
// rather than silently discarded, so operators can see the gap rather than
// assume discovery is bidirectional. dispatcher is accepted here so that
// wiring a real decoder later only means replacing the handler body with a
// call into dispatcher.HandleSample, not touching the supervision shape.
func startReceiveLoop(
	ctx context.Context,
	g *errgroup.Group,
	conns []*transport.UDPConn,
	mcastConn *transport.UDPConn,
	dispatcher *dispatch.Dispatcher,
	collector *metrics.Collector,
	logger *slog.Logger,
) {
	_ = dispatcher

	all := append([]*transport.UDPConn{}, conns...)
	if mcastConn != nil {
		all = append(all, mcastConn)
	}
	if len(all) == 0 {
		return
	}

	recv := transport.NewReceiver(logger)
	handle := func(pkt transport.RawPacket) {
		collector.IncDiscoveryMessagesDropped("unknown", "decode_not_implemented")
		logger.Debug("received undecoded discovery packet",
			slog.String("src", pkt.Src.String()),
			slog.Int("bytes", len(pkt.Payload)),
		)
	}

	g.Go(func() error {
		return recv.Run(ctx, handle, all...)
	})
}

// -------------------------------------------------------------------------
// Outbound SPDP announce loop
// -------------------------------------------------------------------------

func startAnnounceLoop(ctx context.Context, g *errgroup.Group, engine *spdp.Engine, wr plist.BuiltinWriter, src plist.ParticipantSource, logger *slog.Logger) {
	g.Go(func() error {
		ticker := time.NewTicker(spdpAnnounceInterval)
		defer ticker.Stop()

		if err := engine.Write(wr, src); err != nil {
			logger.Warn("initial SPDP announce failed", slog.String("error", err.Error()))
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := engine.Write(wr, src); err != nil {
					logger.Warn("SPDP announce failed", slog.String("error", err.Error()))
				}
			}
		}
	})
}

// -------------------------------------------------------------------------
// Lease/tombstone housekeeping loop
// -------------------------------------------------------------------------

func startHousekeepingLoop(ctx context.Context, g *errgroup.Group, index *entityindex.Index, collector *metrics.Collector, logger *slog.Logger) {
	g.Go(func() error {
		ticker := time.NewTicker(leaseHousekeepingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				now := time.Now()
				expired := index.ExpireLeases(now)
				for range expired {
					collector.IncLeaseExpirations()
				}
				reaped := index.ReapTombstones(now)
				if reaped > 0 {
					logger.Debug("reaped tombstones", slog.Int("count", reaped))
				}
				collector.SetProxyEntities("participant", float64(len(index.ProxyParticipants())))
			}
		}
	})
}

// -------------------------------------------------------------------------
// PMD (liveliness assertion) loop
// -------------------------------------------------------------------------

func startPMDLoop(ctx context.Context, g *errgroup.Group, mgr *pmd.Manager, local guid.GUID) {
	g.Go(func() error {
		mgr.RunAssertions(ctx, local)
		return nil
	})
}

// builtinPMDSender adapts a transport.BuiltinEndpointWriter into pmd.Sender
// by emitting the ParticipantMessageData payload verbatim as the RTPS
// sample body.
type builtinPMDSender struct {
	writer plist.BuiltinWriter
}

func (s *builtinPMDSender) SendParticipantMessage(_ guid.GUID, _ pmd.Kind, data []byte) error {
	return s.writer.WriteSample(data, 0, time.Now())
}

// -------------------------------------------------------------------------
// CloudBridge integration
// -------------------------------------------------------------------------

func startCloudBridge(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.CloudBridgeConfig,
	index *entityindex.Index,
	logger *slog.Logger,
) (*cloudbridge.GRPCClient, error) {
	if !cfg.Enabled {
		logger.Info("cloudbridge integration disabled")
		return nil, nil
	}

	client, err := cloudbridge.NewGRPCClient(cloudbridge.GRPCClientConfig{
		Addr: cfg.Addr,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create cloudbridge client: %w", err)
	}

	bridge := cloudbridge.New(cloudbridge.Config{
		Client:       client,
		Strategy:     cloudbridge.StrategyDisablePeer,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
		Dampening: cloudbridge.DampeningConfig{
			Enabled:           cfg.Dampening.Enabled,
			SuppressThreshold: cfg.Dampening.SuppressThreshold,
			ReuseThreshold:    cfg.Dampening.ReuseThreshold,
			MaxSuppressTime:   cfg.Dampening.MaxSuppressTime,
			HalfLife:          cfg.Dampening.HalfLife,
		},
	})

	g.Go(func() error {
		return bridge.Run(ctx, index)
	})

	logger.Info("cloudbridge integration enabled",
		slog.String("addr", cfg.Addr),
		slog.Bool("dampening", cfg.Dampening.Enabled),
	)

	return client, nil
}

func closeCloudBridgeClient(client *cloudbridge.GRPCClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Warn("failed to close cloudbridge client", slog.String("error", err.Error()))
	}
}

// -------------------------------------------------------------------------
// HTTP servers — admin/introspection + metrics
// -------------------------------------------------------------------------

func startHTTPServers(ctx context.Context, g *errgroup.Group, cfg *config.Config, adminSrv, metricsSrv *http.Server, logger *slog.Logger) {
	lc := net.ListenConfig{}

	g.Go(func() error {
		logger.Info("admin server listening", slog.String("addr", cfg.GRPC.Addr))
		return listenAndServe(ctx, &lc, adminSrv, cfg.GRPC.Addr)
	})

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(ctx, &lc, metricsSrv, cfg.Metrics.Addr)
	})
}

// newAdminServer wraps the admin mux in h2c so gRPC-style admin tooling can
// dial it over plaintext HTTP/2, even though the handlers underneath are
// plain JSON rather than a gRPC service.
func newAdminServer(cfg config.GRPCConfig, index *entityindex.Index, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	path, handler := server.New(index, logger,
		server.LoggingMiddleware(logger),
		server.RecoveryMiddleware(logger),
	)
	mux.Handle(path, handler)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Systemd integration — sd_notify + watchdog
// -------------------------------------------------------------------------

func startDaemonGoroutines(ctx context.Context, g *errgroup.Group, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	g.Go(func() error {
		return runWatchdog(ctx, logger)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(ctx, sigHUP, configPath, logLevel, logger)
		return nil
	})
}

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.String("error", err.Error()))
		return nil
	}
	if interval == 0 {
		logger.Debug("systemd watchdog not configured, skipping keepalive")
		return nil
	}

	tickInterval := interval / 2
	logger.Info("systemd watchdog enabled",
		slog.Duration("watchdog_sec", interval),
		slog.Duration("keepalive_interval", tickInterval),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive", slog.String("error", wdErr.Error()))
			}
		}
	}
}

// -------------------------------------------------------------------------
// SIGHUP reload — log level only; discovery has no declarative session set
// -------------------------------------------------------------------------

func handleSIGHUP(ctx context.Context, sigHUP <-chan os.Signal, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading configuration")
			reloadConfig(configPath, logLevel, logger)
		}
	}
}

func reloadConfig(configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	newCfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to reload configuration, keeping current settings", slog.String("error", err.Error()))
		return
	}

	oldLevel := logLevel.Level()
	newLevel := config.ParseLogLevel(newCfg.Log.Level)
	logLevel.Set(newLevel)

	logger.Info("configuration reloaded",
		slog.String("old_log_level", oldLevel.String()),
		slog.String("new_log_level", newLevel.String()),
	)
}

// -------------------------------------------------------------------------
// Graceful shutdown
// -------------------------------------------------------------------------

func gracefulShutdown(ctx context.Context, logger *slog.Logger, fr *trace.FlightRecorder, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	if fr != nil {
		fr.Stop()
		logger.Debug("flight recorder stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

// -------------------------------------------------------------------------
// Flight recorder — Go 1.26 runtime/trace
// -------------------------------------------------------------------------

func startFlightRecorder(logger *slog.Logger) *trace.FlightRecorder {
	fr := trace.NewFlightRecorder(trace.FlightRecorderConfig{
		MinAge:   flightRecorderMinAge,
		MaxBytes: flightRecorderMaxBytes,
	})

	if err := fr.Start(); err != nil {
		logger.Warn("failed to start flight recorder", slog.String("error", err.Error()))
		return nil
	}

	logger.Info("flight recorder started",
		slog.Duration("min_age", flightRecorderMinAge),
		slog.Uint64("max_bytes", flightRecorderMaxBytes),
	)

	return fr
}

// -------------------------------------------------------------------------
// Config/logging helpers
// -------------------------------------------------------------------------

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// -------------------------------------------------------------------------
// Participant identity + plist construction
// -------------------------------------------------------------------------

// newLocalParticipantGUID generates a random GUID prefix (host-unique for
// the lifetime of the process) and stamps the well-known participant
// entity id.
func newLocalParticipantGUID() guid.GUID {
	var prefix guid.Prefix
	_, _ = rand.Read(prefix[:])
	return guid.GUID{
		Prefix: prefix,
		Entity: guid.EntityID{0x00, 0x00, 0x01, guid.KindParticipant},
	}
}

func buildParticipantSource(g guid.GUID, cfg *config.Config, interfaces []locator.Interface) plist.ParticipantSource {
	bes := plist.BESParticipantAnnouncer | plist.BESParticipantDetector |
		plist.BESParticipantMessageDataWriter | plist.BESParticipantMessageDataReader
	if cfg.Domain.BESMode != "minimal" {
		bes |= plist.BESPublicationAnnouncer | plist.BESPublicationDetector |
			plist.BESSubscriptionAnnouncer | plist.BESSubscriptionDetector |
			plist.BESTopicAnnouncer | plist.BESTopicDetector
	}

	pifaces := make([]plist.ParticipantInterface, 0, len(interfaces))
	for _, ifc := range interfaces {
		pifaces = append(pifaces, plist.ParticipantInterface{
			Unicast:    ifc.ExtLoc,
			EnableSPDP: true,
			IncludeMC:  ifc.MCCapable,
		})
	}

	return plist.ParticipantSource{
		GUID:               g,
		VendorID:           vendorquirk.VendorDDSDisc,
		ProtoMajor:         2,
		ProtoMinor:         5,
		DomainID:           cfg.Domain.DomainID,
		DomainTag:          cfg.Domain.DomainTag,
		BuiltinEndpointSet: bes,
		Interfaces:         pifaces,
		QoS:                qos.QoS{},
		DefaultQoS:         qos.QoS{},
		MinimalBESMode:     cfg.Domain.BESMode == "minimal",
		HostIdentification: fmt.Sprintf("ddsdiscd/%s", appversion.Version),
		Security:           security.Noop{},
	}
}

// -------------------------------------------------------------------------
// Multicast policy mapping
// -------------------------------------------------------------------------

func multicastPolicyFromTokens(tokens map[string]bool) addrset.MulticastPolicy {
	var p addrset.MulticastPolicy
	if tokens["asm"] {
		p |= addrset.AllowASM
	}
	if tokens["ssm"] {
		p |= addrset.AllowSSM
	}
	if tokens["spdp"] {
		p |= addrset.AllowSPDP
	}
	if tokens["asm_default"] {
		p |= addrset.AllowASMDefault
	}
	if tokens["spdp_asm"] {
		p |= addrset.AllowSPDPASM
	}
	return p
}
