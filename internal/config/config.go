// Package config manages the discovery daemon's configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete ddsdisc configuration.
type Config struct {
	GRPC        GRPCConfig        `koanf:"grpc"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Log         LogConfig         `koanf:"log"`
	BFD         BFDConfig         `koanf:"bfd"`
	Sessions    []SessionConfig   `koanf:"sessions"`
	Domain      DomainConfig      `koanf:"domain"`
	Interfaces  []InterfaceConfig `koanf:"interfaces"`
	CloudBridge CloudBridgeConfig `koanf:"cloudbridge"`
}

// GRPCConfig holds the admin/introspection HTTP server configuration. The
// name is kept from the teacher's ConnectRPC-era field since the listener
// is still wrapped in h2c so gRPC-style tooling can dial it over plaintext.
type GRPCConfig struct {
	// Addr is the admin HTTP listen address (e.g., ":50051").
	Addr string `koanf:"addr"`
}

// CloudBridgeConfig holds the gobgp-backed DS-bridge route bridging
// configuration: when enabled, lease-state transitions of cloud-discovery
// proxy participants are turned into BGP route advertisement/withdrawal.
type CloudBridgeConfig struct {
	// Enabled turns the cloudbridge watcher on.
	Enabled bool `koanf:"enabled"`

	// Addr is the gobgpd gRPC API address (e.g., "127.0.0.1:50051").
	Addr string `koanf:"addr"`

	// Strategy selects the route action taken on bridge up/down.
	Strategy string `koanf:"strategy"`

	// PollInterval is how often the entity index is scanned for DS-bridge
	// proxy participants appearing or disappearing.
	PollInterval time.Duration `koanf:"poll_interval"`

	Dampening DampeningConfig `koanf:"dampening"`
}

// DampeningConfig holds RFC 5882 Section 3.2-style flap dampening
// parameters for cloudbridge, keyed on DS-bridge GUID rather than BFD peer
// address.
type DampeningConfig struct {
	Enabled           bool          `koanf:"enabled"`
	SuppressThreshold float64       `koanf:"suppress_threshold"`
	ReuseThreshold    float64       `koanf:"reuse_threshold"`
	MaxSuppressTime   time.Duration `koanf:"max_suppress_time"`
	HalfLife          time.Duration `koanf:"half_life"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// BFDConfig holds the default BFD session parameters. Load parses and
// Validate checks them; the daemon does not read them.
type BFDConfig struct {
	// DefaultDesiredMinTx is the default desired minimum TX interval.
	// RFC 5880 Section 6.8.1: used as the initial bfd.DesiredMinTxInterval.
	DefaultDesiredMinTx time.Duration `koanf:"default_desired_min_tx"`

	// DefaultRequiredMinRx is the default required minimum RX interval.
	// RFC 5880 Section 6.8.1: used as the initial bfd.RequiredMinRxInterval.
	DefaultRequiredMinRx time.Duration `koanf:"default_required_min_rx"`

	// DefaultDetectMultiplier is the default detection time multiplier.
	// RFC 5880 Section 6.8.1: MUST be nonzero.
	DefaultDetectMultiplier uint32 `koanf:"default_detect_multiplier"`
}

// SessionConfig describes a declarative BFD session from the configuration file.
// Entries are parsed and validated; the daemon creates no sessions from them.
type SessionConfig struct {
	// Peer is the remote system's IP address.
	Peer string `koanf:"peer"`

	// Local is the local system's IP address.
	Local string `koanf:"local"`

	// Interface is the network interface for SO_BINDTODEVICE (optional).
	Interface string `koanf:"interface"`

	// Type is the session type: "single_hop" or "multi_hop".
	Type string `koanf:"type"`

	// DesiredMinTx is the desired minimum TX interval (e.g., "100ms").
	DesiredMinTx time.Duration `koanf:"desired_min_tx"`

	// RequiredMinRx is the required minimum RX interval (e.g., "100ms").
	RequiredMinRx time.Duration `koanf:"required_min_rx"`

	// DetectMult is the detection multiplier (must be >= 1).
	DetectMult uint32 `koanf:"detect_mult"`
}

// SessionKey returns a unique identifier for the session based on
// (peer, local, interface). Validate uses it to reject duplicate sessions.
func (sc SessionConfig) SessionKey() string {
	return sc.Peer + "|" + sc.Local + "|" + sc.Interface
}

// PeerAddr parses the Peer string as a netip.Addr.
func (sc SessionConfig) PeerAddr() (netip.Addr, error) {
	if sc.Peer == "" {
		return netip.Addr{}, fmt.Errorf("session peer: %w", ErrInvalidSessionPeer)
	}
	addr, err := netip.ParseAddr(sc.Peer)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse session peer %q: %w", sc.Peer, err)
	}
	return addr, nil
}

// LocalAddr parses the Local string as a netip.Addr.
func (sc SessionConfig) LocalAddr() (netip.Addr, error) {
	if sc.Local == "" {
		return netip.Addr{}, nil
	}
	addr, err := netip.ParseAddr(sc.Local)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse session local %q: %w", sc.Local, err)
	}
	return addr, nil
}

// -------------------------------------------------------------------------
// Domain / Interfaces
// -------------------------------------------------------------------------

// DomainConfig holds the discovery domain's configuration surface (the
// knobs consulted while building participant plists and address sets).
type DomainConfig struct {
	// DomainID is the DDS domain id this core participates in.
	DomainID uint32 `koanf:"domain_id"`

	// DomainTag disambiguates participants sharing a DomainID (RTPS
	// vendor-specific domain tag PID).
	DomainTag string `koanf:"domain_tag"`

	// AllowMulticast is a '|'-separated bitset string: any of
	// "asm", "ssm", "spdp", "asm_default", "spdp_asm".
	AllowMulticast string `koanf:"allow_multicast"`

	// MulticastTTL is the domain's multicast hop limit.
	MulticastTTL uint8 `koanf:"multicast_ttl"`

	// DontRoute disables the "distant address, pick a routing-capable
	// interface" fallback in address-set building.
	DontRoute bool `koanf:"dont_route"`

	// TCPUsePeerAddrForUnicast prefers the TCP peer's observed source
	// address over its advertised unicast locator.
	TCPUsePeerAddrForUnicast bool `koanf:"tcp_use_peeraddr_for_unicast"`

	// ManySocketsMode binds a distinct UDP socket per proxy participant
	// rather than sharing the domain's default sockets.
	ManySocketsMode bool `koanf:"many_sockets_mode"`

	// BESMode selects a reduced set of builtin endpoints to announce
	// ("full" or "minimal"); empty means the implementation default.
	BESMode string `koanf:"besmode"`

	// ExplicitlyPublishQoSSetToDefault forces QoS parameters equal to
	// their documented default to still be serialized in outgoing plists.
	ExplicitlyPublishQoSSetToDefault bool `koanf:"explicitly_publish_qos_set_to_default"`

	// PublishUCLocators controls whether unicast locators are included in
	// outgoing SPDP/SEDP data even when multicast discovery is viable.
	PublishUCLocators bool `koanf:"publish_uc_locators"`

	// AssumeRTIHasPMDEndpoints works around RTI Connext peers that omit
	// PMD endpoints from their builtin endpoint set announcement
	// (vendorquirk.QuirkRTIMissingPMD).
	AssumeRTIHasPMDEndpoints bool `koanf:"assume_rti_has_pmd_endpoints"`

	// RedundantNetworking enables Cyclone's multi-interface redundant
	// discovery extension.
	RedundantNetworking bool `koanf:"redundant_networking"`

	// SPDPResponseDelayMax bounds the jittered delay before responding to
	// an incoming SPDP message with this node's own announcement.
	SPDPResponseDelayMax time.Duration `koanf:"spdp_response_delay_max"`

	// UnicastResponseToSPDPMessages replies to SPDP messages via unicast
	// rather than the domain's regular multicast announcement cadence.
	UnicastResponseToSPDPMessages bool `koanf:"unicast_response_to_spdp_messages"`
}

// InterfaceConfig declares one network interface this domain binds to,
// analogous to the teacher's SessionConfig declarative list.
type InterfaceConfig struct {
	// Name is the OS-level interface name (e.g. "eth0").
	Name string `koanf:"name"`
	// Address is this interface's primary (locally bound) address.
	Address string `koanf:"address"`
	// ExternalAddress is the address this interface should be advertised
	// as; empty means no NAT rewrite.
	ExternalAddress string `koanf:"external_address"`
	// MulticastCapable marks the interface eligible for multicast
	// discovery traffic.
	MulticastCapable bool `koanf:"multicast_capable"`
}

// Addr parses Address as a netip.Addr.
func (ic InterfaceConfig) Addr() (netip.Addr, error) {
	if ic.Address == "" {
		return netip.Addr{}, fmt.Errorf("interface %q address: %w", ic.Name, ErrInvalidInterfaceAddress)
	}
	addr, err := netip.ParseAddr(ic.Address)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse interface %q address %q: %w", ic.Name, ic.Address, err)
	}
	return addr, nil
}

// ExtAddr parses ExternalAddress as a netip.Addr, falling back to Address
// when no external rewrite is configured.
func (ic InterfaceConfig) ExtAddr() (netip.Addr, error) {
	if ic.ExternalAddress == "" {
		return ic.Addr()
	}
	addr, err := netip.ParseAddr(ic.ExternalAddress)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse interface %q external address %q: %w", ic.Name, ic.ExternalAddress, err)
	}
	return addr, nil
}

// allowMulticastBits names every recognized AllowMulticast token, in the
// order the spec's bitset documents them.
var allowMulticastBits = []string{"asm", "ssm", "spdp", "asm_default", "spdp_asm"}

// ParseAllowMulticast validates a '|'-separated AllowMulticast bitset
// string against the recognized token set and returns the set of tokens
// present. An empty string is valid and yields no tokens (multicast
// disabled).
func ParseAllowMulticast(s string) (map[string]bool, error) {
	out := make(map[string]bool, len(allowMulticastBits))
	if s == "" {
		return out, nil
	}
	recognized := make(map[string]bool, len(allowMulticastBits))
	for _, b := range allowMulticastBits {
		recognized[b] = true
	}
	for _, tok := range strings.Split(s, "|") {
		tok = strings.TrimSpace(tok)
		if !recognized[tok] {
			return nil, fmt.Errorf("allow_multicast token %q: %w", tok, ErrInvalidAllowMulticastToken)
		}
		out[tok] = true
	}
	return out, nil
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
//
// BFD defaults follow RFC 5880 Section 6.8.3: "When bfd.SessionState is not
// Up, the system MUST set bfd.DesiredMinTxInterval to a value of not less
// than one second (1,000,000 microseconds)." The default of 1s is the
// conservative starting point for production deployments.
func DefaultConfig() *Config {
	return &Config{
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		BFD: BFDConfig{
			DefaultDesiredMinTx:     1 * time.Second,
			DefaultRequiredMinRx:    1 * time.Second,
			DefaultDetectMultiplier: 3,
		},
		Domain: DomainConfig{
			DomainID:             0,
			AllowMulticast:       "asm|spdp",
			MulticastTTL:         1,
			BESMode:              "full",
			SPDPResponseDelayMax: 500 * time.Millisecond,
		},
		CloudBridge: CloudBridgeConfig{
			Enabled:      false,
			Strategy:     "disable-peer",
			PollInterval: 5 * time.Second,
			Dampening: DampeningConfig{
				Enabled:           false,
				SuppressThreshold: 3.0,
				ReuseThreshold:    0.75,
				MaxSuppressTime:   1 * time.Hour,
				HalfLife:          5 * time.Minute,
			},
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for this daemon's
// configuration. Variables are named DDSDISC_<section>_<key>, e.g.
// DDSDISC_LOG_LEVEL. Every underscore after the prefix becomes a key
// separator, so keys whose names contain an underscore (such as
// domain.domain_id) cannot be set from the environment.
const envPrefix = "DDSDISC_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (DDSDISC_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	DDSDISC_GRPC_ADDR         -> grpc.addr
//	DDSDISC_METRICS_ADDR      -> metrics.addr
//	DDSDISC_METRICS_PATH      -> metrics.path
//	DDSDISC_LOG_LEVEL         -> log.level
//	DDSDISC_LOG_FORMAT        -> log.format
//
// DDSDISC_DOMAIN_DOMAIN_ID maps to domain.domain.id, not domain.domain_id.
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	// DDSDISC_GRPC_ADDR -> grpc.addr (strip prefix, lowercase, _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms DDSDISC_GRPC_ADDR -> grpc.addr.
// Strips the DDSDISC_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"grpc.addr":                     defaults.GRPC.Addr,
		"metrics.addr":                  defaults.Metrics.Addr,
		"metrics.path":                  defaults.Metrics.Path,
		"log.level":                     defaults.Log.Level,
		"log.format":                    defaults.Log.Format,
		"bfd.default_desired_min_tx":    defaults.BFD.DefaultDesiredMinTx.String(),
		"bfd.default_required_min_rx":   defaults.BFD.DefaultRequiredMinRx.String(),
		"bfd.default_detect_multiplier": defaults.BFD.DefaultDetectMultiplier,
		"domain.domain_id":               defaults.Domain.DomainID,
		"domain.allow_multicast":         defaults.Domain.AllowMulticast,
		"domain.multicast_ttl":           defaults.Domain.MulticastTTL,
		"domain.besmode":                 defaults.Domain.BESMode,
		"domain.spdp_response_delay_max": defaults.Domain.SPDPResponseDelayMax.String(),
		"cloudbridge.enabled":                    defaults.CloudBridge.Enabled,
		"cloudbridge.strategy":                   defaults.CloudBridge.Strategy,
		"cloudbridge.poll_interval":               defaults.CloudBridge.PollInterval.String(),
		"cloudbridge.dampening.enabled":           defaults.CloudBridge.Dampening.Enabled,
		"cloudbridge.dampening.suppress_threshold": defaults.CloudBridge.Dampening.SuppressThreshold,
		"cloudbridge.dampening.reuse_threshold":    defaults.CloudBridge.Dampening.ReuseThreshold,
		"cloudbridge.dampening.max_suppress_time":  defaults.CloudBridge.Dampening.MaxSuppressTime.String(),
		"cloudbridge.dampening.half_life":          defaults.CloudBridge.Dampening.HalfLife.String(),
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyGRPCAddr indicates the gRPC listen address is empty.
	ErrEmptyGRPCAddr = errors.New("grpc.addr must not be empty")

	// ErrInvalidDetectMultiplier indicates the detect multiplier is zero.
	ErrInvalidDetectMultiplier = errors.New("bfd.default_detect_multiplier must be >= 1")

	// ErrInvalidDesiredMinTx indicates the desired min TX interval is invalid.
	ErrInvalidDesiredMinTx = errors.New("bfd.default_desired_min_tx must be > 0")

	// ErrInvalidRequiredMinRx indicates the required min RX interval is invalid.
	ErrInvalidRequiredMinRx = errors.New("bfd.default_required_min_rx must be > 0")

	// ErrInvalidSessionPeer indicates a session has an invalid peer address.
	ErrInvalidSessionPeer = errors.New("session peer address is invalid")

	// ErrInvalidSessionType indicates a session has an unrecognized type.
	ErrInvalidSessionType = errors.New("session type must be single_hop or multi_hop")

	// ErrInvalidSessionDetectMult indicates a session detect multiplier is zero.
	ErrInvalidSessionDetectMult = errors.New("session detect_mult must be >= 1")

	// ErrDuplicateSessionKey indicates two sessions share the same (peer, local, interface) key.
	ErrDuplicateSessionKey = errors.New("duplicate session key")

	// ErrInvalidAllowMulticastToken indicates domain.allow_multicast
	// contains a token outside the recognized bitset vocabulary.
	ErrInvalidAllowMulticastToken = errors.New("unrecognized allow_multicast token")

	// ErrInvalidBESMode indicates domain.besmode is neither "full" nor
	// "minimal" (nor empty, meaning implementation default).
	ErrInvalidBESMode = errors.New("domain.besmode must be \"full\" or \"minimal\"")

	// ErrInvalidInterfaceAddress indicates an interfaces[] entry has an
	// empty or unparsable address.
	ErrInvalidInterfaceAddress = errors.New("interface address is invalid")

	// ErrDuplicateInterfaceName indicates two interfaces[] entries share a name.
	ErrDuplicateInterfaceName = errors.New("duplicate interface name")

	// ErrEmptyCloudBridgeAddr indicates cloudbridge is enabled but has no
	// gobgpd API address configured.
	ErrEmptyCloudBridgeAddr = errors.New("cloudbridge.addr must not be empty when cloudbridge.enabled is true")

	// ErrInvalidCloudBridgeStrategy indicates cloudbridge.strategy is not a
	// recognized route-action strategy.
	ErrInvalidCloudBridgeStrategy = errors.New("cloudbridge.strategy must be \"disable-peer\"")

	// ErrInvalidCloudBridgePollInterval indicates cloudbridge.poll_interval
	// is not positive.
	ErrInvalidCloudBridgePollInterval = errors.New("cloudbridge.poll_interval must be > 0")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.GRPC.Addr == "" {
		return ErrEmptyGRPCAddr
	}

	if cfg.BFD.DefaultDetectMultiplier < 1 {
		return ErrInvalidDetectMultiplier
	}

	if cfg.BFD.DefaultDesiredMinTx <= 0 {
		return ErrInvalidDesiredMinTx
	}

	if cfg.BFD.DefaultRequiredMinRx <= 0 {
		return ErrInvalidRequiredMinRx
	}

	if err := validateSessions(cfg.Sessions); err != nil {
		return err
	}

	if err := validateDomain(cfg.Domain); err != nil {
		return err
	}

	if err := validateInterfaces(cfg.Interfaces); err != nil {
		return err
	}

	if err := validateCloudBridge(cfg.CloudBridge); err != nil {
		return err
	}

	return nil
}

// validateCloudBridge checks the cloudbridge configuration for logical
// errors. Only applied when cloudbridge.enabled is true; a disabled bridge
// tolerates a zero-value configuration.
func validateCloudBridge(cb CloudBridgeConfig) error {
	if !cb.Enabled {
		return nil
	}
	if cb.Addr == "" {
		return ErrEmptyCloudBridgeAddr
	}
	switch cb.Strategy {
	case "disable-peer":
	default:
		return ErrInvalidCloudBridgeStrategy
	}
	if cb.PollInterval <= 0 {
		return ErrInvalidCloudBridgePollInterval
	}
	return nil
}

// validateDomain checks the domain configuration for logical errors.
func validateDomain(d DomainConfig) error {
	if _, err := ParseAllowMulticast(d.AllowMulticast); err != nil {
		return fmt.Errorf("domain: %w", err)
	}
	if d.BESMode != "" && d.BESMode != "full" && d.BESMode != "minimal" {
		return fmt.Errorf("domain.besmode %q: %w", d.BESMode, ErrInvalidBESMode)
	}
	return nil
}

// validateInterfaces checks each declarative interface entry for correctness.
func validateInterfaces(interfaces []InterfaceConfig) error {
	seen := make(map[string]struct{}, len(interfaces))
	for i, ic := range interfaces {
		if _, err := ic.Addr(); err != nil {
			return fmt.Errorf("interfaces[%d]: %w", i, err)
		}
		if _, err := ic.ExtAddr(); err != nil {
			return fmt.Errorf("interfaces[%d]: %w", i, err)
		}
		if ic.Name == "" {
			continue
		}
		if _, dup := seen[ic.Name]; dup {
			return fmt.Errorf("interfaces[%d] name %q: %w", i, ic.Name, ErrDuplicateInterfaceName)
		}
		seen[ic.Name] = struct{}{}
	}
	return nil
}

// ValidSessionTypes lists the recognized session type strings.
var ValidSessionTypes = map[string]bool{
	"single_hop": true,
	"multi_hop":  true,
}

// validateSessions checks each declarative session entry for correctness.
func validateSessions(sessions []SessionConfig) error {
	seen := make(map[string]struct{}, len(sessions))

	for i, sc := range sessions {
		if _, err := sc.PeerAddr(); err != nil {
			return fmt.Errorf("sessions[%d]: %w: %w", i, ErrInvalidSessionPeer, err)
		}

		if sc.Type != "" && !ValidSessionTypes[sc.Type] {
			return fmt.Errorf("sessions[%d] type %q: %w", i, sc.Type, ErrInvalidSessionType)
		}

		if sc.DetectMult != 0 && sc.DetectMult < 1 {
			return fmt.Errorf("sessions[%d]: %w", i, ErrInvalidSessionDetectMult)
		}

		key := sc.SessionKey()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("sessions[%d] key %q: %w", i, key, ErrDuplicateSessionKey)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
