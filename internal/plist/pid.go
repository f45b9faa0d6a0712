package plist

// PID is an RTPS 2.x parameter-list tag (spec §6's wire table).
type PID uint16

// Standard PIDs (spec §6).
const (
	PIDPad                      PID = 0x0000
	PIDSentinel                 PID = 0x0001
	PIDDomainID                 PID = 0x000f
	PIDUnicastLocator           PID = 0x002f
	PIDMulticastLocator         PID = 0x0030
	PIDDefaultUnicastLocator    PID = 0x0031
	PIDDefaultMulticastLocator  PID = 0x0032
	PIDMetatrafficUnicastLocator   PID = 0x0033
	PIDMetatrafficMulticastLocator PID = 0x0045
	PIDProtocolVersion          PID = 0x0015
	PIDVendorID                 PID = 0x0016
	PIDGroupGUID                PID = 0x0052
	PIDParticipantGUID          PID = 0x0050
	PIDEndpointGUID             PID = 0x005a
	PIDBuiltinEndpointSet       PID = 0x0058
	PIDStatusInfo               PID = 0x0071
	PIDKeyHash                  PID = 0x0070
	PIDTypeInformation          PID = 0x0075
	PIDQoS                      PID = 0x2000 // not a real RTPS PID: internal TLV wrapper for the opaque qos.QoS blob (spec's QoS engine is out of scope; see codec.go).
	PIDDomainTag                PID = 0x4014

	// Vendor-specific / Cyclone extension PIDs (spec §6: "experimental PID
	// range").
	PIDAdlinkParticipantVersionInfo PID = 0x8007
	PIDCycloneReceiveBufferSize     PID = 0x8010
	PIDCycloneRedundantNetworking   PID = 0x8011
	PIDCycloneTopicGUID             PID = 0x8012
	PIDCycloneRequestsKeyhash       PID = 0x8013
	PIDReaderFavoursSSM             PID = 0x8014
	PIDManualLivelinessCount        PID = 0x8015

	// DDS-Security PIDs (spec §6: "per DDS-Security spec").
	PIDIdentityToken       PID = 0x1001
	PIDPermissionsToken    PID = 0x1002
	PIDEndpointSecurityInfo PID = 0x1009
)
