// Package plist implements the RTPS parameter-list aggregate used to
// serialize and parse SPDP/SEDP discovery payloads (spec §3 "Plist",
// §4.C, §4.H, §6).
package plist

import (
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/qos"
)

// Present is the 64-bit bitmask naming which conditional fields of a Plist
// are populated (spec §3, bit layout mirrors the PID table in §6).
type Present uint64

// Present bits, one per conditional field (spec §6 table; order matches
// the table top to bottom, Cyclone extensions last).
const (
	PresentProtocolVersion Present = 1 << iota
	PresentVendorID
	PresentParticipantGUID
	PresentEndpointGUID
	PresentGroupGUID
	PresentDefaultUnicastLocator
	PresentDefaultMulticastLocator
	PresentMetatrafficUnicastLocator
	PresentMetatrafficMulticastLocator
	PresentUnicastLocator
	PresentMulticastLocator
	PresentBuiltinEndpointSet
	PresentDomainID
	PresentDomainTag
	PresentAdlinkParticipantVersionInfo
	PresentStatusInfo
	PresentKeyHash
	PresentQos
	PresentTypeInformation
	PresentSecurityInfo
	PresentIdentityToken
	PresentTopicGUID
	PresentRequestsKeyhash
	PresentFavoursSSM
	PresentLivelinessCount
	PresentReceiveBufferSize
	PresentRedundantNetworking
)

// Has reports whether bit is set in p.
func (p Present) Has(bit Present) bool {
	return p&bit != 0
}

// BuiltinEndpointSet is the bitmask of builtin readers/writers a
// participant exposes (spec §3, §6 PID 0x0058).
type BuiltinEndpointSet uint32

const (
	BESParticipantAnnouncer BuiltinEndpointSet = 1 << iota
	BESParticipantDetector
	BESPublicationAnnouncer
	BESPublicationDetector
	BESSubscriptionAnnouncer
	BESSubscriptionDetector
	BESTopicAnnouncer
	BESTopicDetector
	BESParticipantMessageDataWriter
	BESParticipantMessageDataReader
	BESTypeLookupRequestWriter
	BESTypeLookupRequestReader
	BESTypeLookupReplyWriter
	BESTypeLookupReplyReader
	BESSecureParticipantAnnouncer
	BESSecureParticipantDetector
	BESSecurePublicationAnnouncer
	BESSecurePublicationDetector
	BESSecureSubscriptionAnnouncer
	BESSecureSubscriptionDetector
)

// Has reports whether bit is set.
func (b BuiltinEndpointSet) Has(bit BuiltinEndpointSet) bool {
	return b&bit != 0
}

// StatusInfo encodes the dispose/unregister state attached to a sample
// (spec §6: "bit 0 = DISPOSE, bit 1 = UNREGISTER").
type StatusInfo uint32

const (
	StatusInfoDispose    StatusInfo = 1 << 0
	StatusInfoUnregister StatusInfo = 1 << 1
)

// AdlinkParticipantVersionInfo carries the vendor-specific identification
// and flags extension (spec §4.C, §6 PID 0x8007).
type AdlinkParticipantVersionInfo struct {
	Major, Minor, Patch uint32
	InternalBuild       uint32
	Flags               uint32
	NodeString          string
}

// ADLINK_PARTICIPANT_VERSION_INFO flag bits (spec §4.C).
const (
	FlagDDSI2Participant     uint32 = 1 << 0
	FlagPTBESFixed0          uint32 = 1 << 1
	FlagSupportsStatusInfoX  uint32 = 1 << 2
	FlagMinimalBESMode       uint32 = 1 << 3
	FlagParticipantIsDDSI2   uint32 = 1 << 4
)

// Locators wraps a list of locators. It holds only the list itself; no
// reference to a backing storage array is kept (SPEC_FULL §[SUPPLEMENT]).
type Locators struct {
	List []locator.Locator
}

// Plist is the parameter-list aggregate (spec §3).
type Plist struct {
	Present Present
	Aliased Present

	ProtocolVersionMajor, ProtocolVersionMinor uint8
	VendorID                                   [2]byte

	ParticipantGUID guid.GUID
	EndpointGUID    guid.GUID
	GroupGUID       guid.GUID
	TopicGUID       guid.GUID

	DefaultUnicastLocators      Locators
	DefaultMulticastLocators    Locators
	MetatrafficUnicastLocators  Locators
	MetatrafficMulticastLocators Locators
	UnicastLocators             Locators
	MulticastLocators           Locators

	BuiltinEndpointSet BuiltinEndpointSet

	DomainID  uint32
	DomainTag string

	AdlinkVersionInfo AdlinkParticipantVersionInfo

	StatusInfo StatusInfo
	KeyHash    [16]byte

	QoS qos.QoS

	TypeInformationMinimal  []byte
	TypeInformationComplete []byte

	SecurityInfo  []byte
	IdentityToken []byte

	RequestsKeyhash bool
	FavoursSSM      bool

	ManualLivelinessCount int32

	ReceiveBufferSize   uint32
	RedundantNetworking bool
}

// New returns an empty Plist (no bits present).
func New() *Plist {
	return &Plist{}
}

// Fini releases fields that are present-and-not-aliased, per spec §3's
// invariant: "fini only frees fields present-and-not-aliased." Go's GC
// makes explicit freeing unnecessary; Fini instead clears those fields and
// their Present bits so a finalized Plist cannot be mistaken for a live
// one (mirrors ddsi_plist_fini's observable effect for this port).
func (p *Plist) Fini() {
	clearIfOwned := func(bit Present) bool {
		return p.Present.Has(bit) && !p.Aliased.Has(bit)
	}
	if clearIfOwned(PresentDefaultUnicastLocator) {
		p.DefaultUnicastLocators = Locators{}
	}
	if clearIfOwned(PresentDefaultMulticastLocator) {
		p.DefaultMulticastLocators = Locators{}
	}
	if clearIfOwned(PresentMetatrafficUnicastLocator) {
		p.MetatrafficUnicastLocators = Locators{}
	}
	if clearIfOwned(PresentMetatrafficMulticastLocator) {
		p.MetatrafficMulticastLocators = Locators{}
	}
	if clearIfOwned(PresentUnicastLocator) {
		p.UnicastLocators = Locators{}
	}
	if clearIfOwned(PresentMulticastLocator) {
		p.MulticastLocators = Locators{}
	}
	if clearIfOwned(PresentTypeInformation) {
		p.TypeInformationMinimal = nil
		p.TypeInformationComplete = nil
	}
	if clearIfOwned(PresentSecurityInfo) {
		p.SecurityInfo = nil
	}
	if clearIfOwned(PresentIdentityToken) {
		p.IdentityToken = nil
	}
	p.Present = 0
	p.Aliased = 0
}

// SetAliased marks bit as present-and-borrowed, asserting the invariant
// "a bit in aliased implies the bit in present" (spec §3).
func (p *Plist) SetAliased(bit Present) {
	p.Present |= bit
	p.Aliased |= bit
}
