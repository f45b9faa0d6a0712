package plist

import (
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/qos"
	"github.com/dantte-lp/ddsdisc/internal/security"
)

// ParticipantInterface is the subset of a local interface build_participant_plist
// needs: its advertised unicast/multicast locators and whether its
// transport factory declares SPDP support.
type ParticipantInterface struct {
	Unicast      locator.Locator
	Multicast    locator.Locator
	EnableSPDP   bool
	IncludeMC    bool // gated by include_multicast_locator_in_discovery(pp)
}

// ParticipantSource is the read-only view of a local participant that
// build_participant_plist consumes (spec §4.C).
type ParticipantSource struct {
	GUID      guid.GUID
	VendorID  [2]byte
	ProtoMajor, ProtoMinor uint8
	DomainID  uint32
	DomainTag string

	BuiltinEndpointSet BuiltinEndpointSet
	Interfaces         []ParticipantInterface

	QoS        qos.QoS
	DefaultQoS qos.QoS
	ExplicitlyPublishQoSSetToDefault bool

	IsDDSI2        bool
	MinimalBESMode bool

	ReceiveBufferSize   uint32
	HasReceiveBufferSize bool
	RedundantNetworking bool

	HostIdentification string // e.g. "hostname/pid/build-version"

	Security security.Provider
}

// BuildParticipantPlist implements build_participant_plist (spec §4.C).
func BuildParticipantPlist(src ParticipantSource) *Plist {
	p := New()
	p.Present = PresentParticipantGUID | PresentBuiltinEndpointSet | PresentProtocolVersion | PresentVendorID | PresentDomainID
	p.ParticipantGUID = src.GUID
	p.BuiltinEndpointSet = src.BuiltinEndpointSet
	p.ProtocolVersionMajor, p.ProtocolVersionMinor = src.ProtoMajor, src.ProtoMinor
	p.VendorID = src.VendorID
	p.DomainID = src.DomainID

	if src.DomainTag != "" {
		p.Present |= PresentDomainTag
		p.DomainTag = src.DomainTag
	}

	var defUC, defMC, metaUC, metaMC []locator.Locator
	for _, intf := range src.Interfaces {
		if !intf.EnableSPDP {
			continue
		}
		if !intf.Unicast.IsInvalid() {
			defUC = append(defUC, intf.Unicast)
			metaUC = append(metaUC, intf.Unicast)
		}
		if intf.IncludeMC && !intf.Multicast.IsInvalid() {
			defMC = append(defMC, intf.Multicast)
			metaMC = append(metaMC, intf.Multicast)
		}
	}
	if len(defUC) > 0 {
		p.Present |= PresentDefaultUnicastLocator
		p.DefaultUnicastLocators.List = defUC
	}
	if len(defMC) > 0 {
		p.Present |= PresentDefaultMulticastLocator
		p.DefaultMulticastLocators.List = defMC
	}
	if len(metaUC) > 0 {
		p.Present |= PresentMetatrafficUnicastLocator
		p.MetatrafficUnicastLocators.List = metaUC
	}
	if len(metaMC) > 0 {
		p.Present |= PresentMetatrafficMulticastLocator
		p.MetatrafficMulticastLocators.List = metaMC
	}

	flags := FlagPTBESFixed0 | FlagSupportsStatusInfoX
	if src.IsDDSI2 {
		flags |= FlagDDSI2Participant | FlagParticipantIsDDSI2
	}
	if src.MinimalBESMode {
		flags |= FlagMinimalBESMode
	}
	p.Present |= PresentAdlinkParticipantVersionInfo
	p.AdlinkVersionInfo = AdlinkParticipantVersionInfo{
		Major: 0, Minor: 1, Patch: 0,
		Flags:      flags,
		NodeString: src.HostIdentification,
	}

	if src.HasReceiveBufferSize {
		p.Present |= PresentReceiveBufferSize
		p.ReceiveBufferSize = src.ReceiveBufferSize
	}
	if src.RedundantNetworking {
		p.Present |= PresentRedundantNetworking
		p.RedundantNetworking = true
	}

	if src.Security != nil && src.Security.Active() {
		if tok, ok := src.Security.IdentityToken(); ok {
			p.Present |= PresentIdentityToken
			p.IdentityToken = tok
		}
	}

	mask := qos.MaskUserData | qos.MaskEntityName | qos.MaskPropertyList | qos.MaskLiveliness
	if src.ExplicitlyPublishQoSSetToDefault {
		mask = qos.MaskAll
	}
	if delta := qos.Delta(src.QoS, src.DefaultQoS, mask); delta != 0 {
		p.Present |= PresentQos
		p.QoS = src.QoS
	}

	return p
}

// BuildParticipantDisposePlist builds the minimal GUID-only dispose/
// unregister payload (spec §4.C "Dispose/unregister payloads").
func BuildParticipantDisposePlist(g guid.GUID, status StatusInfo) *Plist {
	p := New()
	p.Present = PresentParticipantGUID | PresentStatusInfo
	p.ParticipantGUID = g
	p.StatusInfo = status
	return p
}

// ParticipantIsDDSI2FromFlags is retained for callers (e.g. spdp) that need to derive
// PARTICIPANT_IS_DDSI2 from a received AdlinkParticipantVersionInfo without
// rebuilding a whole Plist (spec §4.D step 6 "Custom flags").
func ParticipantIsDDSI2FromFlags(flags uint32) bool {
	return flags&FlagParticipantIsDDSI2 != 0
}
