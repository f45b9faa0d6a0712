package plist

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
)

// Context carries the receiver-side state needed to interpret a parsed
// plist (spec §1: deserialize(bytes, context) -> plist): protocol version,
// vendor id and endianness of the enclosing submessage.
type Context struct {
	ProtocolVersionMajor, ProtocolVersionMinor uint8
	VendorID                                   [2]byte
	BigEndian                                  bool
}

// ErrUnsupported is returned for a PID this codec does not understand.
// Per spec §7 this is silent/low-severity, not a warn-level error: it
// indicates a feature-gated parameter we do not parse.
var ErrUnsupported = errors.New("plist: unsupported PID")

// ErrTruncated indicates the byte stream ended mid-parameter.
var ErrTruncated = errors.New("plist: truncated parameter")

const locatorWireSize = 24 // i32 kind + u32 port + 16-byte address (spec §6).

// order returns the byte order implied by ctx, defaulting to big-endian
// when ctx is nil (outbound, locally-built payloads are always built
// big-endian by this codec).
func order(ctx *Context) binary.ByteOrder {
	if ctx != nil && !ctx.BigEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Serialize encodes p into an RTPS parameter-list byte stream (spec §1
// "serialize(plist) -> bytes", §4.H). This is the one concrete
// implementation of that named-but-out-of-scope contract included in this
// module; see DESIGN.md.
func Serialize(p *Plist) ([]byte, error) {
	bo := binary.BigEndian
	buf := make([]byte, 0, 256)

	putParam := func(pid PID, payload []byte) {
		padded := (len(payload) + 3) &^ 3
		hdr := make([]byte, 4)
		bo.PutUint16(hdr[0:2], uint16(pid))
		bo.PutUint16(hdr[2:4], uint16(padded))
		buf = append(buf, hdr...)
		buf = append(buf, payload...)
		for i := len(payload); i < padded; i++ {
			buf = append(buf, 0)
		}
	}

	if p.Present.Has(PresentProtocolVersion) {
		putParam(PIDProtocolVersion, []byte{p.ProtocolVersionMajor, p.ProtocolVersionMinor, 0, 0})
	}
	if p.Present.Has(PresentVendorID) {
		putParam(PIDVendorID, []byte{p.VendorID[0], p.VendorID[1], 0, 0})
	}
	if p.Present.Has(PresentParticipantGUID) {
		b := p.ParticipantGUID.Bytes()
		putParam(PIDParticipantGUID, b[:])
	}
	if p.Present.Has(PresentEndpointGUID) {
		b := p.EndpointGUID.Bytes()
		putParam(PIDEndpointGUID, b[:])
	}
	if p.Present.Has(PresentGroupGUID) {
		b := p.GroupGUID.Bytes()
		putParam(PIDGroupGUID, b[:])
	}
	if p.Present.Has(PresentDomainID) {
		v := make([]byte, 4)
		bo.PutUint32(v, p.DomainID)
		putParam(PIDDomainID, v)
	}
	if p.Present.Has(PresentDomainTag) && p.DomainTag != "" {
		putParam(PIDDomainTag, encodeString(p.DomainTag))
	}
	if p.Present.Has(PresentBuiltinEndpointSet) {
		v := make([]byte, 4)
		bo.PutUint32(v, uint32(p.BuiltinEndpointSet))
		putParam(PIDBuiltinEndpointSet, v)
	}
	if p.Present.Has(PresentDefaultUnicastLocator) {
		putParam(PIDDefaultUnicastLocator, encodeLocatorList(p.DefaultUnicastLocators.List))
	}
	if p.Present.Has(PresentDefaultMulticastLocator) {
		putParam(PIDDefaultMulticastLocator, encodeLocatorList(p.DefaultMulticastLocators.List))
	}
	if p.Present.Has(PresentMetatrafficUnicastLocator) {
		putParam(PIDMetatrafficUnicastLocator, encodeLocatorList(p.MetatrafficUnicastLocators.List))
	}
	if p.Present.Has(PresentMetatrafficMulticastLocator) {
		putParam(PIDMetatrafficMulticastLocator, encodeLocatorList(p.MetatrafficMulticastLocators.List))
	}
	if p.Present.Has(PresentUnicastLocator) {
		putParam(PIDUnicastLocator, encodeLocatorList(p.UnicastLocators.List))
	}
	if p.Present.Has(PresentMulticastLocator) {
		putParam(PIDMulticastLocator, encodeLocatorList(p.MulticastLocators.List))
	}
	if p.Present.Has(PresentAdlinkParticipantVersionInfo) {
		putParam(PIDAdlinkParticipantVersionInfo, encodeAdlinkVersionInfo(p.AdlinkVersionInfo))
	}
	if p.Present.Has(PresentStatusInfo) {
		v := make([]byte, 4)
		bo.PutUint32(v, uint32(p.StatusInfo))
		putParam(PIDStatusInfo, v)
	}
	if p.Present.Has(PresentKeyHash) {
		putParam(PIDKeyHash, p.KeyHash[:])
	}
	if p.Present.Has(PresentQos) {
		putParam(PIDQoS, encodeQoS(p.QoS))
	}
	if p.Present.Has(PresentTypeInformation) {
		putParam(PIDTypeInformation, encodeTypeInfo(p.TypeInformationMinimal, p.TypeInformationComplete))
	}
	if p.Present.Has(PresentSecurityInfo) {
		putParam(PIDEndpointSecurityInfo, p.SecurityInfo)
	}
	if p.Present.Has(PresentIdentityToken) {
		putParam(PIDIdentityToken, p.IdentityToken)
	}
	if p.Present.Has(PresentTopicGUID) {
		b := p.TopicGUID.Bytes()
		putParam(PIDCycloneTopicGUID, b[:])
	}
	if p.Present.Has(PresentRequestsKeyhash) {
		putParam(PIDCycloneRequestsKeyhash, boolParam(p.RequestsKeyhash))
	}
	if p.Present.Has(PresentFavoursSSM) {
		putParam(PIDReaderFavoursSSM, boolParam(p.FavoursSSM))
	}
	if p.Present.Has(PresentLivelinessCount) {
		v := make([]byte, 4)
		bo.PutUint32(v, uint32(p.ManualLivelinessCount))
		putParam(PIDManualLivelinessCount, v)
	}
	if p.Present.Has(PresentReceiveBufferSize) {
		v := make([]byte, 4)
		bo.PutUint32(v, p.ReceiveBufferSize)
		putParam(PIDCycloneReceiveBufferSize, v)
	}
	if p.Present.Has(PresentRedundantNetworking) {
		putParam(PIDCycloneRedundantNetworking, boolParam(p.RedundantNetworking))
	}

	putParam(PIDSentinel, nil)
	return buf, nil
}

// Deserialize parses an RTPS parameter-list byte stream into a Plist
// (spec §1 "deserialize(bytes, context) -> plist"). Unknown PIDs are
// skipped (spec §7: silent, ErrUnsupported only surfaces via the return
// value of decodeOne for callers that want to count them, never aborts
// the overall parse).
func Deserialize(data []byte, ctx *Context) (*Plist, error) {
	bo := order(ctx)
	p := New()
	if ctx != nil {
		p.ProtocolVersionMajor = ctx.ProtocolVersionMajor
		p.ProtocolVersionMinor = ctx.ProtocolVersionMinor
	}

	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("plist: header: %w", ErrTruncated)
		}
		pid := PID(bo.Uint16(data[0:2]))
		length := int(bo.Uint16(data[2:4]))
		data = data[4:]
		if pid == PIDSentinel {
			break
		}
		if len(data) < length {
			return nil, fmt.Errorf("plist: pid 0x%04x payload: %w", pid, ErrTruncated)
		}
		payload := data[:length]
		data = data[length:]

		if err := decodeOne(p, pid, payload, bo); err != nil && !errors.Is(err, ErrUnsupported) {
			return nil, err
		}
	}
	return p, nil
}

func decodeOne(p *Plist, pid PID, payload []byte, bo binary.ByteOrder) error {
	switch pid {
	case PIDProtocolVersion:
		if len(payload) < 2 {
			return ErrTruncated
		}
		p.ProtocolVersionMajor, p.ProtocolVersionMinor = payload[0], payload[1]
		p.Present |= PresentProtocolVersion
	case PIDVendorID:
		if len(payload) < 2 {
			return ErrTruncated
		}
		p.VendorID = [2]byte{payload[0], payload[1]}
		p.Present |= PresentVendorID
	case PIDParticipantGUID:
		g, err := decodeGUID(payload)
		if err != nil {
			return err
		}
		p.ParticipantGUID = g
		p.Present |= PresentParticipantGUID
	case PIDEndpointGUID:
		g, err := decodeGUID(payload)
		if err != nil {
			return err
		}
		p.EndpointGUID = g
		p.Present |= PresentEndpointGUID
	case PIDGroupGUID:
		g, err := decodeGUID(payload)
		if err != nil {
			return err
		}
		p.GroupGUID = g
		p.Present |= PresentGroupGUID
	case PIDCycloneTopicGUID:
		g, err := decodeGUID(payload)
		if err != nil {
			return err
		}
		p.TopicGUID = g
		p.Present |= PresentTopicGUID
	case PIDDomainID:
		if len(payload) < 4 {
			return ErrTruncated
		}
		p.DomainID = bo.Uint32(payload)
		p.Present |= PresentDomainID
	case PIDDomainTag:
		s, err := decodeString(payload)
		if err != nil {
			return err
		}
		p.DomainTag = s
		p.Present |= PresentDomainTag
	case PIDBuiltinEndpointSet:
		if len(payload) < 4 {
			return ErrTruncated
		}
		p.BuiltinEndpointSet = BuiltinEndpointSet(bo.Uint32(payload))
		p.Present |= PresentBuiltinEndpointSet
	case PIDDefaultUnicastLocator:
		locs, err := decodeLocatorList(payload, bo)
		if err != nil {
			return err
		}
		p.DefaultUnicastLocators.List = locs
		p.Present |= PresentDefaultUnicastLocator
	case PIDDefaultMulticastLocator:
		locs, err := decodeLocatorList(payload, bo)
		if err != nil {
			return err
		}
		p.DefaultMulticastLocators.List = locs
		p.Present |= PresentDefaultMulticastLocator
	case PIDMetatrafficUnicastLocator:
		locs, err := decodeLocatorList(payload, bo)
		if err != nil {
			return err
		}
		p.MetatrafficUnicastLocators.List = locs
		p.Present |= PresentMetatrafficUnicastLocator
	case PIDMetatrafficMulticastLocator:
		locs, err := decodeLocatorList(payload, bo)
		if err != nil {
			return err
		}
		p.MetatrafficMulticastLocators.List = locs
		p.Present |= PresentMetatrafficMulticastLocator
	case PIDUnicastLocator:
		locs, err := decodeLocatorList(payload, bo)
		if err != nil {
			return err
		}
		p.UnicastLocators.List = locs
		p.Present |= PresentUnicastLocator
	case PIDMulticastLocator:
		locs, err := decodeLocatorList(payload, bo)
		if err != nil {
			return err
		}
		p.MulticastLocators.List = locs
		p.Present |= PresentMulticastLocator
	case PIDAdlinkParticipantVersionInfo:
		info, err := decodeAdlinkVersionInfo(payload, bo)
		if err != nil {
			return err
		}
		p.AdlinkVersionInfo = info
		p.Present |= PresentAdlinkParticipantVersionInfo
	case PIDStatusInfo:
		if len(payload) < 4 {
			return ErrTruncated
		}
		p.StatusInfo = StatusInfo(bo.Uint32(payload))
		p.Present |= PresentStatusInfo
	case PIDKeyHash:
		if len(payload) < 16 {
			return ErrTruncated
		}
		copy(p.KeyHash[:], payload[:16])
		p.Present |= PresentKeyHash
	case PIDQoS:
		q, err := decodeQoS(payload)
		if err != nil {
			return err
		}
		p.QoS = q
		p.Present |= PresentQos
	case PIDTypeInformation:
		minimal, complete, err := decodeTypeInfo(payload, bo)
		if err != nil {
			return err
		}
		p.TypeInformationMinimal, p.TypeInformationComplete = minimal, complete
		p.Present |= PresentTypeInformation
	case PIDEndpointSecurityInfo:
		p.SecurityInfo = append([]byte(nil), payload...)
		p.Present |= PresentSecurityInfo
	case PIDIdentityToken:
		p.IdentityToken = append([]byte(nil), payload...)
		p.Present |= PresentIdentityToken
	case PIDCycloneRequestsKeyhash:
		p.RequestsKeyhash = decodeBoolParam(payload)
		p.Present |= PresentRequestsKeyhash
	case PIDReaderFavoursSSM:
		p.FavoursSSM = decodeBoolParam(payload)
		p.Present |= PresentFavoursSSM
	case PIDManualLivelinessCount:
		if len(payload) < 4 {
			return ErrTruncated
		}
		p.ManualLivelinessCount = int32(bo.Uint32(payload))
		p.Present |= PresentLivelinessCount
	case PIDCycloneReceiveBufferSize:
		if len(payload) < 4 {
			return ErrTruncated
		}
		p.ReceiveBufferSize = bo.Uint32(payload)
		p.Present |= PresentReceiveBufferSize
	case PIDCycloneRedundantNetworking:
		p.RedundantNetworking = decodeBoolParam(payload)
		p.Present |= PresentRedundantNetworking
	case PIDPad:
		// ignore
	default:
		return ErrUnsupported
	}
	return nil
}

func decodeGUID(payload []byte) (guid.GUID, error) {
	if len(payload) < 16 {
		return guid.GUID{}, ErrTruncated
	}
	var b [16]byte
	copy(b[:], payload[:16])
	return guid.FromBytes(b), nil
}

func encodeLocatorList(locs []locator.Locator) []byte {
	out := make([]byte, 4, 4+len(locs)*locatorWireSize)
	binary.BigEndian.PutUint32(out, uint32(len(locs)))
	for _, l := range locs {
		out = append(out, encodeLocator(l)...)
	}
	return out
}

func encodeLocator(l locator.Locator) []byte {
	b := make([]byte, locatorWireSize)
	binary.BigEndian.PutUint32(b[0:4], uint32(l.Kind))
	binary.BigEndian.PutUint32(b[4:8], l.Port)
	copy(b[8:24], l.Address[:])
	return b
}

func decodeLocatorList(payload []byte, bo binary.ByteOrder) ([]locator.Locator, error) {
	if len(payload) < 4 {
		return nil, ErrTruncated
	}
	count := int(bo.Uint32(payload[0:4]))
	payload = payload[4:]
	locs := make([]locator.Locator, 0, count)
	for i := 0; i < count; i++ {
		if len(payload) < locatorWireSize {
			return nil, ErrTruncated
		}
		var l locator.Locator
		l.Kind = locator.Kind(bo.Uint32(payload[0:4]))
		l.Port = bo.Uint32(payload[4:8])
		copy(l.Address[:], payload[8:24])
		locs = append(locs, l)
		payload = payload[locatorWireSize:]
	}
	return locs, nil
}

func encodeString(s string) []byte {
	out := make([]byte, 4+len(s)+1)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(s)+1))
	copy(out[4:], s)
	return out
}

func decodeString(payload []byte) (string, error) {
	if len(payload) < 4 {
		return "", ErrTruncated
	}
	n := int(binary.BigEndian.Uint32(payload[0:4]))
	if n == 0 {
		return "", nil
	}
	if len(payload) < 4+n {
		return "", ErrTruncated
	}
	s := payload[4 : 4+n]
	// drop the trailing NUL the wire format mandates for strings.
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s), nil
}

func encodeAdlinkVersionInfo(v AdlinkParticipantVersionInfo) []byte {
	head := make([]byte, 20)
	binary.BigEndian.PutUint32(head[0:4], v.Major)
	binary.BigEndian.PutUint32(head[4:8], v.Minor)
	binary.BigEndian.PutUint32(head[8:12], v.Patch)
	binary.BigEndian.PutUint32(head[12:16], v.InternalBuild)
	binary.BigEndian.PutUint32(head[16:20], v.Flags)
	return append(head, encodeString(v.NodeString)...)
}

func decodeAdlinkVersionInfo(payload []byte, bo binary.ByteOrder) (AdlinkParticipantVersionInfo, error) {
	if len(payload) < 20 {
		return AdlinkParticipantVersionInfo{}, ErrTruncated
	}
	v := AdlinkParticipantVersionInfo{
		Major:         bo.Uint32(payload[0:4]),
		Minor:         bo.Uint32(payload[4:8]),
		Patch:         bo.Uint32(payload[8:12]),
		InternalBuild: bo.Uint32(payload[12:16]),
		Flags:         bo.Uint32(payload[16:20]),
	}
	if len(payload) > 20 {
		s, err := decodeString(payload[20:])
		if err != nil {
			return v, err
		}
		v.NodeString = s
	}
	return v, nil
}

func boolParam(b bool) []byte {
	if b {
		return []byte{1, 0, 0, 0}
	}
	return []byte{0, 0, 0, 0}
}

func decodeBoolParam(payload []byte) bool {
	return len(payload) > 0 && payload[0] != 0
}

func encodeTypeInfo(minimal, complete []byte) []byte {
	out := make([]byte, 4, 4+len(minimal)+4+len(complete))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(minimal)))
	out = append(out, minimal...)
	lc := make([]byte, 4)
	binary.BigEndian.PutUint32(lc, uint32(len(complete)))
	out = append(out, lc...)
	out = append(out, complete...)
	return out
}

func decodeTypeInfo(payload []byte, bo binary.ByteOrder) (minimal, complete []byte, err error) {
	if len(payload) < 4 {
		return nil, nil, ErrTruncated
	}
	n := int(bo.Uint32(payload[0:4]))
	payload = payload[4:]
	if len(payload) < n+4 {
		return nil, nil, ErrTruncated
	}
	minimal = append([]byte(nil), payload[:n]...)
	payload = payload[n:]
	m := int(bo.Uint32(payload[0:4]))
	payload = payload[4:]
	if len(payload) < m {
		return nil, nil, ErrTruncated
	}
	complete = append([]byte(nil), payload[:m]...)
	return minimal, complete, nil
}
