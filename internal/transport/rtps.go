package transport

import (
	"encoding/binary"

	"github.com/dantte-lp/ddsdisc/internal/guid"
)

// RTPS 2.x Section 9.4 fixed protocol header values this core emits.
const (
	rtpsMagic          = "RTPS"
	rtpsProtocolMajor   = 2
	rtpsProtocolMinor   = 3
	rtpsVendorIDMajor   = 0x01
	rtpsVendorIDMinor   = 0x20 // with rtpsVendorIDMajor, matches vendorquirk.VendorDDSDisc, this core's own vendor id
	submessageIDData    = 0x15
	submessageIDInfoTS  = 0x09
	flagEndiannessLE    = 0x01
	flagDataInlineQoS   = 0x02
	flagDataHasPayload  = 0x04
	serializedPayloadCDRLE = 0x0003
)

// encodeMessageHeader writes the 20-byte RTPS message header (protocol,
// version, vendor id, sender guid prefix) that precedes every submessage
// sequence on the wire (RTPS 2.x Section 9.4.5).
func encodeMessageHeader(senderPrefix guid.Prefix) []byte {
	buf := make([]byte, 20)
	copy(buf[0:4], rtpsMagic)
	buf[4] = rtpsProtocolMajor
	buf[5] = rtpsProtocolMinor
	buf[6] = rtpsVendorIDMajor
	buf[7] = rtpsVendorIDMinor
	copy(buf[8:20], senderPrefix[:])
	return buf
}

// encodeInfoTimestamp writes an INFO_TS submessage (RTPS 2.x Section
// 9.4.5.9) carrying the writer's claimed write time, ahead of the Data
// submessage it applies to.
func encodeInfoTimestamp(sec int32, fracNano uint32) []byte {
	buf := make([]byte, 12)
	buf[0] = submessageIDInfoTS
	buf[1] = flagEndiannessLE
	binary.LittleEndian.PutUint16(buf[2:4], 8)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(sec)) //nolint:gosec // G115: RTPS timestamp seconds field is defined as a signed 32-bit value written here in its two's complement bit pattern.
	binary.LittleEndian.PutUint32(buf[8:12], fracNano)
	return buf
}

// encodeDataSubmessage wraps an already-serialized parameter-list payload
// (produced by plist.Serialize) in a Data submessage (RTPS 2.x Section
// 9.4.5.3): readerId/writerId addressing, a single writer sequence number,
// and the CDR-encoded payload. inlineQoS is always false here — this core's
// plist payloads already carry everything QoS-equivalent as plist
// parameters, so there is nothing left to place in the submessage's
// separate inline-QoS slot.
func encodeDataSubmessage(readerID, writerID guid.EntityID, seq uint64, payload []byte) []byte {
	const header = 4 // submessage id + flags + octetsToNextHeader
	const fixed = 4 + 4 + 4 + 8 + 4 // extraFlags+octetsToInlineQos, readerId, writerId, seqnum, serialized payload header
	body := make([]byte, fixed+len(payload))

	binary.LittleEndian.PutUint16(body[0:2], 0) // extraFlags
	binary.LittleEndian.PutUint16(body[2:4], 16) // octetsToInlineQos relative to end of this field: readerId, writerId, seqnum
	copy(body[4:8], readerID[:])
	copy(body[8:12], writerID[:])
	binary.LittleEndian.PutUint32(body[12:16], uint32(seq>>32)) //nolint:gosec // G115: sequence number high/low word split is the documented RTPS wire encoding.
	binary.LittleEndian.PutUint32(body[16:20], uint32(seq))     //nolint:gosec // G115: see above.
	binary.LittleEndian.PutUint16(body[20:22], serializedPayloadCDRLE)
	binary.LittleEndian.PutUint16(body[22:24], 0) // options
	copy(body[24:], payload)

	out := make([]byte, header+len(body))
	out[0] = submessageIDData
	out[1] = flagEndiannessLE | flagDataHasPayload
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(body))) //nolint:gosec // G115: submessage bodies here are always far below 64KiB.
	copy(out[4:], body)
	return out
}

// EncodeMessage assembles a complete RTPS message: header, INFO_TS, and a
// single Data submessage carrying payload. This core only ever emits one
// sample per message, matching the teacher's one-packet-per-send style
// (spec §4.H "write_and_fini_plist" emits a single sample at a time).
func EncodeMessage(senderPrefix guid.Prefix, readerID, writerID guid.EntityID, seq uint64, sec int32, fracNano uint32, payload []byte) []byte {
	out := encodeMessageHeader(senderPrefix)
	out = append(out, encodeInfoTimestamp(sec, fracNano)...)
	out = append(out, encodeDataSubmessage(readerID, writerID, seq, payload)...)
	return out
}
