// Package guid defines the RTPS global unique identifier used to name
// participants, writers, readers, topics and groups throughout discovery.
package guid

import (
	"errors"
	"fmt"
)

// ErrInvalidGUIDString indicates a string did not match the
// "%08x:%08x:%08x:%08x" form produced by String.
var ErrInvalidGUIDString = errors.New("invalid guid string")

// PrefixSize is the length in bytes of a GUID prefix (RTPS 2.x Table 9.3).
const PrefixSize = 12

// EntityIDSize is the length in bytes of a GUID entity id.
const EntityIDSize = 4

// Prefix identifies a participant; all entities owned by a participant
// share its prefix.
type Prefix [PrefixSize]byte

// EntityID identifies an entity within a participant, plus its kind in the
// low byte (RTPS 2.x Section 9.3.1.2).
type EntityID [EntityIDSize]byte

// Well-known entity id kind byte values (RTPS 2.x Table 9.4, partial).
const (
	KindParticipant      byte = 0xc1
	KindWriterWithKey    byte = 0xc2
	KindWriterNoKey      byte = 0xc3
	KindReaderWithKey    byte = 0xc7
	KindReaderNoKey      byte = 0xc4
	KindWriterGroup      byte = 0xc8
	KindReaderGroup      byte = 0xc9
	// KindTopic is Cyclone's vendor-specific topic entity kind (CYCLONE_TOPIC_GUID, PID 0x8027 family).
	KindTopic byte = 0xbc
)

// Kind returns the entity-kind byte (the fourth, low-order byte).
func (e EntityID) Kind() byte { return e[3] }

// GUID is a 16-byte (prefix, entity id) pair identifying any RTPS entity.
type GUID struct {
	Prefix Prefix
	Entity EntityID
}

// Zero is the all-zero GUID, used as a sentinel "no entity" / "unset" value
// (e.g. ProxyParticipant.PrivilegedPPGUID when not slaved to anything).
var Zero GUID

// IsZero reports whether g is the all-zero sentinel.
func (g GUID) IsZero() bool {
	return g == Zero
}

// SamePrefix reports whether g and other share the same participant prefix.
func (g GUID) SamePrefix(other GUID) bool {
	return g.Prefix == other.Prefix
}

// ParticipantGUID returns the GUID of the participant that owns g: same
// prefix, entity id fixed to the participant's well-known entity id.
func (g GUID) ParticipantGUID() GUID {
	return GUID{Prefix: g.Prefix, Entity: EntityID{0, 0, 0, KindParticipant}}
}

// String renders the GUID in the conventional colon-hex form used by RTPS
// tracing tools: prefix as three u32 words, entity id as one u32 word.
func (g GUID) String() string {
	p0 := uint32(g.Prefix[0])<<24 | uint32(g.Prefix[1])<<16 | uint32(g.Prefix[2])<<8 | uint32(g.Prefix[3])
	p1 := uint32(g.Prefix[4])<<24 | uint32(g.Prefix[5])<<16 | uint32(g.Prefix[6])<<8 | uint32(g.Prefix[7])
	p2 := uint32(g.Prefix[8])<<24 | uint32(g.Prefix[9])<<16 | uint32(g.Prefix[10])<<8 | uint32(g.Prefix[11])
	e := uint32(g.Entity[0])<<24 | uint32(g.Entity[1])<<16 | uint32(g.Entity[2])<<8 | uint32(g.Entity[3])
	return fmt.Sprintf("%08x:%08x:%08x:%08x", p0, p1, p2, e)
}

// Parse inverts String, parsing the conventional colon-hex form back into
// a GUID. Returns ErrInvalidGUIDString if s is not four colon-separated
// 8-digit hex words.
func Parse(s string) (GUID, error) {
	var p0, p1, p2, e uint32
	n, err := fmt.Sscanf(s, "%08x:%08x:%08x:%08x", &p0, &p1, &p2, &e)
	if err != nil || n != 4 {
		return GUID{}, fmt.Errorf("%q: %w", s, ErrInvalidGUIDString)
	}

	var g GUID
	g.Prefix[0], g.Prefix[1], g.Prefix[2], g.Prefix[3] = byte(p0>>24), byte(p0>>16), byte(p0>>8), byte(p0)
	g.Prefix[4], g.Prefix[5], g.Prefix[6], g.Prefix[7] = byte(p1>>24), byte(p1>>16), byte(p1>>8), byte(p1)
	g.Prefix[8], g.Prefix[9], g.Prefix[10], g.Prefix[11] = byte(p2>>24), byte(p2>>16), byte(p2>>8), byte(p2)
	g.Entity[0], g.Entity[1], g.Entity[2], g.Entity[3] = byte(e>>24), byte(e>>16), byte(e>>8), byte(e)
	return g, nil
}

// Bytes returns the 16-byte wire representation of g.
func (g GUID) Bytes() [16]byte {
	var b [16]byte
	copy(b[0:12], g.Prefix[:])
	copy(b[12:16], g.Entity[:])
	return b
}

// FromBytes parses a 16-byte wire representation into a GUID.
func FromBytes(b [16]byte) GUID {
	var g GUID
	copy(g.Prefix[:], b[0:12])
	copy(g.Entity[:], b[12:16])
	return g
}
