package dispatch

import "github.com/dantte-lp/ddsdisc/internal/guid"

// entityID builds a guid.EntityID from a big-endian u32 well-known entity-id
// value, the form the builtin entity-id table in spec §6 is written in.
func entityID(u uint32) guid.EntityID {
	return guid.EntityID{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
}

// Well-known builtin discovery entity ids (spec §6 "Builtin entity ids").
// Every inbound discovery sample arrives addressed to one of these reader
// entity ids; HandleSample demultiplexes on exactly this value (spec §4.F).
var (
	SPDPBuiltinParticipantWriter = entityID(0x000100c2)
	SPDPBuiltinParticipantReader = entityID(0x000100c7)
	// SPDPBuiltinParticipantSecureWriter is the secure-SPDP variant named in
	// spec §6; this core treats it identically to the plain SPDP writer and
	// relies on internal/security to gate what it actually emits/accepts.
	SPDPBuiltinParticipantSecureWriter = entityID(0xff0003c2)

	SEDPBuiltinPublicationsWriter = entityID(0x000003c2)
	SEDPBuiltinPublicationsReader = entityID(0x000003c7)

	SEDPBuiltinSubscriptionsWriter = entityID(0x000004c2)
	SEDPBuiltinSubscriptionsReader = entityID(0x000004c7)

	SEDPBuiltinTopicWriter = entityID(0x000002c2)
	SEDPBuiltinTopicReader = entityID(0x000002c7)

	P2PBuiltinParticipantMessageWriter = entityID(0x000200c2)
	P2PBuiltinParticipantMessageReader = entityID(0x000200c7)
)
