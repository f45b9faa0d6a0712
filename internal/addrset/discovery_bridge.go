package addrset

// MaybeAddParticipantMetaToDiscovery implements maybe_add_pp_as_meta_to_as_disc:
// when a domain runs a discovery-service bridge (spec §4.E "vendor=cloud"
// implicit-participant path, SPEC_FULL §[SUPPLEMENT]), the local
// participant's own metatraffic address set is unioned into the bridge's
// discovery address set so DS-bridged peers can route announcements back
// to this node.
func MaybeAddParticipantMetaToDiscovery(asDisc, asMeta *AddressSet, dsBridgeEnabled bool) {
	if !dsBridgeEnabled || asDisc == nil || asMeta == nil {
		return
	}
	asDisc.UnionFrom(asMeta)
}
