// Package qos is a minimal stand-in for the QoS comparison/merge engine
// that spec §1 names as an external collaborator ("consumed via
// xqos_delta(a, b, mask) -> bitset and xqos_mergein_missing(dst, src,
// mask)"). It is not the QoS engine itself — only the subset of fields
// and operations discovery needs to decide what to serialize and how to
// fill in defaults.
package qos

// Mask is the bitset of QoS policy ids a delta/merge operation is
// restricted to (spec §4.C: "restricted to the delta vs defaults over
// {USER_DATA, ENTITY_NAME, PROPERTY_LIST, LIVELINESS}").
type Mask uint32

const (
	MaskUserData Mask = 1 << iota
	MaskEntityName
	MaskPropertyList
	MaskLiveliness
	MaskReliability
	MaskDurability
	MaskGroupData
	MaskTopicData
	MaskPartition
)

// MaskAll matches every policy this shim tracks.
const MaskAll Mask = MaskUserData | MaskEntityName | MaskPropertyList | MaskLiveliness |
	MaskReliability | MaskDurability | MaskGroupData | MaskTopicData | MaskPartition

// Reliability is the reliability QoS kind (spec §4.E: "assert RELIABILITY...
// present post-merge").
type Reliability int

const (
	ReliabilityUnset Reliability = iota
	ReliabilityBestEffort
	ReliabilityReliable
)

// Durability is the durability QoS kind.
type Durability int

const (
	DurabilityUnset Durability = iota
	DurabilityVolatile
	DurabilityTransientLocal
	DurabilityTransient
	DurabilityPersistent
)

// Liveliness carries the liveliness QoS policy's fields relevant to
// discovery (lease duration sourcing, spec §4.D step 7).
type Liveliness struct {
	LeaseDuration        int64 // nanoseconds; 0 means "use domain default"
	AutodisposeUnregistered bool
}

// QoS is the subset of a DDS entity's QoS policies discovery cares about.
// It has no present bits of its own, unlike plist.Present: a QoS value
// always carries all fields, and a Mask names the policies that Delta and
// MergeInMissing examine.
type QoS struct {
	UserData     []byte
	EntityName   string
	PropertyList map[string]string
	Liveliness   Liveliness
	Reliability  Reliability
	Durability   Durability
	GroupData    []byte
	TopicData    []byte
	Partitions   []string
}

// Delta returns the subset of mask's policies on which a and b differ
// (xqos_delta).
func Delta(a, b QoS, mask Mask) Mask {
	var d Mask
	if mask&MaskUserData != 0 && !bytesEqual(a.UserData, b.UserData) {
		d |= MaskUserData
	}
	if mask&MaskEntityName != 0 && a.EntityName != b.EntityName {
		d |= MaskEntityName
	}
	if mask&MaskPropertyList != 0 && !propsEqual(a.PropertyList, b.PropertyList) {
		d |= MaskPropertyList
	}
	if mask&MaskLiveliness != 0 && a.Liveliness != b.Liveliness {
		d |= MaskLiveliness
	}
	if mask&MaskReliability != 0 && a.Reliability != b.Reliability {
		d |= MaskReliability
	}
	if mask&MaskDurability != 0 && a.Durability != b.Durability {
		d |= MaskDurability
	}
	if mask&MaskGroupData != 0 && !bytesEqual(a.GroupData, b.GroupData) {
		d |= MaskGroupData
	}
	if mask&MaskTopicData != 0 && !bytesEqual(a.TopicData, b.TopicData) {
		d |= MaskTopicData
	}
	if mask&MaskPartition != 0 && !stringsEqual(a.Partitions, b.Partitions) {
		d |= MaskPartition
	}
	return d
}

// MergeInMissing copies every field named by mask from src into dst
// wherever dst does not already have a non-zero value (xqos_mergein_missing,
// spec §4.E: "merge defaults into the endpoint's QoS").
func MergeInMissing(dst *QoS, src QoS, mask Mask) {
	if mask&MaskReliability != 0 && dst.Reliability == ReliabilityUnset {
		dst.Reliability = src.Reliability
	}
	if mask&MaskDurability != 0 && dst.Durability == DurabilityUnset {
		dst.Durability = src.Durability
	}
	if mask&MaskLiveliness != 0 && dst.Liveliness == (Liveliness{}) {
		dst.Liveliness = src.Liveliness
	}
	if mask&MaskEntityName != 0 && dst.EntityName == "" {
		dst.EntityName = src.EntityName
	}
	if mask&MaskUserData != 0 && dst.UserData == nil {
		dst.UserData = src.UserData
	}
	if mask&MaskPropertyList != 0 && dst.PropertyList == nil {
		dst.PropertyList = src.PropertyList
	}
	if mask&MaskGroupData != 0 && dst.GroupData == nil {
		dst.GroupData = src.GroupData
	}
	if mask&MaskTopicData != 0 && dst.TopicData == nil {
		dst.TopicData = src.TopicData
	}
	if mask&MaskPartition != 0 && dst.Partitions == nil {
		dst.Partitions = src.Partitions
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func propsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
