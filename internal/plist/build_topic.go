package plist

import (
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/qos"
)

// TopicSource is the read-only view of a local topic that build_topic_plist
// consumes (spec §4.C, proxy topics §4.E).
type TopicSource struct {
	GUID     guid.GUID
	HasGUID  bool // topics are only identified by GUID under the Cyclone topic-discovery extension
	Name     string
	TypeName string
	QoS      qos.QoS
}

// BuildTopicPlist implements build_topic_plist (spec §4.C).
func BuildTopicPlist(src TopicSource) *Plist {
	p := New()
	if src.HasGUID {
		p.Present |= PresentTopicGUID
		p.TopicGUID = src.GUID
	}
	q := src.QoS
	if q.EntityName == "" {
		q.EntityName = src.Name
	}
	p.Present |= PresentQos
	p.QoS = q
	return p
}

// BuildTopicDisposePlist builds the minimal GUID-only dispose/unregister
// payload for a topic.
func BuildTopicDisposePlist(g guid.GUID, status StatusInfo) *Plist {
	p := New()
	p.Present = PresentTopicGUID | PresentStatusInfo
	p.TopicGUID = g
	p.StatusInfo = status
	return p
}
