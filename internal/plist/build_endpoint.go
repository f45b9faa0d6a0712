package plist

import (
	"github.com/dantte-lp/ddsdisc/internal/guid"
	"github.com/dantte-lp/ddsdisc/internal/locator"
	"github.com/dantte-lp/ddsdisc/internal/qos"
	"github.com/dantte-lp/ddsdisc/internal/security"
)

// EndpointSource is the read-only view of a local writer or reader that
// build_endpoint_plist consumes (spec §4.C).
type EndpointSource struct {
	GUID        guid.GUID
	TopicGUID   guid.GUID
	HasTopicGUID bool // Cyclone PID_CYCLONE_TOPIC_GUID extension

	TopicName   string
	TypeName    string

	UnicastLocators   []locator.Locator
	MulticastLocators []locator.Locator

	QoS        qos.QoS
	DefaultQoS qos.QoS

	RequestsKeyhash bool
	FavoursSSM      bool
	ManualLivelinessCount      int32
	HasManualLivelinessCount   bool

	Security security.Provider
}

// BuildEndpointPlist implements build_endpoint_plist (spec §4.C).
func BuildEndpointPlist(src EndpointSource) *Plist {
	p := New()
	p.Present = PresentEndpointGUID
	p.EndpointGUID = src.GUID

	if src.HasTopicGUID {
		p.Present |= PresentTopicGUID
		p.TopicGUID = src.TopicGUID
	}

	if len(src.UnicastLocators) > 0 {
		p.Present |= PresentUnicastLocator
		p.UnicastLocators.List = src.UnicastLocators
	}
	if len(src.MulticastLocators) > 0 {
		p.Present |= PresentMulticastLocator
		p.MulticastLocators.List = src.MulticastLocators
	}

	if src.RequestsKeyhash {
		p.Present |= PresentRequestsKeyhash
		p.RequestsKeyhash = true
	}
	if src.FavoursSSM {
		p.Present |= PresentFavoursSSM
		p.FavoursSSM = true
	}
	if src.HasManualLivelinessCount {
		p.Present |= PresentLivelinessCount
		p.ManualLivelinessCount = src.ManualLivelinessCount
	}

	if src.Security != nil && src.Security.Active() {
		if info, ok := src.Security.EndpointSecurityInfo(src.GUID); ok {
			p.Present |= PresentSecurityInfo
			p.SecurityInfo = info
		}
	}

	// Topic and type name are not separate PIDs in this port: they travel
	// as the QoS entity name, matching how build_endpoint_plist's QoS
	// argument already carries entity_name (spec §4.C).
	p.Present |= PresentQos
	q := src.QoS
	if q.EntityName == "" {
		q.EntityName = src.TopicName
	}
	p.QoS = q

	return p
}

// BuildEndpointDisposePlist builds the minimal GUID-only dispose/unregister
// payload for a writer or reader (spec §4.C "Dispose/unregister payloads").
func BuildEndpointDisposePlist(g guid.GUID, status StatusInfo) *Plist {
	p := New()
	p.Present = PresentEndpointGUID | PresentStatusInfo
	p.EndpointGUID = g
	p.StatusInfo = status
	return p
}
