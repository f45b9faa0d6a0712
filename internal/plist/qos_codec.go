package plist

import (
	"encoding/binary"

	"github.com/dantte-lp/ddsdisc/internal/qos"
)

// encodeQoS/decodeQoS give the nested "qos" plist field (spec §3: "a
// nested qos plist") a concrete wire form. The QoS comparison/merge engine
// itself is out of scope (spec §1); this is only the TLV framing needed to
// carry a qos.QoS value inside a Plist.
func encodeQoS(q qos.QoS) []byte {
	out := make([]byte, 0, 64)
	out = append(out, byte(q.Reliability), byte(q.Durability))
	out = append(out, 0, 0) // pad to 4-byte boundary

	live := make([]byte, 9)
	binary.BigEndian.PutUint64(live[0:8], uint64(q.Liveliness.LeaseDuration))
	if q.Liveliness.AutodisposeUnregistered {
		live[8] = 1
	}
	out = append(out, live...)

	out = append(out, encodeString(q.EntityName)...)
	out = append(out, encodeBytes(q.UserData)...)
	out = append(out, encodeBytes(q.GroupData)...)
	out = append(out, encodeBytes(q.TopicData)...)
	return out
}

func decodeQoS(payload []byte) (qos.QoS, error) {
	var q qos.QoS
	if len(payload) < 4 {
		return q, ErrTruncated
	}
	q.Reliability = qos.Reliability(payload[0])
	q.Durability = qos.Durability(payload[1])
	payload = payload[4:]

	if len(payload) < 9 {
		return q, ErrTruncated
	}
	q.Liveliness.LeaseDuration = int64(binary.BigEndian.Uint64(payload[0:8]))
	q.Liveliness.AutodisposeUnregistered = payload[8] != 0
	payload = payload[9:]

	name, rest, err := takeString(payload)
	if err != nil {
		return q, err
	}
	q.EntityName = name
	payload = rest

	q.UserData, payload, err = takeBytes(payload)
	if err != nil {
		return q, err
	}
	q.GroupData, payload, err = takeBytes(payload)
	if err != nil {
		return q, err
	}
	q.TopicData, _, err = takeBytes(payload)
	if err != nil {
		return q, err
	}
	return q, nil
}

func encodeBytes(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(b)))
	copy(out[4:], b)
	return out
}

func takeBytes(payload []byte) (data, rest []byte, err error) {
	if len(payload) < 4 {
		return nil, nil, ErrTruncated
	}
	n := int(binary.BigEndian.Uint32(payload[0:4]))
	payload = payload[4:]
	if len(payload) < n {
		return nil, nil, ErrTruncated
	}
	if n == 0 {
		return nil, payload, nil
	}
	return append([]byte(nil), payload[:n]...), payload[n:], nil
}

func takeString(payload []byte) (string, []byte, error) {
	if len(payload) < 4 {
		return "", nil, ErrTruncated
	}
	n := int(binary.BigEndian.Uint32(payload[0:4]))
	if len(payload) < 4+n {
		return "", nil, ErrTruncated
	}
	s := payload[4 : 4+n]
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s), payload[4+n:], nil
}
