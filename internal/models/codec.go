package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DecodePayload decodes raw JSON into the payload type registered for t.
func DecodePayload(t EntityType, raw []byte) (Payload, error) {
	switch t {
	case TypeTeam:
		return decode[Team](raw)
	case TypePerson:
		return decode[Person](raw)
	case TypeTopic:
		return decode[Topic](raw)
	case TypeDoc:
		return decode[Document](raw)
	case TypeThread:
		return decode[Thread](raw)
	case TypeMessage:
		return decode[Message](raw)
	case TypeMeeting:
		return decode[Meeting](raw)
	case TypeACL:
		return decode[ACL](raw)
	case TypeEvent:
		return decode[Event](raw)
	case TypeMetric:
		return decode[Metric](raw)
	case TypePack:
		return decode[StarterPack](raw)
	}
	return nil, fmt.Errorf("unknown entity type %q", t)
}

func decode[T Payload](raw []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type      EntityType      `json:"type"`
		ID        string          `json:"id"`
		CreatedAt time.Time       `json:"created_at"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p, err := DecodePayload(wire.Type, wire.Payload)
	if err != nil {
		return fmt.Errorf("record %s:%s: %w", wire.Type, wire.ID, err)
	}
	*r = Record{Type: wire.Type, ID: wire.ID, CreatedAt: wire.CreatedAt, Payload: p}
	return nil
}
