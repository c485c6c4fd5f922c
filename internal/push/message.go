package push

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/parkgate/internal/model"
)

// Message type tags.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeZoneUpdate  = "zone-update"
	TypeAdminUpdate = "admin-update"
)

// Envelope is the wire shape of every push message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GatePayload is the payload of subscribe and unsubscribe messages.
type GatePayload struct {
	GateID string `json:"gateId"`
}

// Inbound is a decoded server-to-client message. It is one of ZoneUpdate,
// AdminUpdate or Unrecognized.
type Inbound interface {
	inbound()
}

// ZoneUpdate carries a full zone record.
type ZoneUpdate struct {
	Zone model.Zone
}

// AdminUpdate carries one audit log entry.
type AdminUpdate struct {
	Entry model.AuditEntry
}

// Unrecognized is any message whose type tag this client does not handle.
type Unrecognized struct {
	Type string
}

func (ZoneUpdate) inbound()   {}
func (AdminUpdate) inbound()  {}
func (Unrecognized) inbound() {}

var errMissingPayload = errors.New("missing payload")

// DecodeInbound parses a raw message. Unknown types are not an error.
func DecodeInbound(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	switch env.Type {
	case TypeZoneUpdate:
		if len(env.Payload) == 0 {
			return nil, fmt.Errorf("%s: %w", env.Type, errMissingPayload)
		}
		var z model.Zone
		if err := json.Unmarshal(env.Payload, &z); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
		return ZoneUpdate{Zone: z}, nil

	case TypeAdminUpdate:
		if len(env.Payload) == 0 {
			return nil, fmt.Errorf("%s: %w", env.Type, errMissingPayload)
		}
		var e model.AuditEntry
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
		return AdminUpdate{Entry: e}, nil
	}

	return Unrecognized{Type: env.Type}, nil
}

// EncodeGate builds a subscribe or unsubscribe message.
func EncodeGate(typ, gateID string) ([]byte, error) {
	payload, err := json.Marshal(GatePayload{GateID: gateID})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Payload: payload})
}
