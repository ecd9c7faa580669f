// Package streaming defines the wire format of the live tour journal stream.
package streaming

import (
	"encoding/json"

	"github.com/timewalk/tourguide/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession    = "start_session"
	TypeEndSession      = "end_session"
	TypeTourEvent       = "tour_event"
	TypeTelemetrySample = "telemetry_sample"
	TypeAck             = "ack"
)

// ProtocolVersion is sent with every start_session message.
const ProtocolVersion = 1

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload opens a journal stream.
type StartSessionPayload struct {
	Version int              `json:"version"`
	Session core.TourSession `json:"session"`
}

// Marshal wraps payload in an envelope of the given type.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
