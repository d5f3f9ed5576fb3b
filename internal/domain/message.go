package domain

import (
	"encoding/json"
	"errors"
)

// Inbound event names. Anything outside this set is dropped by the dispatcher.
const (
	EventCreateOrJoin = "create_or_join"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventCandidate    = "candidate"
	EventLeave        = "leave"
)

// Outbound event names.
const (
	EventCreated  = "created"
	EventJoined   = "joined"
	EventReady    = "ready"
	EventFull     = "full"
	EventPeerLeft = "peer_left"
)

var ErrMalformedEvent = errors.New("malformed event")

// Message is the envelope for every websocket frame in both directions.
// Data is kept as raw bytes so relayed handshake payloads (SDP, ICE
// candidates) pass through the server byte-for-byte.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type roomRef struct {
	Room string `json:"room"`
}

// RoomID extracts the required room field from the payload of a relay or
// leave event. A missing or unparsable room yields ErrMalformedEvent.
func (m *Message) RoomID() (string, error) {
	if len(m.Data) == 0 {
		return "", ErrMalformedEvent
	}
	var ref roomRef
	if err := json.Unmarshal(m.Data, &ref); err != nil {
		return "", ErrMalformedEvent
	}
	if ref.Room == "" {
		return "", ErrMalformedEvent
	}
	return ref.Room, nil
}

// JoinRequest is the payload of a create_or_join event. Room is optional;
// when empty the server mints one.
type JoinRequest struct {
	Room string `json:"room"`
}

// ParseJoinRequest reads an optional join payload. An absent payload is a
// valid request for a server-generated room.
func ParseJoinRequest(m *Message) (JoinRequest, error) {
	var req JoinRequest
	if len(m.Data) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(m.Data, &req); err != nil {
		return req, ErrMalformedEvent
	}
	return req, nil
}

type roomNotice struct {
	Room string `json:"room"`
	SID  string `json:"sid,omitempty"`
}

func NewCreatedMessage(roomID, participantID string) Message {
	data, _ := json.Marshal(roomNotice{Room: roomID, SID: participantID})
	return Message{Event: EventCreated, Data: data}
}

func NewJoinedMessage(roomID, participantID string) Message {
	data, _ := json.Marshal(roomNotice{Room: roomID, SID: participantID})
	return Message{Event: EventJoined, Data: data}
}

func NewReadyMessage() Message {
	return Message{Event: EventReady}
}

// NewFullMessage carries the bare room id as its payload.
func NewFullMessage(roomID string) Message {
	data, _ := json.Marshal(roomID)
	return Message{Event: EventFull, Data: data}
}

func NewPeerLeftMessage(roomID string) Message {
	data, _ := json.Marshal(roomNotice{Room: roomID})
	return Message{Event: EventPeerLeft, Data: data}
}
