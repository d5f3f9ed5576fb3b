package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type ParticipantStatus string

const (
	StatusConnected    ParticipantStatus = "connected"
	StatusJoined       ParticipantStatus = "joined"
	StatusLeft         ParticipantStatus = "left"
	StatusDisconnected ParticipantStatus = "disconnected"
)

const defaultEventBuffer = 16

// Participant represents one live signaling connection. The ID is minted
// once when the connection is accepted and never changes for its lifetime.
type Participant struct {
	ID          string
	Status      ParticipantStatus
	RoomID      string
	ConnectedAt time.Time
	Mutex       sync.RWMutex
	Events      chan Message
}

func NewParticipant(eventBuffer int) *Participant {
	if eventBuffer <= 0 {
		eventBuffer = defaultEventBuffer
	}
	return &Participant{
		ID:          uuid.New().String(),
		Status:      StatusConnected,
		ConnectedAt: time.Now().UTC(),
		Events:      make(chan Message, eventBuffer),
	}
}

// EnqueueEvent hands an outbound event to the connection's writer. The
// relay holds no durable obligation toward any message, so a full buffer
// drops the event instead of blocking the caller.
func (p *Participant) EnqueueEvent(event Message) bool {
	select {
	case p.Events <- event:
		return true
	default:
		return false
	}
}

func (p *Participant) SetStatus(status ParticipantStatus) {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()
	p.Status = status
}

func (p *Participant) CurrentStatus() ParticipantStatus {
	p.Mutex.RLock()
	defer p.Mutex.RUnlock()
	return p.Status
}

func (p *Participant) SetRoom(roomID string) {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()
	p.RoomID = roomID
}

func (p *Participant) Room() string {
	p.Mutex.RLock()
	defer p.Mutex.RUnlock()
	return p.RoomID
}
