package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxParticipants is the capacity of a room: signaling is strictly a
// two-party exchange.
const MaxParticipants = 2

// Room is a pairing slot for two participants. The registry owns all rooms
// and guards them with its own lock; Room carries no locking of its own.
type Room struct {
	ID           string
	Participants map[string]*Participant
	CreatedAt    time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		ID:           id,
		Participants: make(map[string]*Participant, MaxParticipants),
		CreatedAt:    time.Now().UTC(),
	}
}

func (r *Room) IsFull() bool {
	return len(r.Participants) >= MaxParticipants
}

// Members returns the current participant set as a slice. Callers must hold
// the registry lock.
func (r *Room) Members() []*Participant {
	members := make([]*Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		members = append(members, p)
	}
	return members
}

// NewRoomID mints a random 128-bit room identifier for clients that do not
// supply one. Collision with a live room is not checked.
func NewRoomID() string {
	return uuid.New().String()
}
