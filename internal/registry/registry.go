package registry

import (
	"errors"
	"sync"

	"github.com/pairlink/signaling/internal/domain"
)

var (
	ErrRoomFull     = errors.New("room is full")
	ErrRoomNotFound = errors.New("room not found")
)

// Role reports which side of the pairing a successful CreateOrJoin landed on.
type Role string

const (
	RoleCreator Role = "creator"
	RoleJoiner  Role = "joiner"
)

// RoomInfo is one row of a read-only registry listing.
type RoomInfo struct {
	RoomID      string
	MemberCount int
}

// Change records a room whose membership shrank during a cleanup, together
// with the members left to notify.
type Change struct {
	RoomID    string
	Remaining []*domain.Participant
}

// Registry is the single authority over rooms and their membership. One
// mutex covers the whole room map; it is held only across the
// check-and-mutate span of each operation and never across channel or
// network sends. Membership returned to callers is always a snapshot.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func New() *Registry {
	return &Registry{
		rooms: make(map[string]*domain.Room),
	}
}

// CreateOrJoin adds the participant to the requested room, creating it if
// needed. An empty roomID asks the registry to mint one. The existence and
// capacity checks and the insert are one atomic step, so two racing calls
// can never both become creator or push a room past capacity.
func (r *Registry) CreateOrJoin(roomID string, p *domain.Participant) (string, Role, error) {
	if roomID == "" {
		roomID = domain.NewRoomID()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = domain.NewRoom(roomID)
		room.Participants[p.ID] = p
		r.rooms[roomID] = room
		return roomID, RoleCreator, nil
	}

	if room.IsFull() {
		return roomID, "", ErrRoomFull
	}

	room.Participants[p.ID] = p
	return roomID, RoleJoiner, nil
}

// Leave removes the participant from the room if present and deletes the
// room once empty. It reports the members remaining for notification and
// whether anything actually changed; leaving a room one is not in is a
// no-op.
func (r *Registry) Leave(roomID, participantID string) ([]*domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	if _, ok := room.Participants[participantID]; !ok {
		return nil, false
	}

	delete(room.Participants, participantID)
	if len(room.Participants) == 0 {
		delete(r.rooms, roomID)
		return nil, true
	}
	return room.Members(), true
}

// RemoveEverywhere drops the participant from every room it is a member of,
// deleting rooms left empty. It returns the rooms whose membership changed.
// Calling it for a participant in no rooms does nothing.
func (r *Registry) RemoveEverywhere(participantID string) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changes []Change
	for roomID, room := range r.rooms {
		if _, ok := room.Participants[participantID]; !ok {
			continue
		}
		delete(room.Participants, participantID)
		if len(room.Participants) == 0 {
			delete(r.rooms, roomID)
			changes = append(changes, Change{RoomID: roomID})
			continue
		}
		changes = append(changes, Change{RoomID: roomID, Remaining: room.Members()})
	}
	return changes
}

// Members returns a snapshot of the room's current membership.
func (r *Registry) Members(roomID string) ([]*domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Members(), nil
}

// Snapshot lists every live room with its member count.
func (r *Registry) Snapshot() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(r.rooms))
	for roomID, room := range r.rooms {
		infos = append(infos, RoomInfo{RoomID: roomID, MemberCount: len(room.Participants)})
	}
	return infos
}
