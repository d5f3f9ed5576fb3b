package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pairlink/signaling/internal/domain"
	"github.com/pairlink/signaling/internal/registry"
	"github.com/pairlink/signaling/lib/logger/sl"
)

// RelayService dispatches signaling events for one connection at a time and
// fans resulting events out to room members. It never reads the relayed
// payloads beyond the room reference needed for routing.
type RelayService struct {
	registry    *registry.Registry
	log         *slog.Logger
	eventBuffer int
}

func NewRelayService(reg *registry.Registry, log *slog.Logger, eventBuffer int) *RelayService {
	if log == nil {
		log = slog.Default()
	}
	return &RelayService{
		registry:    reg,
		log:         log,
		eventBuffer: eventBuffer,
	}
}

// Connect allocates the stable identity for a freshly accepted connection.
func (s *RelayService) Connect() *domain.Participant {
	p := domain.NewParticipant(s.eventBuffer)
	s.log.Info("participant connected", slog.String("participant_id", p.ID))
	return p
}

// HandleMessage processes one inbound event. Every failure is local to the
// event: malformed or out-of-state events are dropped and the connection
// lives on.
func (s *RelayService) HandleMessage(ctx context.Context, p *domain.Participant, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch msg.Event {
	case domain.EventCreateOrJoin:
		return s.handleCreateOrJoin(p, msg)
	case domain.EventOffer, domain.EventAnswer, domain.EventCandidate:
		return s.handleRelay(p, msg)
	case domain.EventLeave:
		return s.handleLeave(p, msg)
	default:
		s.log.Debug("unknown event dropped",
			slog.String("event", msg.Event),
			slog.String("participant_id", p.ID),
		)
		return nil
	}
}

func (s *RelayService) handleCreateOrJoin(p *domain.Participant, msg *domain.Message) error {
	const op = "service.relay.createOrJoin"
	log := s.log.With(slog.String("op", op), slog.String("participant_id", p.ID))

	if p.CurrentStatus() != domain.StatusConnected {
		log.Debug("create_or_join outside connected state dropped", slog.String("status", string(p.CurrentStatus())))
		return nil
	}

	req, err := domain.ParseJoinRequest(msg)
	if err != nil {
		log.Debug("malformed create_or_join dropped", sl.Err(err))
		return nil
	}

	roomID, role, err := s.registry.CreateOrJoin(req.Room, p)
	if err != nil {
		if errors.Is(err, registry.ErrRoomFull) {
			log.Info("room full", slog.String("room_id", roomID))
			p.EnqueueEvent(domain.NewFullMessage(roomID))
			return nil
		}
		return err
	}

	p.SetRoom(roomID)
	p.SetStatus(domain.StatusJoined)

	switch role {
	case registry.RoleCreator:
		log.Info("room created", slog.String("room_id", roomID))
		p.EnqueueEvent(domain.NewCreatedMessage(roomID, p.ID))
	case registry.RoleJoiner:
		log.Info("room joined", slog.String("room_id", roomID))
		p.EnqueueEvent(domain.NewJoinedMessage(roomID, p.ID))
		s.broadcast(roomID, domain.NewReadyMessage(), "")
	}
	return nil
}

func (s *RelayService) handleRelay(p *domain.Participant, msg *domain.Message) error {
	const op = "service.relay.forward"
	log := s.log.With(slog.String("op", op), slog.String("participant_id", p.ID))

	roomID, err := msg.RoomID()
	if err != nil {
		log.Debug("malformed relay event dropped", slog.String("event", msg.Event), sl.Err(err))
		return nil
	}

	log.Debug("forwarding signal", slog.String("event", msg.Event), slog.String("room_id", roomID))
	s.broadcast(roomID, *msg, p.ID)
	return nil
}

func (s *RelayService) handleLeave(p *domain.Participant, msg *domain.Message) error {
	const op = "service.relay.leave"
	log := s.log.With(slog.String("op", op), slog.String("participant_id", p.ID))

	roomID, err := msg.RoomID()
	if err != nil {
		log.Debug("malformed leave dropped", sl.Err(err))
		return nil
	}

	remaining, ok := s.registry.Leave(roomID, p.ID)
	if !ok {
		log.Debug("leave for unknown membership dropped", slog.String("room_id", roomID))
		return nil
	}

	p.SetStatus(domain.StatusLeft)
	p.SetRoom("")
	log.Info("participant left room", slog.String("room_id", roomID))

	notice := domain.NewPeerLeftMessage(roomID)
	for _, member := range remaining {
		member.EnqueueEvent(notice)
	}
	return nil
}

// Disconnect cleans the participant out of every room it belongs to and
// notifies remaining members. Safe to call for a participant that never
// joined; it fires once per connection, on transport teardown.
func (s *RelayService) Disconnect(ctx context.Context, p *domain.Participant) {
	const op = "service.relay.disconnect"
	log := s.log.With(slog.String("op", op), slog.String("participant_id", p.ID))

	changes := s.registry.RemoveEverywhere(p.ID)
	p.SetStatus(domain.StatusDisconnected)

	for _, change := range changes {
		log.Info("participant removed from room", slog.String("room_id", change.RoomID))
		notice := domain.NewPeerLeftMessage(change.RoomID)
		for _, member := range change.Remaining {
			member.EnqueueEvent(notice)
		}
	}
	log.Info("participant disconnected")
}

func (s *RelayService) Snapshot() []registry.RoomInfo {
	return s.registry.Snapshot()
}

// broadcast delivers the event to every current member of the room except
// the excluded participant. Membership is snapshotted by the registry under
// its lock; the sends below happen lock-free. An unknown room drops the
// event.
func (s *RelayService) broadcast(roomID string, msg domain.Message, exclude string) {
	members, err := s.registry.Members(roomID)
	if err != nil {
		s.log.Debug("broadcast to unknown room dropped", slog.String("room_id", roomID))
		return
	}
	for _, member := range members {
		if member.ID == exclude {
			continue
		}
		if !member.EnqueueEvent(msg) {
			s.log.Debug("dropping broadcast event",
				slog.String("participant_id", member.ID),
				slog.String("event", msg.Event),
			)
		}
	}
}
