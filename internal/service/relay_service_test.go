package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pairlink/signaling/internal/domain"
	"github.com/pairlink/signaling/internal/registry"
)

func newTestService() *RelayService {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRelayService(registry.New(), log, 8)
}

func createOrJoin(roomID string) *domain.Message {
	if roomID == "" {
		return &domain.Message{Event: domain.EventCreateOrJoin}
	}
	data, _ := json.Marshal(map[string]string{"room": roomID})
	return &domain.Message{Event: domain.EventCreateOrJoin, Data: data}
}

func receiveEvent(t *testing.T, p *domain.Participant) domain.Message {
	t.Helper()
	select {
	case event := <-p.Events:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Message{}
	}
}

func requireNoEvent(t *testing.T, p *domain.Participant) {
	t.Helper()
	select {
	case event := <-p.Events:
		t.Fatalf("unexpected event %q", event.Event)
	default:
	}
}

type roomNoticeData struct {
	Room string `json:"room"`
	SID  string `json:"sid"`
}

func decodeNotice(t *testing.T, msg domain.Message) roomNoticeData {
	t.Helper()
	var notice roomNoticeData
	require.NoError(t, json.Unmarshal(msg.Data, &notice))
	return notice
}

func TestRelayService_CreateThenJoin(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	creator := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, creator, createOrJoin("")))

	// The first participant receives created with the minted room id
	created := receiveEvent(t, creator)
	req.Equal(domain.EventCreated, created.Event)
	notice := decodeNotice(t, created)
	req.NotEmpty(notice.Room)
	req.Equal(creator.ID, notice.SID)

	joiner := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, joiner, createOrJoin(notice.Room)))

	// The second receives joined, then both receive ready
	joined := receiveEvent(t, joiner)
	req.Equal(domain.EventJoined, joined.Event)
	joinedNotice := decodeNotice(t, joined)
	req.Equal(notice.Room, joinedNotice.Room)
	req.Equal(joiner.ID, joinedNotice.SID)

	req.Equal(domain.EventReady, receiveEvent(t, creator).Event)
	req.Equal(domain.EventReady, receiveEvent(t, joiner).Event)
}

func TestRelayService_ThirdJoinGetsFull(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	a := svc.Connect()
	b := svc.Connect()
	c := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, a, createOrJoin("room-1")))
	req.NoError(svc.HandleMessage(ctx, b, createOrJoin("room-1")))
	req.NoError(svc.HandleMessage(ctx, c, createOrJoin("room-1")))

	receiveEvent(t, a) // created
	receiveEvent(t, b) // joined
	receiveEvent(t, a) // ready
	receiveEvent(t, b) // ready

	full := receiveEvent(t, c)
	req.Equal(domain.EventFull, full.Event)
	req.JSONEq(`"room-1"`, string(full.Data))
	req.Equal(domain.StatusConnected, c.CurrentStatus())
}

func TestRelayService_RelayExcludesSender(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	a := svc.Connect()
	b := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, a, createOrJoin("room-1")))
	req.NoError(svc.HandleMessage(ctx, b, createOrJoin("room-1")))
	receiveEvent(t, a) // created
	receiveEvent(t, b) // joined
	receiveEvent(t, a) // ready
	receiveEvent(t, b) // ready

	payload := json.RawMessage(`{"room":"room-1","sdp":"v=0...","extra":{"trickle":true}}`)
	req.NoError(svc.HandleMessage(ctx, b, &domain.Message{Event: domain.EventOffer, Data: payload}))

	// The payload reaches the other member byte-for-byte
	offer := receiveEvent(t, a)
	req.Equal(domain.EventOffer, offer.Event)
	req.Equal(string(payload), string(offer.Data))

	// and is never delivered back to the sender
	requireNoEvent(t, b)
}

func TestRelayService_RelayToUnknownRoomDropped(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	a := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, a, &domain.Message{
		Event: domain.EventCandidate,
		Data:  json.RawMessage(`{"room":"no-such-room","candidate":"..."}`),
	}))

	requireNoEvent(t, a)
}

func TestRelayService_MalformedRelayDropped(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	a := svc.Connect()
	b := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, a, createOrJoin("room-1")))
	req.NoError(svc.HandleMessage(ctx, b, createOrJoin("room-1")))
	receiveEvent(t, a)
	receiveEvent(t, b)
	receiveEvent(t, a)
	receiveEvent(t, b)

	// No room field: dropped without reaching the peer
	req.NoError(svc.HandleMessage(ctx, a, &domain.Message{
		Event: domain.EventAnswer,
		Data:  json.RawMessage(`{"sdp":"v=0"}`),
	}))

	requireNoEvent(t, b)
}

func TestRelayService_LeaveNotifiesRemainingMember(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	a := svc.Connect()
	b := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, a, createOrJoin("room-1")))
	req.NoError(svc.HandleMessage(ctx, b, createOrJoin("room-1")))
	receiveEvent(t, a)
	receiveEvent(t, b)
	receiveEvent(t, a)
	receiveEvent(t, b)

	leaveData, _ := json.Marshal(map[string]string{"room": "room-1"})
	req.NoError(svc.HandleMessage(ctx, a, &domain.Message{Event: domain.EventLeave, Data: leaveData}))

	peerLeft := receiveEvent(t, b)
	req.Equal(domain.EventPeerLeft, peerLeft.Event)
	req.Equal("room-1", decodeNotice(t, peerLeft).Room)

	// The leaver gets nothing and the room persists with one member
	requireNoEvent(t, a)
	req.Equal(domain.StatusLeft, a.CurrentStatus())

	infos := svc.Snapshot()
	req.Len(infos, 1)
	req.Equal(1, infos[0].MemberCount)
}

func TestRelayService_DisconnectNotifiesRemainingMember(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	a := svc.Connect()
	b := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, a, createOrJoin("room-1")))
	req.NoError(svc.HandleMessage(ctx, b, createOrJoin("room-1")))
	receiveEvent(t, a)
	receiveEvent(t, b)
	receiveEvent(t, a)
	receiveEvent(t, b)

	svc.Disconnect(ctx, a)

	peerLeft := receiveEvent(t, b)
	req.Equal(domain.EventPeerLeft, peerLeft.Event)
	req.Equal("room-1", decodeNotice(t, peerLeft).Room)
	req.Equal(domain.StatusDisconnected, a.CurrentStatus())

	// Both gone: the room vanishes from the snapshot
	svc.Disconnect(ctx, b)
	req.Empty(svc.Snapshot())
}

func TestRelayService_DisconnectWithoutRoomIsNoop(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	a := svc.Connect()
	b := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, a, createOrJoin("room-1")))
	receiveEvent(t, a)

	svc.Disconnect(ctx, b)

	requireNoEvent(t, a)
	req.Len(svc.Snapshot(), 1)
}

func TestRelayService_SecondCreateOrJoinDropped(t *testing.T) {
	req := require.New(t)
	svc := newTestService()
	ctx := context.Background()

	a := svc.Connect()
	req.NoError(svc.HandleMessage(ctx, a, createOrJoin("room-1")))
	receiveEvent(t, a) // created

	// A connection joins at most one room
	req.NoError(svc.HandleMessage(ctx, a, createOrJoin("room-2")))

	requireNoEvent(t, a)
	infos := svc.Snapshot()
	req.Len(infos, 1)
	req.Equal("room-1", infos[0].RoomID)
}

func TestRelayService_UnknownEventDropped(t *testing.T) {
	req := require.New(t)
	svc := newTestService()

	a := svc.Connect()
	req.NoError(svc.HandleMessage(context.Background(), a, &domain.Message{Event: "shout"}))
	requireNoEvent(t, a)
}
