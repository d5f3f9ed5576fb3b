package service

import (
	"context"

	"github.com/pairlink/signaling/internal/domain"
	"github.com/pairlink/signaling/internal/registry"
)

type RelayInteractor interface {
	Connect() *domain.Participant
	HandleMessage(ctx context.Context, p *domain.Participant, msg *domain.Message) error
	Disconnect(ctx context.Context, p *domain.Participant)
	Snapshot() []registry.RoomInfo
}
