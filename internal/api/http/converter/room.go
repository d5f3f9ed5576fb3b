package converter

import "github.com/pairlink/signaling/internal/registry"

type RoomResponse struct {
	RoomID      string `json:"room_id"`
	MemberCount int    `json:"member_count"`
}

func SnapshotToApi(infos []registry.RoomInfo) []RoomResponse {
	rooms := make([]RoomResponse, 0, len(infos))
	for _, info := range infos {
		rooms = append(rooms, RoomResponse{
			RoomID:      info.RoomID,
			MemberCount: info.MemberCount,
		})
	}
	return rooms
}
