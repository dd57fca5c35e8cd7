package rooms

import (
	"time"

	"quickdraw/internal/broadcast"
	"quickdraw/internal/duel"
	"quickdraw/internal/gamedata"
)

type Room struct {
	Code        string
	Coordinator *duel.Coordinator
	Broadcaster *broadcast.Broadcaster
	CreatedAt   time.Time
}

// Info is the public summary of a room.
type Info struct {
	Code      string         `json:"code"`
	Seats     int            `json:"seats"`
	Phase     gamedata.Phase `json:"phase"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (r *Room) Info() Info {
	return Info{
		Code:      r.Code,
		Seats:     r.Coordinator.Seats(),
		Phase:     r.Coordinator.Phase(),
		CreatedAt: r.CreatedAt,
	}
}

// Session is one connection's seat in a room.
type Session struct {
	Room    *Room
	Player  duel.JoinResult
	Updates <-chan []byte
}
