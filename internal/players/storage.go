package players

import (
	"errors"
	"sync"
)

// Capacity is the number of seats in a duel.
const Capacity = 2

var ErrRoomFull = errors.New("room is full")

// Roster holds the seated players of one room in seat order.
type Roster struct {
	mu      sync.Mutex
	players map[string]*Player
	order   []string
}

func NewRoster() *Roster {
	return &Roster{
		players: make(map[string]*Player),
	}
}

func (r *Roster) Add(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.players[p.ID]; exists {
		return nil
	}
	if len(r.players) >= Capacity {
		return ErrRoomFull
	}
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *Roster) Get(id string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[id]
}

// Remove deletes the player and reports whether it was present.
func (r *Roster) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the players in seat order.
func (r *Roster) List() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.players[id])
	}
	return list
}

func (r *Roster) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Roster) HasUsername(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.Username == username {
			return true
		}
	}
	return false
}

// AllReady reports whether every seat is taken and every player is ready.
func (r *Roster) AllReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) < Capacity {
		return false
	}
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Roster) AllShot() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) < Capacity {
		return false
	}
	for _, p := range r.players {
		if !p.HasShot {
			return false
		}
	}
	return true
}

func (r *Roster) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		p.ResetRound()
	}
}
