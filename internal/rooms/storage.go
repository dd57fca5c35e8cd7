package rooms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"quickdraw/internal/broadcast"
	"quickdraw/internal/duel"
	"quickdraw/internal/events"
	"quickdraw/internal/metrics"
	"quickdraw/internal/players"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = duel.ErrRoomFull
)

const (
	defaultStaleAfter = 10 * time.Minute
	defaultSweepEvery = time.Minute
	joinAttempts      = 5
)

type Config struct {
	Timings     duel.Timings
	Leaderboard duel.Leaderboard
	Publisher   events.Publisher
	Metrics     metrics.Recorder
	Clock       clockwork.Clock
	Jitter      duel.JitterFunc

	// StaleAfter is how long a room may sit with no players before the
	// sweeper removes it.
	StaleAfter time.Duration
	SweepEvery time.Duration
}

type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room

	// joinMu serializes matchmaking so two lone players land in the same
	// room. It is never held together with mu while waiting on a room.
	joinMu sync.Mutex

	cfg       Config
	quit      chan struct{}
	closeOnce sync.Once
}

func NewStore(cfg Config) *Store {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoOp{}
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = defaultSweepEvery
	}
	s := &Store{
		rooms: make(map[string]*Room),
		cfg:   cfg,
		quit:  make(chan struct{}),
	}
	go s.sweepStale()
	return s
}

// Create opens a new empty room with a fresh code and starts its coordinator.
func (s *Store) Create() (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Try up to 10 times to generate a unique code
	for range 10 {
		code, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		b := broadcast.NewBroadcaster(code)
		coord := duel.New(duel.Options{
			Code:        code,
			Timings:     s.cfg.Timings,
			Clock:       s.cfg.Clock,
			Leaderboard: s.cfg.Leaderboard,
			Broadcaster: b,
			Publisher:   s.cfg.Publisher,
			Metrics:     s.cfg.Metrics,
			Jitter:      s.cfg.Jitter,
			OnEmpty:     s.removeRoom,
		})
		room := &Room{
			Code:        code,
			Coordinator: coord,
			Broadcaster: b,
			CreatedAt:   s.cfg.Clock.Now(),
		}
		s.rooms[code] = room
		go coord.Run()
		s.cfg.Metrics.RoomOpened()
		log.Info().Str("room", code).Msg("room created")
		return room, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code after 10 attempts")
}

func (s *Store) Get(code string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[code]
}

// Delete removes the room and stops its coordinator.
func (s *Store) Delete(code string) {
	s.removeRoom(code)
}

func (s *Store) removeRoom(code string) {
	s.mu.Lock()
	room, ok := s.rooms[code]
	if ok {
		delete(s.rooms, code)
	}
	s.mu.Unlock()

	if ok {
		room.Coordinator.Stop()
		s.cfg.Metrics.RoomClosed()
		log.Info().Str("room", code).Msg("room closed")
	}
}

// List returns rooms oldest first.
func (s *Store) List() []*Room {
	s.mu.Lock()
	list := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		list = append(list, r)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Code < list[j].Code
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// JoinRoom seats connID in the room with the given code.
func (s *Store) JoinRoom(ctx context.Context, code, connID, username string) (*Session, error) {
	room := s.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	sess, err := s.join(ctx, room, connID, username)
	if errors.Is(err, duel.ErrStopped) {
		return nil, ErrRoomNotFound
	}
	return sess, err
}

// JoinOrCreate seats connID in the oldest room with a free seat, creating a
// room when none has one.
func (s *Store) JoinOrCreate(ctx context.Context, connID, username string) (*Session, error) {
	s.joinMu.Lock()
	defer s.joinMu.Unlock()

	for range joinAttempts {
		room := s.findOpen()
		if room == nil {
			var err error
			if room, err = s.Create(); err != nil {
				return nil, err
			}
		}
		sess, err := s.join(ctx, room, connID, username)
		if errors.Is(err, ErrRoomFull) || errors.Is(err, duel.ErrStopped) {
			continue
		}
		return sess, err
	}
	return nil, fmt.Errorf("no room available after %d attempts", joinAttempts)
}

func (s *Store) findOpen() *Room {
	for _, r := range s.List() {
		if r.Coordinator.Seats() < players.Capacity {
			return r
		}
	}
	return nil
}

func (s *Store) join(ctx context.Context, room *Room, connID, username string) (*Session, error) {
	updates := room.Broadcaster.Subscribe(connID)
	res, err := room.Coordinator.Join(ctx, connID, username)
	if err != nil {
		room.Broadcaster.Unsubscribe(connID)
		return nil, err
	}
	return &Session{Room: room, Player: res, Updates: updates}, nil
}

// Leave releases the session's seat. The room closes itself once empty.
func (s *Store) Leave(sess *Session) {
	sess.Room.Coordinator.Leave(sess.Player.PlayerID)
	sess.Room.Broadcaster.Unsubscribe(sess.Player.PlayerID)
}

func (s *Store) sweepStale() {
	ticker := s.cfg.Clock.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.Chan():
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	now := s.cfg.Clock.Now()
	for _, room := range s.List() {
		if room.Coordinator.Seats() == 0 && now.Sub(room.CreatedAt) > s.cfg.StaleAfter {
			log.Debug().Str("room", room.Code).Msg("removing stale room")
			s.removeRoom(room.Code)
		}
	}
}

// Close stops the sweeper and every room, waiting for their coordinators
// to exit.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	for _, room := range s.List() {
		s.removeRoom(room.Code)
		<-room.Coordinator.Done()
	}
}
