package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"quickdraw/internal/events"
	"quickdraw/internal/leaderboard"
	"quickdraw/internal/rooms"
	"quickdraw/internal/wshub"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxLeaderboardLimit = 100
	maxRoundsLimit      = 100
)

// handleWS seats the caller before upgrading so a full or unknown room is
// refused with a plain HTTP status.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := q.Get("username")
	rawCode := q.Get("room")
	connID := uuid.New().String()

	var sess *rooms.Session
	var err error
	if strings.TrimSpace(rawCode) == "" {
		sess, err = s.Rooms.JoinOrCreate(r.Context(), connID, username)
	} else if code, ok := rooms.NormalizeCode(rawCode); ok {
		sess, err = s.Rooms.JoinRoom(r.Context(), code, connID, username)
	} else {
		err = rooms.ErrRoomNotFound
	}
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room not found")
		return
	case errors.Is(err, rooms.ErrRoomFull):
		writeError(w, http.StatusConflict, "room is full")
		return
	case err != nil:
		log.Error().Err(err).Msg("joining room")
		writeError(w, http.StatusInternalServerError, "could not join room")
		return
	}

	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		log.Warn().Err(err).Str("room", sess.Room.Code).Msg("websocket upgrade failed")
		s.Rooms.Leave(sess)
		return
	}

	client := &wshub.Client{ID: connID, Room: sess.Room.Code, Conn: conn, Send: sess.Updates}
	s.Hub.Register(client)
	log.Info().Str("room", sess.Room.Code).Str("client", connID).Str("username", sess.Player.Username).Msg("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	go func() {
		client.WritePump(ctx)
		cancel()
	}()

	coord := sess.Room.Coordinator
	err = client.ReadPump(ctx, func(msg events.ClientMessage) {
		switch msg.Type {
		case events.TypeReady:
			coord.Ready(connID)
		case events.TypeShoot:
			coord.Shoot(connID)
		default:
			log.Debug().Str("client", connID).Str("type", msg.Type).Msg("unknown message type")
		}
	})
	if err != nil {
		log.Debug().Err(err).Str("client", connID).Msg("read loop ended")
	}
	cancel()

	s.Hub.Unregister(connID)
	s.Rooms.Leave(sess)
	conn.Close(websocket.StatusNormalClosure, "")
	log.Info().Str("room", sess.Room.Code).Str("client", connID).Msg("client disconnected")
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, leaderboard.DefaultLimit, maxLeaderboardLimit)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Leaderboard.TopN(limit))
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	list := s.Rooms.List()
	infos := make([]rooms.Info, 0, len(list))
	for _, room := range list {
		infos = append(infos, room.Info())
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.Rooms.Create()
	if err != nil {
		log.Error().Err(err).Msg("creating room")
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	writeJSON(w, http.StatusCreated, room.Info())
}

func (s *Server) handleRecentRounds(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "round history requires a database")
		return
	}
	limit, ok := parseLimit(w, r, 20, maxRoundsLimit)
	if !ok {
		return
	}
	rounds, err := s.DB.RecentRounds(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("listing rounds")
		writeError(w, http.StatusInternalServerError, "failed to list rounds")
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":      "ok",
		"rooms":       s.Rooms.Count(),
		"connections": s.Hub.Count(),
		"leaderboard": s.Leaderboard.Len(),
		"database":    "disabled",
	}
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}
	writeJSON(w, status, body)
}

// parseLimit reads ?limit=N, falling back to def and capping at ceiling. It
// writes a 400 and reports false on a malformed value.
func parseLimit(w http.ResponseWriter, r *http.Request, def, ceiling int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	if n == 0 {
		return def, true
	}
	if n > ceiling {
		n = ceiling
	}
	return n, true
}
