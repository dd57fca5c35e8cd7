package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"quickdraw/internal/db"
	"quickdraw/internal/leaderboard"
	"quickdraw/internal/metrics"
	"quickdraw/internal/rooms"
	"quickdraw/internal/wshub"

	"github.com/coder/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	Rooms          *rooms.Store
	Leaderboard    *leaderboard.Store
	Hub            *wshub.Hub
	Metrics        *metrics.Prometheus
	DB             *db.DB // nil if no database configured
	AllowedOrigins []string
}

// Handler returns the HTTP surface wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /rooms", s.handleListRooms)
	mux.HandleFunc("POST /rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /rounds", s.handleRecentRounds)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	})
	return c.Handler(mux)
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, origin := range s.AllowedOrigins {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			opts.OriginPatterns = append(opts.OriginPatterns, u.Host)
		} else {
			opts.OriginPatterns = append(opts.OriginPatterns, strings.TrimSuffix(origin, "/"))
		}
	}
	return opts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("writing response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
