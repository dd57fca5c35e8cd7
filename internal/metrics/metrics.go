package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Round outcomes used as label values.
const (
	OutcomeWin      = "win"
	OutcomeTie      = "tie"
	OutcomeNoWinner = "no_winner"
	OutcomeVoid     = "void"
)

// Recorder collects duel and connection metrics.
type Recorder interface {
	RoundResolved(outcome string)
	EarlyShot()
	Reaction(d time.Duration)
	RoomOpened()
	RoomClosed()
	PlayerConnected()
	PlayerDisconnected()
	LeaderboardSave(err error, d time.Duration)
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) RoundResolved(string)                 {}
func (NoOp) EarlyShot()                           {}
func (NoOp) Reaction(time.Duration)               {}
func (NoOp) RoomOpened()                          {}
func (NoOp) RoomClosed()                          {}
func (NoOp) PlayerConnected()                     {}
func (NoOp) PlayerDisconnected()                  {}
func (NoOp) LeaderboardSave(error, time.Duration) {}

type Prometheus struct {
	registry *prometheus.Registry

	rounds       *prometheus.CounterVec
	earlyShots   prometheus.Counter
	reaction     prometheus.Histogram
	activeRooms  prometheus.Gauge
	players      prometheus.Gauge
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
}

// NewPrometheus registers collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		rounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quickdraw",
			Name:      "rounds_resolved_total",
			Help:      "Rounds resolved, by outcome.",
		}, []string{"outcome"}),
		earlyShots: f.NewCounter(prometheus.CounterOpts{
			Namespace: "quickdraw",
			Name:      "early_shots_total",
			Help:      "Shots fired before the draw signal.",
		}),
		reaction: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quickdraw",
			Name:      "reaction_seconds",
			Help:      "Legitimate reaction times measured from the draw signal.",
			Buckets:   []float64{.1, .15, .2, .25, .3, .4, .5, .75, 1, 2},
		}),
		activeRooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "quickdraw",
			Name:      "active_rooms",
			Help:      "Rooms currently open.",
		}),
		players: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "quickdraw",
			Name:      "connected_players",
			Help:      "Players currently seated.",
		}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quickdraw",
			Name:      "leaderboard_saves_total",
			Help:      "Leaderboard saves, by status.",
		}, []string{"status"}),
		saveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quickdraw",
			Name:      "leaderboard_save_seconds",
			Help:      "Time spent writing the leaderboard document.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (p *Prometheus) RoundResolved(outcome string) { p.rounds.WithLabelValues(outcome).Inc() }
func (p *Prometheus) EarlyShot()                   { p.earlyShots.Inc() }
func (p *Prometheus) Reaction(d time.Duration)     { p.reaction.Observe(d.Seconds()) }
func (p *Prometheus) RoomOpened()                  { p.activeRooms.Inc() }
func (p *Prometheus) RoomClosed()                  { p.activeRooms.Dec() }
func (p *Prometheus) PlayerConnected()             { p.players.Inc() }
func (p *Prometheus) PlayerDisconnected()          { p.players.Dec() }

func (p *Prometheus) LeaderboardSave(err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.saves.WithLabelValues(status).Inc()
	p.saveDuration.Observe(d.Seconds())
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
