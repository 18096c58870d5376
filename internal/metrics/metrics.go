package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tictactoe"

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	GamesCreated  prometheus.Counter
	GamesFinished *prometheus.CounterVec
	Moves         *prometheus.CounterVec
	QueueWaiting  prometheus.Gauge
	QueuePending  prometheus.Gauge
}

func New(registerer prometheus.Registerer) *Metrics {
	that := &Metrics{
		GamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Game sessions created by matchmaking.",
		}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Finished game sessions by outcome.",
		}, []string{"outcome"}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Move attempts by result.",
		}, []string{"result"}),
		QueueWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matchmaking_waiting",
			Help:      "Players waiting for an opponent.",
		}),
		QueuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matchmaking_pending",
			Help:      "Players paired and waiting for acceptance.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			that.GamesCreated,
			that.GamesFinished,
			that.Moves,
			that.QueueWaiting,
			that.QueuePending,
		)
	}

	return that
}

func (that *Metrics) GameCreated() {
	if that == nil {
		return
	}
	that.GamesCreated.Inc()
}

func (that *Metrics) GameFinished(outcome string) {
	if that == nil {
		return
	}
	that.GamesFinished.WithLabelValues(outcome).Inc()
}

// Move counts a move attempt; result is "ok" or the rejection reason.
func (that *Metrics) Move(result string) {
	if that == nil {
		return
	}
	that.Moves.WithLabelValues(result).Inc()
}

func (that *Metrics) Queue(waiting, pending int) {
	if that == nil {
		return
	}
	that.QueueWaiting.Set(float64(waiting))
	that.QueuePending.Set(float64(pending))
}
