package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of an instruction.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics collects worker counters. A nil *Metrics is a no-op.
type Metrics struct {
	instructions   *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	pointsAwarded  *prometheus.CounterVec
	pointsRedeemed prometheus.Counter
	consumption    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenmove_instructions_total",
			Help: "Instructions processed by kind and outcome.",
		}, []string{"instruction", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenmove_rejections_total",
			Help: "Rejected instructions by error code.",
		}, []string{"code"}),
		pointsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenmove_points_awarded_total",
			Help: "Reward points credited by meter category.",
		}, []string{"category"}),
		pointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenmove_points_redeemed_total",
			Help: "Reward points debited by redemptions.",
		}),
		consumption: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenmove_consumption_reported_total",
			Help: "Accepted consumption quantity by meter category.",
		}, []string{"category"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greenmove_transition_duration_seconds",
			Help:    "Time spent executing a state transition.",
			Buckets: prometheus.DefBuckets,
		}, []string{"instruction"}),
	}
	reg.MustRegister(
		m.instructions,
		m.rejections,
		m.pointsAwarded,
		m.pointsRedeemed,
		m.consumption,
		m.duration,
	)
	return m
}

func (m *Metrics) ObserveInstruction(instruction, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	if instruction == "" {
		instruction = "unknown"
	}
	m.instructions.WithLabelValues(instruction, outcome).Inc()
	m.duration.WithLabelValues(instruction).Observe(took.Seconds())
}

func (m *Metrics) ObserveRejection(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.rejections.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveUsage(category string, quantity, points uint64) {
	if m == nil {
		return
	}
	m.consumption.WithLabelValues(category).Add(float64(quantity))
	m.pointsAwarded.WithLabelValues(category).Add(float64(points))
}

func (m *Metrics) ObserveRedemption(amount uint64) {
	if m == nil {
		return
	}
	m.pointsRedeemed.Add(float64(amount))
}
