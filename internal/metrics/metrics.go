// Package metrics holds the prometheus collectors for generation, issuance and
// grading. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quizgen"

type Metrics struct {
	dispatch           *prometheus.CounterVec
	webhook            *prometheus.CounterVec
	tokensIssued       *prometheus.CounterVec
	notificationFailed prometheus.Counter
	attemptsSubmitted  *prometheus.CounterVec
	scorePercent       prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dispatch: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Generation dispatch attempts by result.",
		}, []string{"result"}),
		webhook: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_total",
			Help:      "Worker webhook deliveries by outcome.",
		}, []string{"outcome"}),
		tokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Access tokens handed out, split by whether an active token was reused.",
		}, []string{"reused"}),
		notificationFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Invitation emails that could not be sent.",
		}),
		attemptsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_submitted_total",
			Help:      "Graded attempts by pass/fail.",
		}, []string{"passed"}),
		scorePercent: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_percent",
			Help:      "Distribution of attempt percentages.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
	}
}

func (m *Metrics) Dispatch(result string) {
	if m == nil {
		return
	}
	m.dispatch.WithLabelValues(result).Inc()
}

func (m *Metrics) Webhook(outcome string) {
	if m == nil {
		return
	}
	m.webhook.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TokenIssued(reused bool) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(strconv.FormatBool(reused)).Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.notificationFailed.Inc()
}

func (m *Metrics) AttemptSubmitted(passed bool, percent int) {
	if m == nil {
		return
	}
	m.attemptsSubmitted.WithLabelValues(strconv.FormatBool(passed)).Inc()
	m.scorePercent.Observe(float64(percent))
}
