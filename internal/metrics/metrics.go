// Package metrics collects Prometheus metrics for the bot and exposes them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the bot and scheduler report to.
type Recorder interface {
	RecordUpdate(kind string)
	RecordModeTransition(mode, action string)
	RecordCreated(kind string)
	RecordReminder(sent bool)
	RecordAIRequest(kind, outcome string, duration time.Duration)
	RecordRateLimited(kind string)
	RecordStateError()
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	updates         *prometheus.CounterVec
	modeTransitions *prometheus.CounterVec
	created         *prometheus.CounterVec
	reminders       *prometheus.CounterVec
	aiRequests      *prometheus.CounterVec
	aiLatency       *prometheus.HistogramVec
	rateLimited     *prometheus.CounterVec
	stateErrors     prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifedesk_updates_total",
			Help: "Telegram updates handled, by kind.",
		}, []string{"kind"}),
		modeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifedesk_mode_transitions_total",
			Help: "Input mode transitions, by mode and action.",
		}, []string{"mode", "action"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifedesk_records_created_total",
			Help: "Notes, todos, expenses and reminders created.",
		}, []string{"kind"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifedesk_reminders_dispatched_total",
			Help: "Reminder deliveries, by result.",
		}, []string{"result"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifedesk_ai_requests_total",
			Help: "Gemini requests, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifedesk_ai_latency_seconds",
			Help:    "Gemini request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifedesk_rate_limited_total",
			Help: "Requests rejected by the per-user limiter.",
		}, []string{"kind"}),
		stateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lifedesk_state_errors_total",
			Help: "Input mode storage failures.",
		}),
	}

	reg.MustRegister(
		c.updates,
		c.modeTransitions,
		c.created,
		c.reminders,
		c.aiRequests,
		c.aiLatency,
		c.rateLimited,
		c.stateErrors,
	)

	return c
}

// RecordUpdate counts one handled update.
func (c *Collector) RecordUpdate(kind string) {
	c.updates.WithLabelValues(kind).Inc()
}

// RecordModeTransition counts a mode being set, taken, cleared or expired.
func (c *Collector) RecordModeTransition(mode, action string) {
	c.modeTransitions.WithLabelValues(mode, action).Inc()
}

// RecordCreated counts a stored record.
func (c *Collector) RecordCreated(kind string) {
	c.created.WithLabelValues(kind).Inc()
}

// RecordReminder counts a delivery attempt.
func (c *Collector) RecordReminder(sent bool) {
	result := "failed"
	if sent {
		result = "sent"
	}
	c.reminders.WithLabelValues(result).Inc()
}

// RecordAIRequest counts a Gemini call and observes its latency.
func (c *Collector) RecordAIRequest(kind, outcome string, duration time.Duration) {
	c.aiRequests.WithLabelValues(kind, outcome).Inc()
	c.aiLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRateLimited counts a rejected request.
func (c *Collector) RecordRateLimited(kind string) {
	c.rateLimited.WithLabelValues(kind).Inc()
}

// RecordStateError counts an input mode storage failure.
func (c *Collector) RecordStateError() {
	c.stateErrors.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordUpdate(string) {}
func (Nop) RecordModeTransition(string, string) {}
func (Nop) RecordCreated(string) {}
func (Nop) RecordReminder(bool) {}
func (Nop) RecordAIRequest(string, string, time.Duration) {}
func (Nop) RecordRateLimited(string) {}
func (Nop) RecordStateError() {}
