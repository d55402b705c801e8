// Package metrics holds the Prometheus instruments for the message pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the set of counters and histograms recorded by the router.
type Metrics struct {
	Registry *prometheus.Registry

	Inbound        *prometheus.CounterVec // outcome: handled, duplicate, busy, error
	Replies        prometheus.Counter
	HandleLatency  prometheus.Histogram
	NLPDecisions   *prometheus.CounterVec // intent, decision
	Confirmations  *prometheus.CounterVec // result: yes, no, unknown, expired
	QuickActions   *prometheus.CounterVec // result
	RemindersFired prometheus.Counter
	StoreErrors    *prometheus.CounterVec // op
}

// New registers all instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Inbound: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_inbound_messages_total",
			Help: "Inbound chat messages by admission outcome",
		}, []string{"outcome"}),
		Replies: f.NewCounter(prometheus.CounterOpts{
			Name: "agenda_replies_total",
			Help: "Outbound replies sent",
		}),
		HandleLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "agenda_handle_duration_seconds",
			Help:    "Time spent handling one inbound message",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		NLPDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_nlp_decisions_total",
			Help: "Classifier results by intent and policy decision",
		}, []string{"intent", "decision"}),
		Confirmations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_confirmations_total",
			Help: "Confirmation replies by interpreted result",
		}, []string{"result"}),
		QuickActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_quick_actions_total",
			Help: "Quick-action replies by result",
		}, []string{"result"}),
		RemindersFired: f.NewCounter(prometheus.CounterOpts{
			Name: "agenda_reminders_fired_total",
			Help: "Reminder notifications delivered",
		}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_store_errors_total",
			Help: "Ephemeral store failures by operation",
		}, []string{"op"}),
	}
}
