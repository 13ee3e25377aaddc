package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway grouping job
const JobName = "airdrop_monitor"

// Metrics holds the monitor's counters on a private registry. The process
// is short-lived, so values are pushed to a Pushgateway after each pass
// instead of being scraped. All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	EventsSeen    prometheus.Counter
	EventsNew     prometheus.Counter
	EventsExpired prometheus.Counter
	Changes       *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Reminders     prometheus.Counter
	PassDuration  prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EventsSeen: f.NewCounter(prometheus.CounterOpts{
			Namespace: "airdrop",
			Name:      "events_seen_total",
			Help:      "Events for today that survived the expiry filter",
		}),
		EventsNew: f.NewCounter(prometheus.CounterOpts{
			Namespace: "airdrop",
			Name:      "events_new_total",
			Help:      "Events inserted for the first time",
		}),
		EventsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: "airdrop",
			Name:      "events_expired_total",
			Help:      "Events dropped because their start time has passed",
		}),
		Changes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airdrop",
			Name:      "changes_total",
			Help:      "Detected notable field changes",
		}, []string{"type"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airdrop",
			Name:      "notifications_total",
			Help:      "Notification attempts by tag and result",
		}, []string{"tag", "result"}),
		Reminders: f.NewCounter(prometheus.CounterOpts{
			Namespace: "airdrop",
			Name:      "reminders_total",
			Help:      "Countdown reminders dispatched",
		}),
		PassDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "airdrop",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of the last monitoring pass",
		}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) EventSeen() {
	if m != nil {
		m.EventsSeen.Inc()
	}
}

func (m *Metrics) EventNew() {
	if m != nil {
		m.EventsNew.Inc()
	}
}

func (m *Metrics) EventExpired() {
	if m != nil {
		m.EventsExpired.Inc()
	}
}

func (m *Metrics) ChangeDetected(changeType string) {
	if m != nil {
		m.Changes.WithLabelValues(changeType).Inc()
	}
}

func (m *Metrics) ReminderSent() {
	if m != nil {
		m.Reminders.Inc()
	}
}

func (m *Metrics) ObservePass(d time.Duration) {
	if m != nil {
		m.PassDuration.Set(d.Seconds())
	}
}

// NotificationSent records one delivery attempt
func (m *Metrics) NotificationSent(tag string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.Notifications.WithLabelValues(tag, result).Inc()
}

// Push sends the registry to a Pushgateway. A blank url is a no-op.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, JobName).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
