// Package metrics provides optional prometheus instrumentation for the
// bridge: send counts by notifier and outcome, and send durations.
//
// A nil *Metrics is a valid no-op, so instrumentation stays opt-in.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loonghao/notify-bridge-go/errors"
)

// Metrics holds the bridge's prometheus collectors.
type Metrics struct {
	sendsTotal   *prometheus.CounterVec
	sendDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil registerer
// uses the default prometheus registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifybridge",
			Name:      "sends_total",
			Help:      "Notification send attempts by notifier and result.",
		}, []string{"notifier", "result"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notifybridge",
			Name:      "send_duration_seconds",
			Help:      "Notification send duration by notifier.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"notifier"}),
	}
	for _, c := range []prometheus.Collector{m.sendsTotal, m.sendDuration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Newf("failed to register collector: %s", err).
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return m, nil
}

// ObserveSend records one send attempt.
func (m *Metrics) ObserveSend(notifierName string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(notifierName, resultLabel(err)).Inc()
	m.sendDuration.WithLabelValues(notifierName).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if c := errors.CategoryOf(err); c != "" {
		return string(c)
	}
	return "error"
}
