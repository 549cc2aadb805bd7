package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"nimas-seat-alert/internal/models"
)

// Metrics holds the gauges of one run. A run is too short to be scraped,
// so the registry is pushed to a Pushgateway before exit. The watched
// identifier is carried by the push grouping key, not by metric labels.
type Metrics struct {
	registry    *prometheus.Registry
	available   *prometheus.GaugeVec
	threshold   prometheus.Gauge
	success     prometheus.Gauge
	notified    prometheus.Gauge
	lastSuccess prometheus.Gauge
	lastFailure *prometheus.GaugeVec
}

// NewMetrics creates the run gauges on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seat_alert_available_seats",
			Help: "Seats available for the watched course at the last successful check.",
		}, []string{"backend"}),
		threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seat_alert_threshold_seats",
			Help: "Alert threshold for the watched course.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seat_alert_last_run_success",
			Help: "1 if the last run completed, 0 if it failed.",
		}),
		notified: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seat_alert_notified",
			Help: "1 if the last run sent an alert.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seat_alert_last_success_timestamp_seconds",
			Help: "Unix time of the last completed run.",
		}),
		lastFailure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "seat_alert_last_failure_timestamp_seconds",
			Help: "Unix time of the last failed run, by error class.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(m.available, m.threshold, m.success, m.notified, m.lastSuccess, m.lastFailure)
	return m
}

// ObserveCheck records a completed run
func (m *Metrics) ObserveCheck(c models.Check) {
	m.available.WithLabelValues(string(c.Backend)).Set(float64(c.Available))
	m.threshold.Set(float64(c.Threshold))
	m.success.Set(1)
	if c.Notified {
		m.notified.Set(1)
	} else {
		m.notified.Set(0)
	}
	m.lastSuccess.Set(float64(c.CheckedAt.Unix()))
}

// ObserveFailure records a failed run
func (m *Metrics) ObserveFailure(err error, unix int64) {
	m.success.Set(0)
	m.lastFailure.WithLabelValues(models.ErrorClass(err)).Set(float64(unix))
}

// Push sends the registry to the Pushgateway at url under job, grouped by
// identifier so several watchers can share one gateway.
func (m *Metrics) Push(ctx context.Context, url, job, identifier string, client *http.Client) error {
	p := push.New(url, job).
		Gatherer(m.registry).
		Grouping("identifier", identifier)
	if client != nil {
		p = p.Client(client)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
