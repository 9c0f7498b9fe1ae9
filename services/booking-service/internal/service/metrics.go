package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

// Metrics is safe to use as a nil pointer.
type Metrics struct {
	outcomes   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	violations prometheus.Gauge
	dangling   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "operations_total",
			Help:      "Booking core operations by outcome.",
		}, []string{"op", "result"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Name:      "operation_duration_seconds",
			Help:      "Latency of booking core operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		violations: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "booking",
			Name:      "consistency_violations",
			Help:      "Slot/booking mismatches found by the last audit.",
		}),
		dangling: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "booking",
			Name:      "dangling_bookings",
			Help:      "Active bookings whose ground was deleted, as of the last audit.",
		}),
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(domain.KindOf(err))
		if result == "" {
			result = string(domain.KindStorageFailure)
		}
	}
	m.outcomes.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) audited(r *AuditReport) {
	if m == nil {
		return
	}
	m.violations.Set(float64(len(r.Violations)))
	m.dangling.Set(float64(len(r.Dangling)))
}
