package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	addonsTotal     *prometheus.CounterVec
	recoveriesTotal *prometheus.CounterVec
	tokenRefreshes  prometheus.Counter
	upstreamLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keepitcut",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Total booking requests by outcome",
		}, []string{"outcome"}),
		addonsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keepitcut",
			Subsystem: "booking",
			Name:      "addons_total",
			Help:      "Total add-on services by outcome",
		}, []string{"outcome"}),
		recoveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keepitcut",
			Subsystem: "booking",
			Name:      "auto_recoveries_total",
			Help:      "Total stale-appointment auto-recovery attempts by outcome",
		}, []string{"outcome"}),
		tokenRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keepitcut",
			Subsystem: "meevo",
			Name:      "token_refreshes_total",
			Help:      "Total Meevo access token refreshes",
		}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "keepitcut",
			Subsystem: "meevo",
			Name:      "request_latency_seconds",
			Help:      "Latency of Meevo API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.addonsTotal, m.recoveriesTotal, m.tokenRefreshes, m.upstreamLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveAddon(outcome string) {
	if m == nil {
		return
	}
	m.addonsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveRecovery(outcome string) {
	if m == nil {
		return
	}
	m.recoveriesTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveTokenRefresh() {
	if m == nil {
		return
	}
	m.tokenRefreshes.Inc()
}

func (m *BookingMetrics) ObserveUpstreamLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(operation).Observe(seconds)
}
