package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bigman",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	appointmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bigman",
			Name:      "appointments_created_total",
			Help:      "Successfully reserved appointments.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bigman",
			Name:      "slot_conflicts_total",
			Help:      "Reservation attempts rejected because the slot was already taken.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bigman",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions by target status.",
		},
		[]string{"status"},
	)

	wizardSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bigman",
			Name:      "wizard_sessions_active",
			Help:      "Booking wizard sessions currently stored.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			appointmentsCreated,
			slotConflicts,
			statusTransitions,
			wizardSessions,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncAppointmentCreated() {
	appointmentsCreated.Inc()
}

func IncSlotConflict() {
	slotConflicts.Inc()
}

func IncStatusTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

func SetActiveSessions(n float64) {
	wizardSessions.Set(n)
}
