// Package metrics registers the Prometheus collectors exported on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reservations counts reservation attempts.
	// Labels:
	//   - outcome: "created", "sold_out", "capacity_exceeded",
	//     "not_bookable", "not_found", "invalid", "error"
	Reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_reservations_total",
			Help: "Total number of ticket reservation attempts",
		},
		[]string{"outcome"},
	)

	// SeatsReserved counts seats on successfully created tickets.
	SeatsReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_seats_reserved_total",
			Help: "Total number of seats on created tickets",
		},
	)

	// StatusTransitions counts applied ticket status changes.
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_ticket_transitions_total",
			Help: "Total number of applied ticket status transitions",
		},
		[]string{"from", "to"},
	)

	// CheckIns counts check-in calls.
	// Labels:
	//   - outcome: "checked_in", "already_checked_in", "rejected"
	CheckIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_checkins_total",
			Help: "Total number of check-in attempts",
		},
		[]string{"outcome"},
	)

	// Logins counts staff login attempts.
	// Labels:
	//   - outcome: "success", "failure", "error"
	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_logins_total",
			Help: "Total number of staff login attempts",
		},
		[]string{"outcome"},
	)

	// PublishFailures counts broker publishes that failed.
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_publish_failures_total",
			Help: "Total number of failed broker publishes",
		},
		[]string{"routing_key"},
	)
)

// RecordReservation records one reservation attempt.  seats is added to
// SeatsReserved only for created tickets.
func RecordReservation(outcome string, seats int) {
	Reservations.WithLabelValues(outcome).Inc()
	if outcome == "created" && seats > 0 {
		SeatsReserved.Add(float64(seats))
	}
}
