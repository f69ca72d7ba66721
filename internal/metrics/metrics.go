package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "booking_created_total",
			Help:      "Count of bookings created.",
		},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "booking_conflict_total",
			Help:      "Count of booking attempts rejected by resource conflicts.",
		},
		[]string{"resource"},
	)

	priceQuotes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "price_quote_total",
			Help:      "Count of standalone price quotes computed.",
		},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "availability_check_total",
			Help:      "Count of advisory availability checks by outcome.",
		},
		[]string{"outcome"},
	)

	waitlistJoined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "waitlist_joined_total",
			Help:      "Count of waitlist entries created.",
		},
	)

	waitlistNotified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "courtside",
			Name:      "waitlist_notified_total",
			Help:      "Count of waitlist entries promoted to notified.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated, bookingCancelled, bookingConflicts,
			priceQuotes, availabilityChecks,
			waitlistJoined, waitlistNotified,
		)
	})
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncBookingConflict(resource string) {
	bookingConflicts.WithLabelValues(resource).Inc()
}

func IncPriceQuote() {
	priceQuotes.Inc()
}

func IncAvailabilityCheck(available bool) {
	outcome := "available"
	if !available {
		outcome = "unavailable"
	}
	availabilityChecks.WithLabelValues(outcome).Inc()
}

func IncWaitlistJoined() {
	waitlistJoined.Inc()
}

func IncWaitlistNotified() {
	waitlistNotified.Inc()
}
