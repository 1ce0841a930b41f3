// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Occupations counts successful slot claims.
	Occupations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slotshare_occupations_total",
		Help: "Successful slot occupations.",
	}, []string{"slot_id"})

	// Releases counts closed occupations by end reason.
	Releases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slotshare_releases_total",
		Help: "Closed occupations, labelled by end reason.",
	}, []string{"slot_id", "reason"})

	// QueueJoins counts successful queue joins (idempotent re-joins excluded).
	QueueJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slotshare_queue_joins_total",
		Help: "New queue entries created.",
	}, []string{"slot_id"})

	// BookingConflicts counts booking attempts rejected for overlap.
	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slotshare_booking_conflicts_total",
		Help: "Booking requests rejected because of a time overlap.",
	})

	// WSClients tracks currently connected WebSocket observers.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slotshare_ws_clients",
		Help: "Currently connected WebSocket clients.",
	})

	// PushNotifications counts outbound web push sends by outcome.
	PushNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slotshare_push_notifications_total",
		Help: "Web push notification sends, labelled by outcome.",
	}, []string{"outcome"})
)
