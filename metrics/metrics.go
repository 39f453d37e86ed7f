package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// OrdersCreated counts successfully created orders by payment method.
	OrdersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		},
		[]string{"payment_method"},
	)

	// InsufficientStock counts checkouts rejected because a line item
	// could not be reserved.
	InsufficientStock = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_insufficient_stock_total",
			Help: "Total number of checkouts rejected for insufficient stock",
		},
	)

	// PaymentVerifications counts gateway signature checks by outcome.
	PaymentVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Total number of gateway signature verifications",
		},
		[]string{"outcome"},
	)

	// ReturnEvents counts return lifecycle events (requested, approved, rejected).
	ReturnEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_return_events_total",
			Help: "Total number of return workflow events",
		},
		[]string{"event"},
	)
)

// Register registers all collectors on the default registry.
func Register() {
	prometheus.MustRegister(
		OrdersCreated,
		InsufficientStock,
		PaymentVerifications,
		ReturnEvents,
	)
}
