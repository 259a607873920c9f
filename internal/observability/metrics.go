package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exercise_tracker",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status class",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exercise_tracker",
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exercise_tracker",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	UsersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "exercise_tracker",
			Name:      "users_created_total",
			Help:      "Users created",
		},
	)

	ExercisesLoggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "exercise_tracker",
			Name:      "exercises_logged_total",
			Help:      "Exercises logged",
		},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exercise_tracker",
			Name:      "store_errors_total",
			Help:      "Persistence errors by operation",
		},
		[]string{"op"},
	)
)
