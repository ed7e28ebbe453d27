// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poster lookup sources.
const (
	PosterSourceDetails     = "details"
	PosterSourceSearch      = "search"
	PosterSourcePlaceholder = "placeholder"
)

var (
	// PosterLookups counts resolved posters by the path that produced them.
	PosterLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movierec_poster_lookups_total",
		Help: "Poster lookups by the source that produced the URL.",
	}, []string{"source"})

	// TMDBRequests counts calls to the metadata service by endpoint and outcome.
	TMDBRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movierec_tmdb_requests_total",
		Help: "Requests to the TMDB API by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "movierec_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
	}, []string{"name"})

	// Recommendations counts ranking requests by outcome.
	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movierec_recommendations_total",
		Help: "Recommendation requests by outcome.",
	}, []string{"outcome"})

	// ChatTurns counts chat replies by intent.
	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movierec_chat_turns_total",
		Help: "Chat turns by detected intent.",
	}, []string{"intent"})
)
