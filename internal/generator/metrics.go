package generator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyweaver_generation_requests_total",
			Help: "Total number of requests to the AI content provider.",
		},
		[]string{"provider", "model", "status"},
	)
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyweaver_generation_duration_seconds",
			Help:    "Histogram of AI content provider request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)
	generationTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyweaver_generation_tokens_total",
			Help: "Tokens reported by the AI provider, split by kind.",
		},
		[]string{"model", "kind"}, // kind: prompt | completion
	)
)
