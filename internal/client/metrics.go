package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "storyweaver_gateway_request_duration_seconds",
	Help:    "Duration of requests to the StoryWeaver backend.",
	Buckets: prometheus.DefBuckets,
}, []string{"operation", "outcome"})
