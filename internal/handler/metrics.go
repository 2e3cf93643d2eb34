package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyweaver_web_actions_total",
		Help: "Chat page actions by outcome.",
	}, []string{"action", "outcome"})
	mockAPIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyweaver_mock_api_requests_total",
		Help: "Requests to the mock story generation API.",
	}, []string{"endpoint", "status"})
	sessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyweaver_sessions_created_total",
		Help: "Browser sessions created at sign-in.",
	})
)
