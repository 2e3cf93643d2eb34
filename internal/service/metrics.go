package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storiesStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyweaver_stories_started_total",
		Help: "Story start attempts by outcome.",
	}, []string{"outcome"})
	storyRevisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyweaver_story_revisions_total",
		Help: "Story revision attempts by source view and outcome.",
	}, []string{"view", "outcome"})
	draftsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyweaver_drafts_deleted_total",
		Help: "Total number of drafts deleted from history.",
	})
	rejectedInFlightTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyweaver_requests_rejected_in_flight_total",
		Help: "Story requests rejected because another one was still running for the session.",
	})
)

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
