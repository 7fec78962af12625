package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VoteOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krathong_vote_outcomes_total",
			Help: "Vote attempts by outcome.",
		}, []string{"outcome"},
	)
	AdminActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krathong_admin_actions_total",
			Help: "Administrative operations by action and result.",
		}, []string{"action", "result"},
	)
	LedgerConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krathong_ledger_conflicts_total",
			Help: "Optimistic transactions aborted because a watched key changed.",
		}, []string{"op"},
	)
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krathong_uploads_total",
			Help: "Image uploads by kind and result.",
		}, []string{"kind", "result"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Tracks the latencies for HTTP requests.",
		}, []string{"method", "route", "code"},
	)
)
