package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "prompt_history"

var (
	revisionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "revisions_created_total",
		Help:      "Revisions appended, by origin (edit, rollback, merge).",
	}, []string{"origin"})

	branchOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "branch_operations_total",
		Help:      "Branch registry mutations, by operation and result.",
	}, []string{"operation", "result"})

	mergeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "merge_attempts_total",
		Help:      "Merge attempts, by result (fast_forward, conflict, error).",
	}, []string{"result"})

	activeBranchRecoveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "active_branch_recoveries_total",
		Help:      "Reads that found no flagged active branch and fell back to the default.",
	})

	diffDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "diff_duration_seconds",
		Help:      "Time spent computing revision diffs.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
