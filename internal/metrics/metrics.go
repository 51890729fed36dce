// Package metrics exposes Prometheus collectors for the shopper service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks page fetches served from the cache without network I/O.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_cache_hits_total",
		Help: "The total number of page fetches served from the cache.",
	})
	// CacheMisses tracks page fetches that required a network request.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_cache_misses_total",
		Help: "The total number of page fetches that went to the network.",
	})
	// FetchErrors tracks network fetches that failed.
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_fetch_errors_total",
		Help: "The total number of failed network fetches.",
	})
	// OracleCalls tracks decisions delegated to the oracle.
	OracleCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_oracle_calls_total",
		Help: "The total number of decisions delegated to the oracle.",
	})
	// OracleFailures tracks oracle calls that returned an error.
	OracleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_oracle_failures_total",
		Help: "The total number of oracle calls that failed.",
	})
	// TasksStarted tracks tasks that entered the browse loop.
	TasksStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_tasks_started_total",
		Help: "The total number of tasks that started executing.",
	})
	// TasksFinished tracks tasks that reached a clean termination.
	TasksFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_tasks_finished_total",
		Help: "The total number of tasks that finished.",
	})
	// TasksFailed tracks tasks aborted by a fetch or persistence failure.
	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_tasks_failed_total",
		Help: "The total number of tasks aborted mid-run.",
	})
	// StepsRecorded tracks trace steps appended across all tasks.
	StepsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopagent_steps_recorded_total",
		Help: "The total number of trace steps appended.",
	})
)
