package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "strata_parse_seconds",
		Help:    "Time spent parsing and lowering one source file.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "strata_phase_seconds",
		Help:    "Time spent in each analysis phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	FilesAnalysed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_files_analysed_total",
		Help: "Total number of source files analysed.",
	})

	IssuesReported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_issues_total",
		Help: "Issues reported after ignore rules and baseline, by identifier and severity.",
	}, []string{"identifier", "severity"})

	LastRunIssues = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "strata_last_run_issues",
		Help: "Number of issues reported by the most recent run.",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_runs_total",
		Help: "Analysis runs by outcome (clean, issues, failed).",
	}, []string{"outcome"})

	SymbolsCollected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "strata_symbols",
		Help: "User-declared symbols in the most recent symbol table, by kind.",
	}, []string{"kind"})

	ParsersLeased = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "strata_parsers_leased",
		Help: "Tree-sitter parsers currently leased from the pool.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatchRerunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_watch_reruns_total",
		Help: "Watch-mode re-runs, split into executed and throttled.",
	}, []string{"result"})

	HistoryWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_history_write_errors_total",
		Help: "Failed attempts to persist a run to the history database.",
	})
)
