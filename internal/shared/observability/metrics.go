package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stmigrate_parsing_seconds",
		Help:    "Time spent lexing and parsing one ST source file.",
		Buckets: prometheus.DefBuckets,
	})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stmigrate_extraction_seconds",
		Help:    "Time spent running one extractor over one file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"extractor"})

	FilesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stmigrate_files_analyzed_total",
		Help: "Total number of ST source files analyzed.",
	})

	POUsParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stmigrate_pous_parsed_total",
		Help: "Total number of program organization units parsed.",
	})

	ParseIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stmigrate_parse_issues_total",
		Help: "Total number of parse errors and warnings recorded.",
	}, []string{"severity"})

	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stmigrate_findings_total",
		Help: "Total number of extraction findings by kind.",
	}, []string{"kind"})

	SafetyInterlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stmigrate_safety_interlocks_total",
		Help: "Total number of safety interlocks detected by type.",
	}, []string{"type"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stmigrate_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
