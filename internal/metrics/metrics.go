package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"PaperCast/internal/domain"
)

const namespace = "papercast"

// RunMetrics exposes the statistics of the latest run as Prometheus gauges.
type RunMetrics struct {
	registry    *prometheus.Registry
	items       *prometheus.GaugeVec
	topicsFail  prometheus.Gauge
	successRate prometheus.Gauge
	duration    prometheus.Gauge
	lastRun     prometheus.Gauge
	runs        *prometheus.CounterVec
}

// NewRunMetrics registers the run collectors on a private registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_items",
			Help:      "Items handled by the last run, by stage.",
		}, []string{"stage"}),
		topicsFail: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_topics_failed",
			Help:      "Topics whose fetch failed in the last run.",
		}),
		successRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success_ratio",
			Help:      "Enriched over fetched for the last run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.items, m.topicsFail, m.successRate, m.duration, m.lastRun, m.runs)
	return m
}

// Observe records the statistics of a finished run. A non-nil runErr counts as an interrupted run.
func (m *RunMetrics) Observe(stats domain.RunStats, runErr error) {
	stages := map[string]int{
		"fetched":             stats.Fetched,
		"enriched":            stats.Enriched,
		"enrichment_failures": stats.EnrichmentFailures,
		"audio_generated":     stats.AudioGenerated,
		"synthesis_failures":  stats.SynthesisFailures,
		"persisted":           stats.Persisted,
		"storage_failures":    stats.StorageFailures,
	}
	for stage, n := range stages {
		m.items.WithLabelValues(stage).Set(float64(n))
	}
	m.topicsFail.Set(float64(stats.TopicsFailed))
	m.successRate.Set(stats.SuccessRate())
	m.duration.Set(stats.Duration.Seconds())
	if !stats.StartedAt.IsZero() {
		m.lastRun.Set(float64(stats.StartedAt.Unix()))
	}

	outcome := "completed"
	if runErr != nil {
		outcome = "interrupted"
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
