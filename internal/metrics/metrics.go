package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Wyniki przetworzenia pozycji
const (
	OutcomeNew        = "new"
	OutcomeUpdated    = "updated"
	OutcomeSkipped    = "skipped"
	OutcomeNotFound   = "not_found"
	OutcomeFetchError = "fetch_error"
	OutcomeOverflow   = "slot_overflow"
)

type Registry struct {
	reg           *prometheus.Registry
	Items         *prometheus.CounterVec
	Changes       *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	LastSuccess   prometheus.Gauge
	RunFailures   prometheus.Counter
	CatalogRows   prometheus.Gauge
	ChangelogSize prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pimsync_items_total",
		Help: "Processed input identifiers by outcome.",
	}, []string{"outcome"})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pimsync_changes_total",
		Help: "Change-log entries by change type.",
	}, []string{"type"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pimsync_run_duration_seconds",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})
	last := prometheus.NewGauge(prometheus.GaugeOpts{Name: "pimsync_last_success_timestamp_seconds"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "pimsync_run_failures_total"})
	rows := prometheus.NewGauge(prometheus.GaugeOpts{Name: "pimsync_catalog_rows"})
	logSize := prometheus.NewGauge(prometheus.GaugeOpts{Name: "pimsync_changelog_entries"})

	r.MustRegister(items, changes, duration, last, failures, rows, logSize)
	return &Registry{
		reg:           r,
		Items:         items,
		Changes:       changes,
		RunDuration:   duration,
		LastSuccess:   last,
		RunFailures:   failures,
		CatalogRows:   rows,
		ChangelogSize: logSize,
	}
}

func (r *Registry) Item(outcome string) { r.Items.WithLabelValues(outcome).Inc() }

func (r *Registry) Change(changeType string) { r.Changes.WithLabelValues(changeType).Inc() }

// RunFinished – czas przebiegu; przy sukcesie też znacznik ostatniego udanego.
func (r *Registry) RunFinished(started time.Time, rows, logEntries int, err error) {
	r.RunDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		r.RunFailures.Inc()
		return
	}
	r.LastSuccess.Set(float64(time.Now().Unix()))
	r.CatalogRows.Set(float64(rows))
	r.ChangelogSize.Set(float64(logEntries))
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// WriteTextfile – eksport dla node_exporter (textfile collector)
func (r *Registry) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
