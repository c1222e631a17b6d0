package metrics

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

// Recorder collects per-run counters. Each run owns a private registry so a batch job can
// push exactly its own samples to a Pushgateway.
type Recorder struct {
	registry *prometheus.Registry
	runID    string

	written  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	graded   prometheus.Counter
	accuracy *prometheus.GaugeVec
}

// New creates a recorder tagged with a fresh run id.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runID:    uuid.NewString(),
		written: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_predictions_written_total",
				Help: "Forecasts written to the prediction ledger",
			},
			[]string{"model_version"},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_predictions_failed_total",
				Help: "Forecasts that could not be written to the prediction ledger",
			},
			[]string{"model_version"},
		),
		graded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "predictor_games_graded_total",
				Help: "Ledger rows that received actual scores",
			},
		),
		accuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predictor_last_run_accuracy",
				Help: "Winner accuracy percentage of the last grading or backtest run",
			},
			[]string{"mode"},
		),
	}
	r.registry.MustRegister(r.written, r.failed, r.graded, r.accuracy)
	return r
}

// RunID identifies this process run.
func (r *Recorder) RunID() string { return r.runID }

// Registry exposes the recorder's registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RecordPredictions adds the outcome of a prediction run.
func (r *Recorder) RecordPredictions(modelVersion string, written, failed int) {
	r.written.WithLabelValues(modelVersion).Add(float64(written))
	r.failed.WithLabelValues(modelVersion).Add(float64(failed))
}

// RecordGraded adds newly graded ledger rows.
func (r *Recorder) RecordGraded(n int64) {
	r.graded.Add(float64(n))
}

// RecordAccuracy sets the accuracy gauge for a mode such as "grade" or "evaluate".
func (r *Recorder) RecordAccuracy(mode string, accuracy float64) {
	r.accuracy.WithLabelValues(mode).Set(accuracy)
}

// Push sends the collected samples to a Pushgateway. An empty url is a no-op.
func (r *Recorder) Push(url, job string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(r.registry).
		Grouping("run_id", r.runID).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	log.Debug().Str("run_id", r.runID).Str("job", job).Msg("Pushed run metrics")
	return nil
}
