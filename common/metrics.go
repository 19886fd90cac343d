package common

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Recorder records pipeline metrics in Prometheus. A nil *Recorder is a no-op.
type Recorder struct {
	reg             *prom.Registry
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	runOutcomes     *prom.CounterVec
	pageCaptures    *prom.CounterVec
	segmentDuration prom.Histogram
}

// NewRecorder creates and registers the pipeline metrics on reg (a fresh registry when nil).
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "highlight",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "highlight",
			Name:      "stage_results_total",
			Help:      "Stage results by outcome",
		}, []string{"stage", "result"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "highlight",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status and failing stage",
		}, []string{"outcome", "stage"}),
		pageCaptures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "highlight",
			Name:      "page_captures_total",
			Help:      "Per-page capture results",
		}, []string{"result"}),
		segmentDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "highlight",
			Name:      "segment_encode_seconds",
			Help:      "Duration of individual segment encodes",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(r.stageDuration, r.stageResults, r.runOutcomes, r.pageCaptures, r.segmentDuration)
	return r
}

func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	result := ResultSuccess
	if err != nil {
		result = ResultFailed
	}
	r.stageResults.WithLabelValues(stage, result).Inc()
}

func (r *Recorder) IncRunOutcome(err error) {
	if r == nil {
		return
	}
	if err == nil {
		r.runOutcomes.WithLabelValues(ResultSuccess, "").Inc()
		return
	}
	r.runOutcomes.WithLabelValues(ResultFailed, StageOf(err)).Inc()
}

func (r *Recorder) IncPageCapture(result string) {
	if r == nil {
		return
	}
	r.pageCaptures.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveSegment(d time.Duration) {
	if r == nil {
		return
	}
	r.segmentDuration.Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
