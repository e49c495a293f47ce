package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	modulesGenerated prom.Counter
	modulesFailed    prom.Counter
	modulesSkipped   prom.Counter
	attempts         prom.Histogram
	buildDuration    prom.Histogram
}

// NewPrometheusRecorder constructs and registers the build metrics on reg
// (nil uses the default registerer).
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		modulesGenerated: prom.NewCounter(prom.CounterOpts{
			Name: "jaunt_modules_generated_total",
			Help: "Modules successfully generated.",
		}),
		modulesFailed: prom.NewCounter(prom.CounterOpts{
			Name: "jaunt_modules_failed_total",
			Help: "Modules that failed generation or inherited a dependency failure.",
		}),
		modulesSkipped: prom.NewCounter(prom.CounterOpts{
			Name: "jaunt_modules_skipped_total",
			Help: "Modules skipped because their artifact was fresh.",
		}),
		attempts: prom.NewHistogram(prom.HistogramOpts{
			Name:    "jaunt_generation_attempts",
			Help:    "Generate-validate attempts consumed per module.",
			Buckets: []float64{1, 2, 3, 4},
		}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Name:    "jaunt_build_duration_seconds",
			Help:    "Wall-clock duration of one scheduler run.",
			Buckets: prom.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	reg.MustRegister(r.modulesGenerated, r.modulesFailed, r.modulesSkipped, r.attempts, r.buildDuration)
	return r
}

func (r *PrometheusRecorder) ModuleGenerated()       { r.modulesGenerated.Inc() }
func (r *PrometheusRecorder) ModuleFailed()          { r.modulesFailed.Inc() }
func (r *PrometheusRecorder) ModuleSkipped()         { r.modulesSkipped.Inc() }
func (r *PrometheusRecorder) GenerationAttempts(n int) { r.attempts.Observe(float64(n)) }
func (r *PrometheusRecorder) BuildCompleted(d time.Duration) {
	r.buildDuration.Observe(d.Seconds())
}
