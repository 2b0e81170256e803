package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	files         *prom.CounterVec
	macros        *prom.CounterVec
	buildDuration prom.Histogram
}

// NewPrometheusRecorder constructs and registers the metrics on reg, or on
// a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		files: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mori",
			Name:      "files_processed_total",
			Help:      "Markdown files processed, by pipeline mode",
		}, []string{"mode"}),
		macros: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mori",
			Name:      "macros_total",
			Help:      "Macros resolved, by expansion pass and result",
		}, []string{"pass", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "mori",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(pr.files, pr.macros, pr.buildDuration)
	return pr
}

// Registry returns the registry the metrics live on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

func (p *PrometheusRecorder) IncFile(mode string) {
	p.files.WithLabelValues(mode).Inc()
}

func (p *PrometheusRecorder) AddMacros(pass, result string, n int) {
	if n <= 0 {
		return
	}
	p.macros.WithLabelValues(pass, result).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

// WriteTextfile writes the current values to path in the Prometheus text
// format. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

var _ Recorder = (*PrometheusRecorder)(nil)
var _ Recorder = NoopRecorder{}
