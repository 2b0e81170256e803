// Package metrics records build statistics.
//
// Components receive a Recorder; NoopRecorder is the default so callers
// never need nil checks. The Prometheus implementation is activated when a
// metrics file is configured and is exported in the text exposition format
// after each build, for pickup by a node_exporter textfile collector.
package metrics

import "time"

// Pass names used as label values.
const (
	PassGenerator = "generator"
	PassScript    = "script"
)

// Result label values.
const (
	ResultExpanded    = "expanded"
	ResultFailed      = "failed"
	ResultPassthrough = "passthrough"
)

// Recorder defines the build observability hooks.
type Recorder interface {
	IncFile(mode string)
	AddMacros(pass, result string, n int)
	ObserveBuildDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncFile(string)                     {}
func (NoopRecorder) AddMacros(string, string, int)      {}
func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
