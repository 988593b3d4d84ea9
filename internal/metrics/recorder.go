package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// RunOutcomeLabel is the label value for the run outcome counter.
type RunOutcomeLabel string

// Recorder defines observability hooks for prerender runs. Implementations
// must tolerate being called from multiple goroutines.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome RunOutcomeLabel) // success|warning|failed|canceled
	IncPagesRendered(pageID string)
	IncFilesWritten(kind string) // html|context
	IncWarnings()
	SetConcurrency(n int)
	AddInFlight(delta int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(RunOutcomeLabel)              {}
func (NoopRecorder) IncPagesRendered(string)                    {}
func (NoopRecorder) IncFilesWritten(string)                     {}
func (NoopRecorder) IncWarnings()                               {}
func (NoopRecorder) SetConcurrency(int)                         {}
func (NoopRecorder) AddInFlight(int)                            {}
