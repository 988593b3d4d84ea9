package prerender

import (
	"time"

	"git.home.luguber.info/inful/prerender/internal/metrics"
	"git.home.luguber.info/inful/prerender/internal/output"
)

// Observer receives callbacks during a run. Page and file callbacks are
// invoked from worker goroutines.
type Observer interface {
	OnRunStart(r *Report)
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, d time.Duration, result StageResult)
	OnPageRendered(a *Artifact)
	OnFileWritten(f output.File)
	OnWarning(msg string)
	OnRunComplete(r *Report)
}

// NoopObserver ignores every callback.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(*Report)                                    {}
func (NoopObserver) OnStageStart(StageName)                                {}
func (NoopObserver) OnStageComplete(StageName, time.Duration, StageResult) {}
func (NoopObserver) OnPageRendered(*Artifact)                              {}
func (NoopObserver) OnFileWritten(output.File)                             {}
func (NoopObserver) OnWarning(string)                                      {}
func (NoopObserver) OnRunComplete(*Report)                                 {}

// RecorderObserver feeds a metrics.Recorder.
type RecorderObserver struct{ Rec metrics.Recorder }

func (RecorderObserver) OnRunStart(*Report)     {}
func (RecorderObserver) OnStageStart(StageName) {}

func (o RecorderObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult) {
	o.Rec.ObserveStageDuration(string(stage), d)
	o.Rec.IncStageResult(string(stage), metrics.ResultLabel(result))
}

func (o RecorderObserver) OnPageRendered(a *Artifact) {
	id := a.PageID
	if id == "" {
		id = "404"
	}
	o.Rec.IncPagesRendered(id)
}

func (o RecorderObserver) OnFileWritten(f output.File) { o.Rec.IncFilesWritten(string(f.Kind)) }
func (o RecorderObserver) OnWarning(string)            { o.Rec.IncWarnings() }

func (o RecorderObserver) OnRunComplete(r *Report) {
	o.Rec.ObserveRunDuration(r.Duration())
	o.Rec.IncRunOutcome(metrics.RunOutcomeLabel(r.Outcome))
}

// observers fans callbacks out to several observers.
type observers []Observer

func (obs observers) OnRunStart(r *Report) {
	for _, o := range obs {
		o.OnRunStart(r)
	}
}

func (obs observers) OnStageStart(s StageName) {
	for _, o := range obs {
		o.OnStageStart(s)
	}
}

func (obs observers) OnStageComplete(s StageName, d time.Duration, r StageResult) {
	for _, o := range obs {
		o.OnStageComplete(s, d, r)
	}
}

func (obs observers) OnPageRendered(a *Artifact) {
	for _, o := range obs {
		o.OnPageRendered(a)
	}
}

func (obs observers) OnFileWritten(f output.File) {
	for _, o := range obs {
		o.OnFileWritten(f)
	}
}

func (obs observers) OnWarning(msg string) {
	for _, o := range obs {
		o.OnWarning(msg)
	}
}

func (obs observers) OnRunComplete(r *Report) {
	for _, o := range obs {
		o.OnRunComplete(r)
	}
}
