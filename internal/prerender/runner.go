package prerender

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/prerender/internal/logfields"
)

// runStages executes stages in order, recording timing and stopping on the
// first error.
func runStages(ctx context.Context, rs *runState, defs []stageDef) error {
	for _, st := range defs {
		if err := ctx.Err(); err != nil {
			se := &StageError{Kind: StageErrorCanceled, Stage: st.name, Err: err}
			rs.report.recordStage(st.name, 0, StageResultCanceled, se)
			rs.observer.OnStageComplete(st.name, 0, StageResultCanceled)
			return se
		}

		rs.observer.OnStageStart(st.name)
		warnsBefore := rs.warner.count()
		t0 := time.Now()
		err := st.fn(ctx, rs)
		dur := time.Since(t0)

		result := StageResultSuccess
		var se *StageError
		switch {
		case err != nil && (stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded)):
			result = StageResultCanceled
			se = &StageError{Kind: StageErrorCanceled, Stage: st.name, Err: err}
		case err != nil:
			result = StageResultFatal
			se = &StageError{Kind: StageErrorFatal, Stage: st.name, Err: err}
		case rs.warner.count() > warnsBefore:
			result = StageResultWarning
		}
		rs.report.recordStage(st.name, dur, result, se)
		rs.observer.OnStageComplete(st.name, dur, result)
		rs.logger.Debug("Stage complete",
			logfields.Stage(string(st.name)),
			logfields.DurationMS(float64(dur.Microseconds())/1000),
			slog.String("result", string(result)))

		if se != nil {
			return se
		}
	}
	return nil
}
