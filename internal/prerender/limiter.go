package prerender

import (
	"context"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/prerender/internal/metrics"
)

// limiter bounds the number of tasks in flight across the whole run.
type limiter struct {
	sem chan struct{}
	rec metrics.Recorder
}

func newLimiter(n int, rec metrics.Recorder) *limiter {
	if n < 1 {
		n = 1
	}
	rec.SetConcurrency(n)
	return &limiter{sem: make(chan struct{}, n), rec: rec}
}

func (l *limiter) size() int { return cap(l.sem) }

// do runs fn once a slot is free.
func (l *limiter) do(ctx context.Context, fn func(context.Context) error) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	l.rec.AddInFlight(1)
	defer func() {
		l.rec.AddInFlight(-1)
		<-l.sem
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// forEach runs fn for every item through l and waits for all of them. The
// first error cancels the tasks that have not started yet and is returned.
func forEach[T any](ctx context.Context, l *limiter, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		g.Go(func() error {
			return l.do(gctx, func(ctx context.Context) error { return fn(ctx, item) })
		})
	}
	return g.Wait()
}
