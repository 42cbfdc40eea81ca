package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/reny1cao/crypto-insights/internal/types"
)

// event is a progress notice sent by a fan-out worker. Only the run
// goroutine applies it to the state.
type event struct {
	taskID  string
	status  types.TaskStatus
	agent   string
	message string
	detail  *types.LogDetail
}

// fanOut runs work for indices [0, n) with at most limit in flight (0 means
// unlimited) and blocks until all have returned. A failure never cancels its
// siblings. Events are delivered to onEvent on the calling goroutine.
func fanOut[T any](
	ctx context.Context,
	limit, n int,
	work func(ctx context.Context, i int, emit func(event)) (T, error),
	onEvent func(event),
) ([]T, []error) {
	results := make([]T, n)
	errs := make([]error, n)
	events := make(chan event)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	go func() {
		for i := 0; i < n; i++ {
			g.Go(func() error {
				results[i], errs[i] = work(ctx, i, func(e event) { events <- e })
				return nil
			})
		}
		_ = g.Wait()
		close(events)
	}()
	for e := range events {
		onEvent(e)
	}
	return results, errs
}
