package runner

import (
	"context"

	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
)

// Future is the handle of work running in the background.
type Future[T any] struct {
	done     chan struct{}
	value    T
	err      error
	snapshot func() []Outcome
}

func newFuture[T any](snapshot func() []Outcome) *Future[T] {
	return &Future[T]{done: make(chan struct{}), snapshot: snapshot}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the work has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the work finishes or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Snapshot returns the outcomes recorded so far, including Running
// placeholders.
func (f *Future[T]) Snapshot() []Outcome {
	if f.snapshot == nil {
		return nil
	}
	return f.snapshot()
}

// SendWithScriptAsync runs SendWithScript on its own goroutine.
func (r *Runner) SendWithScriptAsync(ctx context.Context, info RunInfo) *Future[Outcome] {
	results := NewResults()
	f := newFuture[Outcome](results.Snapshot)
	results.Add(running{info: info})
	go func() {
		out := r.SendWithScript(ctx, info)
		results.Add(out)
		f.resolve(out, nil)
	}()
	return f
}

// RunTestGroupAsync runs the folder in the background. The returned future
// resolves to the filled Results.
func (r *Runner) RunTestGroupAsync(ctx context.Context, envs env.Envs, scripts *collection.ScriptTree, collectionPath string, parent *collection.Testcase, folder *collection.Folder, fast bool) *Future[*Results] {
	results := NewResults()
	f := newFuture[*Results](results.Snapshot)
	go func() {
		err := r.RunTestGroup(ctx, envs, scripts, collectionPath, parent, folder, fast, results)
		f.resolve(results, err)
	}()
	return f
}
