package player

import (
	"context"
	"errors"
	"sync"
)

// ErrLoaderNotStarted is returned by Err while a loader has not resolved.
var ErrLoaderNotStarted = errors.New("player api not loaded")

// Loader is the single shared load of the embeddable player's API. Every
// controller on a page waits on the same Loader, so concurrent mounts fan
// out from one load instead of racing over a global ready hook. The first
// result wins and is sticky.
type Loader struct {
	load      func(context.Context) error
	startOnce sync.Once
	doneOnce  sync.Once
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// NewLoader returns a loader that runs load once, on the first Wait.
func NewLoader(load func(context.Context) error) *Loader {
	return &Loader{load: load, done: make(chan struct{})}
}

// NewPendingLoader returns a loader resolved externally through Signal,
// e.g. when a remote page reports that the API script finished loading.
func NewPendingLoader() *Loader {
	return &Loader{done: make(chan struct{})}
}

// ResolvedLoader returns a loader that is already loaded.
func ResolvedLoader() *Loader {
	l := NewPendingLoader()
	l.Signal(nil)
	return l
}

// Signal resolves the loader. Only the first call has an effect.
func (l *Loader) Signal(err error) {
	l.doneOnce.Do(func() {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		close(l.done)
	})
}

// Wait blocks until the API is loaded or ctx is done. A cancelled waiter
// never cancels the load for the others.
func (l *Loader) Wait(ctx context.Context) error {
	if l.load != nil {
		l.startOnce.Do(func() {
			loadCtx := context.WithoutCancel(ctx)
			go func() { l.Signal(l.load(loadCtx)) }()
		})
	}
	select {
	case <-l.done:
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loader resolves.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Err reports the load outcome, or ErrLoaderNotStarted while pending.
func (l *Loader) Err() error {
	select {
	case <-l.done:
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.err
	default:
		return ErrLoaderNotStarted
	}
}
