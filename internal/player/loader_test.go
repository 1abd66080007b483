package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderRunsOnceForConcurrentWaiters(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	l := NewLoader(func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = l.Wait(context.Background())
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestLoaderCancelledWaiterDoesNotCancelLoad(t *testing.T) {
	release := make(chan struct{})
	var loadErr atomic.Value
	l := NewLoader(func(ctx context.Context) error {
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	waitErr := make(chan error, 1)
	go func() { waitErr <- l.Wait(ctx) }()
	cancel()
	require.ErrorIs(t, <-waitErr, context.Canceled)

	close(release)
	require.NoError(t, l.Wait(context.Background()))
	assert.Nil(t, loadErr.Load())
}

func TestLoaderFailureIsSticky(t *testing.T) {
	boom := errors.New("network down")
	var calls atomic.Int32
	l := NewLoader(func(context.Context) error {
		calls.Add(1)
		return boom
	})

	require.ErrorIs(t, l.Wait(context.Background()), boom)
	require.ErrorIs(t, l.Wait(context.Background()), boom)
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, l.Err(), boom)
}

func TestPendingLoaderFirstSignalWins(t *testing.T) {
	l := NewPendingLoader()
	assert.ErrorIs(t, l.Err(), ErrLoaderNotStarted)

	l.Signal(nil)
	l.Signal(errors.New("late"))

	select {
	case <-l.Done():
	case <-time.After(waitFor):
		t.Fatal("loader never resolved")
	}
	assert.NoError(t, l.Err())
	assert.NoError(t, l.Wait(context.Background()))
}

func TestResolvedLoader(t *testing.T) {
	l := ResolvedLoader()
	assert.NoError(t, l.Err())
	assert.NoError(t, l.Wait(context.Background()))
}
