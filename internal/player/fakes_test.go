package player

import (
	"context"
	"errors"
	"sync"
)

type fakeBackend struct {
	mu        sync.Mutex
	calls     []string
	current   float64
	duration  float64
	destroyed int
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *fakeBackend) Play()                     { b.record("play") }
func (b *fakeBackend) Pause()                    { b.record("pause") }
func (b *fakeBackend) Mute()                     { b.record("mute") }
func (b *fakeBackend) Unmute()                   { b.record("unmute") }
func (b *fakeBackend) SetVolume(v int)           { b.record("volume") }
func (b *fakeBackend) SetPlaybackRate(r float64) { b.record("rate") }

func (b *fakeBackend) CurrentTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *fakeBackend) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration
}

func (b *fakeBackend) Destroy() {
	b.mu.Lock()
	b.destroyed++
	b.mu.Unlock()
}

func (b *fakeBackend) setCurrent(t float64) {
	b.mu.Lock()
	b.current = t
	b.mu.Unlock()
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) DestroyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// fakeFactory hands out fresh backends and tracks how many are alive.
type fakeFactory struct {
	mu        sync.Mutex
	duration  float64
	err       error
	readyNow  bool
	gate      chan struct{}
	created   []*fakeBackend
	opts      []Options
	live      int
	maxLive   int
	createdCh chan *fakeBackend
}

func newFakeFactory(duration float64) *fakeFactory {
	return &fakeFactory{duration: duration, createdCh: make(chan *fakeBackend, 16)}
}

func (f *fakeFactory) Create(ctx context.Context, opts Options, events Events) (Backend, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	b := &trackedBackend{fakeBackend: &fakeBackend{duration: f.duration}, factory: f}
	f.mu.Lock()
	f.created = append(f.created, b.fakeBackend)
	f.opts = append(f.opts, opts)
	f.live++
	if f.live > f.maxLive {
		f.maxLive = f.live
	}
	f.mu.Unlock()
	if f.readyNow {
		events.Ready()
	}
	f.createdCh <- b.fakeBackend
	return b, nil
}

func (f *fakeFactory) MaxLive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxLive
}

func (f *fakeFactory) Options() []Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Options(nil), f.opts...)
}

type trackedBackend struct {
	*fakeBackend
	factory *fakeFactory
	once    sync.Once
}

func (b *trackedBackend) Destroy() {
	b.fakeBackend.Destroy()
	b.once.Do(func() {
		b.factory.mu.Lock()
		b.factory.live--
		b.factory.mu.Unlock()
	})
}

type fakeHost struct {
	supported bool
	refuse    bool
	requests  int
	exits     int
}

func (h *fakeHost) FullscreenSupported() bool { return h.supported }

func (h *fakeHost) RequestFullscreen() error {
	h.requests++
	if h.refuse {
		return errors.New("not allowed")
	}
	return nil
}

func (h *fakeHost) ExitFullscreen() error {
	h.exits++
	return nil
}
