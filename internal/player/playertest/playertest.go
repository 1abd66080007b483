// Package playertest provides an in-memory player backend for tests of code
// built on package player.
package playertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sendrec/playerkit/internal/player"
)

// Backend records every call it receives.
type Backend struct {
	ID      string
	Options player.Options
	Events  player.Events

	mu        sync.Mutex
	calls     []string
	current   float64
	duration  float64
	destroyed int
}

func (b *Backend) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *Backend) Play()                   { b.record("play") }
func (b *Backend) Pause()                  { b.record("pause") }
func (b *Backend) Mute()                   { b.record("mute") }
func (b *Backend) Unmute()                 { b.record("unmute") }
func (b *Backend) SetVolume(int)           { b.record("volume") }
func (b *Backend) SetPlaybackRate(float64) { b.record("rate") }

func (b *Backend) CurrentTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Backend) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration
}

func (b *Backend) Destroy() {
	b.mu.Lock()
	b.destroyed++
	b.mu.Unlock()
}

// SetCurrentTime sets what the next poll will read.
func (b *Backend) SetCurrentTime(t float64) {
	b.mu.Lock()
	b.current = t
	b.mu.Unlock()
}

func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *Backend) DestroyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// Factory creates Backends. With AutoReady set, each new backend reports
// ready as soon as it is created.
type Factory struct {
	Duration  float64
	AutoReady bool
	Err       error

	mu       sync.Mutex
	backends []*Backend
	created  chan *Backend
}

// NewFactory returns a factory whose backends report duration.
func NewFactory(duration float64) *Factory {
	return &Factory{Duration: duration, created: make(chan *Backend, 64)}
}

func (f *Factory) Create(ctx context.Context, opts player.Options, events player.Events) (player.Backend, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	b := &Backend{
		ID:       fmt.Sprintf("p%d", len(f.backends)+1),
		Options:  opts,
		Events:   events,
		duration: f.Duration,
	}
	f.backends = append(f.backends, b)
	f.mu.Unlock()

	if f.AutoReady {
		// The controller stores the backend after Create returns; Ready
		// arriving first is held until then.
		events.Ready()
	}
	select {
	case f.created <- b:
	default:
	}
	return b, nil
}

// Created delivers backends in creation order.
func (f *Factory) Created() <-chan *Backend {
	return f.created
}

// Backends returns every backend created so far.
func (f *Factory) Backends() []*Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Backend(nil), f.backends...)
}

// Last returns the most recently created backend, or nil.
func (f *Factory) Last() *Backend {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.backends) == 0 {
		return nil
	}
	return f.backends[len(f.backends)-1]
}

// Host is a fullscreen host that always succeeds when Supported is set.
type Host struct {
	Supported bool

	mu     sync.Mutex
	active bool
}

func (h *Host) FullscreenSupported() bool { return h.Supported }

func (h *Host) RequestFullscreen() error {
	h.mu.Lock()
	h.active = true
	h.mu.Unlock()
	return nil
}

func (h *Host) ExitFullscreen() error {
	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
	return nil
}

func (h *Host) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}
