package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/sendrec/playerkit/internal/player"
)

// Factory constructs players in the page. Each construct gets a fresh
// player id; events carrying an id that is no longer live are dropped, so a
// destroyed player can't drive its successor.
type Factory struct {
	conn   Sender
	logger *slog.Logger

	mu      sync.Mutex
	players map[string]*Backend
}

func NewFactory(conn Sender, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{conn: conn, logger: logger, players: make(map[string]*Backend)}
}

func (f *Factory) Create(ctx context.Context, opts player.Options, events player.Events) (player.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := &Backend{
		id:      uuid.NewString(),
		conn:    f.conn,
		events:  events,
		factory: f,
	}

	f.mu.Lock()
	f.players[b.id] = b
	f.mu.Unlock()

	err := f.conn.Send(Message{
		Type:   TypeConstruct,
		Player: b.id,
		Video:  opts.VideoID,
		Vars:   opts.PlayerVars(),
	})
	if err != nil {
		f.forget(b.id)
		return nil, fmt.Errorf("construct player: %w", err)
	}
	f.logger.Debug("bridge: player constructed", "player", b.id, "video_id", opts.VideoID)
	return b, nil
}

// Dispatch routes a player event to its backend. It reports false for
// messages that are not player events or belong to a dead player.
func (f *Factory) Dispatch(m Message) bool {
	switch m.Type {
	case TypeReady, TypeStateChange, TypeTime:
	default:
		return false
	}

	f.mu.Lock()
	b := f.players[m.Player]
	f.mu.Unlock()
	if b == nil {
		f.logger.Debug("bridge: dropping event for stale player", "player", m.Player, "type", m.Type)
		return false
	}

	switch m.Type {
	case TypeReady:
		b.setDuration(m.Duration)
		b.events.Ready()
	case TypeStateChange:
		b.events.StateChanged(player.BackendState(m.State))
	case TypeTime:
		b.setCurrent(m.Time)
	}
	return true
}

// Live reports how many players exist in the page.
func (f *Factory) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.players)
}

func (f *Factory) forget(id string) {
	f.mu.Lock()
	delete(f.players, id)
	f.mu.Unlock()
}

// Backend is a player living in the page. Reads return the last values the
// page reported; CurrentTime also asks the page for a fresh value, which
// lands before the next poll.
type Backend struct {
	id      string
	conn    Sender
	events  player.Events
	factory *Factory

	mu       sync.Mutex
	current  float64
	duration float64
}

func (b *Backend) ID() string { return b.id }

func (b *Backend) call(method string, args ...any) {
	if err := b.conn.Send(Message{Type: TypeCall, Player: b.id, Method: method, Args: args}); err != nil {
		b.factory.logger.Debug("bridge: call dropped", "player", b.id, "method", method, "error", err)
	}
}

func (b *Backend) Play()                        { b.call("playVideo") }
func (b *Backend) Pause()                       { b.call("pauseVideo") }
func (b *Backend) Mute()                        { b.call("mute") }
func (b *Backend) Unmute()                      { b.call("unMute") }
func (b *Backend) SetVolume(v int)              { b.call("setVolume", v) }
func (b *Backend) SetPlaybackRate(rate float64) { b.call("setPlaybackRate", rate) }

func (b *Backend) CurrentTime() float64 {
	b.call("getCurrentTime")
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
	b.factory.forget(b.id)
	if err := b.conn.Send(Message{Type: TypeDestroy, Player: b.id}); err != nil {
		b.factory.logger.Debug("bridge: destroy dropped", "player", b.id, "error", err)
	}
}

func (b *Backend) setCurrent(t float64) {
	b.mu.Lock()
	b.current = t
	b.mu.Unlock()
}

func (b *Backend) setDuration(d float64) {
	b.mu.Lock()
	b.duration = d
	b.mu.Unlock()
}

// Host is the page element the player is drawn in.
type Host struct {
	conn Sender

	mu        sync.Mutex
	supported bool
}

func NewHost(conn Sender, fullscreenSupported bool) *Host {
	return &Host{conn: conn, supported: fullscreenSupported}
}

func (h *Host) FullscreenSupported() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.supported
}

// RequestFullscreen asks the page to go fullscreen. A refusal comes back as
// a fullscreenChange message.
func (h *Host) RequestFullscreen() error {
	return h.conn.Send(Message{Type: TypeFullscreen, On: true})
}

func (h *Host) ExitFullscreen() error {
	return h.conn.Send(Message{Type: TypeFullscreen, On: false})
}

// Document is the page seen from a modal: scroll locking and page-wide key
// listeners.
type Document struct {
	conn Sender

	mu        sync.Mutex
	next      int
	listeners map[int]func(string)
	order     []int
}

func NewDocument(conn Sender) *Document {
	return &Document{conn: conn, listeners: make(map[int]func(string))}
}

func (d *Document) LockScroll() func() {
	_ = d.conn.Send(Message{Type: TypeScroll, On: true})
	var once sync.Once
	return func() {
		once.Do(func() {
			_ = d.conn.Send(Message{Type: TypeScroll, On: false})
		})
	}
}

func (d *Document) AddKeyListener(fn func(string)) func() {
	d.mu.Lock()
	d.next++
	id := d.next
	d.listeners[id] = fn
	d.order = append(d.order, id)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		for i, v := range d.order {
			if v == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
		d.mu.Unlock()
	}
}

// Key delivers a key press to the listeners in registration order. It
// reports whether any listener was registered.
func (d *Document) Key(key string) bool {
	d.mu.Lock()
	fns := make([]func(string), 0, len(d.order))
	for _, id := range d.order {
		fns = append(fns, d.listeners[id])
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
	return len(fns) > 0
}

// Listeners reports how many key listeners are registered.
func (d *Document) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}
