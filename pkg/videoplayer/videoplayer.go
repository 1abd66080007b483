// Package videoplayer is the framework-agnostic front end: a Player drives
// one embedded video, or a queue of them, through a caller-supplied backend
// factory. It renders nothing and opens no connections.
//
//	p := videoplayer.New(videoplayer.Options{
//		Videos:  videos,
//		Variant: videoplayer.Expanded,
//		Factory: factory,
//		Loader:  videoplayer.NewLoader(loadAPI),
//	})
//	p.Mount(ctx)
//	defer p.Destroy()
package videoplayer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sendrec/playerkit/internal/controls"
	"github.com/sendrec/playerkit/internal/layout"
	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/modal"
	"github.com/sendrec/playerkit/internal/player"
	"github.com/sendrec/playerkit/internal/queue"
)

type (
	Video          = metadata.VideoMetadata
	State          = player.State
	Status         = player.Status
	Backend        = player.Backend
	BackendOptions = player.Options
	BackendState   = player.BackendState
	Events         = player.Events
	Factory        = player.Factory
	Host           = player.Host
	Loader         = player.Loader
	Layout         = layout.Config
	Variant        = layout.Variant
	Overlay        = controls.Overlay
	Intent         = controls.Intent
	Document       = modal.Document
)

const (
	Inline   = layout.Inline
	Expanded = layout.Expanded
	Modal    = layout.Modal
)

const (
	StatusUninitialized = player.StatusUninitialized
	StatusLoading       = player.StatusLoading
	StatusReady         = player.StatusReady
	StatusPlaying       = player.StatusPlaying
	StatusPaused        = player.StatusPaused
	StatusEnded         = player.StatusEnded
)

var (
	NewLoader        = player.NewLoader
	NewPendingLoader = player.NewPendingLoader
	ResolvedLoader   = player.ResolvedLoader
	ParseVariant     = layout.ParseVariant
)

// Options configures a Player.
type Options struct {
	Videos   []Video
	Index    int
	Variant  Variant
	Autoplay bool

	// Narrow and TouchPrimary describe the viewport the player sits in.
	Narrow       bool
	TouchPrimary bool

	Factory Factory
	Loader  *Loader
	Host    Host

	// Document is required for the modal variant. Without one the modal
	// neither locks scroll nor hears keys.
	Document Document

	Clock  clockwork.Clock
	Logger *slog.Logger

	OnVideoEnd  func(Video)
	OnVideoPlay func(Video)
	OnChange    func(State)
	OnClose     func()
}

// Player is the imperative handle. Its methods act on the controller bound
// to the current video and are no-ops once destroyed.
type Player struct {
	opts     Options
	layout   layout.Config
	document Document

	deck  *queue.Deck
	modal *modal.Config

	mu        sync.Mutex
	shell     *modal.Shell
	menu      controls.Menu
	mounted   bool
	destroyed bool
}

// New builds a player. Nothing is constructed, and a modal neither locks
// scroll nor listens for keys, until Mount.
func New(opts Options) *Player {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Player{opts: opts}
	p.layout = layout.Resolve(layout.Request{
		Variant:  opts.Variant,
		Autoplay: opts.Autoplay,
		Narrow:   opts.Narrow,
		QueueLen: len(opts.Videos),
	})

	base := player.Config{
		Autoplay:     p.layout.Autoplay,
		Factory:      opts.Factory,
		Loader:       opts.Loader,
		Host:         opts.Host,
		Clock:        opts.Clock,
		Logger:       logger,
		TouchPrimary: opts.TouchPrimary,
		OnPlay:       p.played,
		OnChange:     opts.OnChange,
	}

	if p.layout.Variant == layout.Modal {
		doc := opts.Document
		if doc == nil {
			doc = detached{}
		}
		p.modal = &modal.Config{
			Videos:     opts.Videos,
			Index:      opts.Index,
			Player:     base,
			OnClose:    opts.OnClose,
			OnVideoEnd: opts.OnVideoEnd,
		}
		p.document = doc
		return p
	}
	p.deck = queue.NewDeck(queue.New(opts.Videos, opts.Index), base, opts.OnVideoEnd)
	return p
}

func (p *Player) played() {
	if p.opts.OnVideoPlay == nil {
		return
	}
	if c := p.Current(); c != nil {
		p.opts.OnVideoPlay(c.Video())
	}
}

// Mount constructs the player for the current video. Later calls do
// nothing.
func (p *Player) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.mounted || p.destroyed {
		p.mu.Unlock()
		return
	}
	p.mounted = true
	p.mu.Unlock()

	if p.modal == nil {
		p.deck.Start(ctx)
		return
	}
	shell := modal.Open(p.document, *p.modal)
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		shell.Unmount()
		return
	}
	p.shell = shell
	p.mu.Unlock()
	shell.Start(ctx)
}

func (p *Player) modalShell() *modal.Shell {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shell
}

func (p *Player) live() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mounted && !p.destroyed
}

// Current returns the controller for the current video, or nil.
func (p *Player) Current() *player.Controller {
	if p.modal != nil {
		if shell := p.modalShell(); shell != nil {
			return shell.Controller()
		}
		return nil
	}
	return p.deck.Controller()
}

// State returns the current controller's snapshot. Before Mount it is the
// zero State.
func (p *Player) State() State {
	if c := p.Current(); c != nil {
		return c.State()
	}
	return State{}
}

func (p *Player) Layout() Layout { return p.layout }

// Overlay builds the controls view model for the current state.
func (p *Player) Overlay() Overlay {
	c := p.Current()
	if c == nil {
		return Overlay{}
	}
	p.mu.Lock()
	menu := p.menu
	p.mu.Unlock()
	return controls.Build(c.State(), p.layout, menu, c.Video())
}

// Queue returns the videos and the current index of a mounted player with
// more than one video. Layout().ShowQueue only says whether to draw it.
func (p *Player) Queue() ([]Video, int) {
	nav := p.navigator()
	if nav == nil || nav.Len() < 2 {
		return nil, 0
	}
	return nav.Videos(), nav.Index()
}

func (p *Player) navigator() *queue.Navigator {
	if !p.live() {
		return nil
	}
	if p.modal != nil {
		if shell := p.modalShell(); shell != nil {
			return shell.Queue()
		}
		return nil
	}
	return p.deck.Navigator()
}

func (p *Player) TogglePlayPause() {
	if c := p.Current(); c != nil {
		c.TogglePlayPause()
	}
}

func (p *Player) SetVolume(v int) {
	if c := p.Current(); c != nil {
		c.SetVolume(v)
	}
}

func (p *Player) ToggleMute() {
	if c := p.Current(); c != nil {
		c.ToggleMute()
	}
}

// SetPlaybackRate accepts only the supported rates.
func (p *Player) SetPlaybackRate(rate float64) {
	if c := p.Current(); c != nil {
		c.SetPlaybackRate(rate)
	}
}

func (p *Player) ToggleFullscreen() {
	if c := p.Current(); c != nil {
		c.ToggleFullscreen()
	}
}

// SetControlsVisible reports pointer and focus presence. Touch-primary
// players keep their controls regardless.
func (p *Player) SetControlsVisible(pointerInside, focusWithin bool) {
	if c := p.Current(); c != nil {
		c.SetControlsVisible(controls.Visible(pointerInside, focusWithin, p.opts.TouchPrimary))
	}
}

// Dispatch applies an overlay interaction. It reports whether the menu
// changed.
func (p *Player) Dispatch(in Intent) bool {
	c := p.Current()
	if c == nil {
		return false
	}
	p.mu.Lock()
	menu := p.menu
	p.mu.Unlock()

	// The controller may call back into OnChange, which may read Overlay.
	changed := controls.Dispatch(c, &menu, in)
	if changed {
		p.mu.Lock()
		p.menu = menu
		p.mu.Unlock()
	}
	return changed
}

// HandleKey applies a keyboard shortcut. In a modal, escape closes it.
func (p *Player) HandleKey(key string) bool {
	if p.modal != nil {
		shell := p.modalShell()
		if shell == nil || shell.Closed() {
			return false
		}
		shell.HandleKey(key)
		return true
	}
	if c := p.Current(); c != nil {
		return controls.HandleKey(c, key)
	}
	return false
}

// Select plays the video at index. Out-of-range indexes are ignored, as is
// any call before Mount.
func (p *Player) Select(index int) bool {
	if !p.live() {
		return false
	}
	p.resetMenu()
	if shell := p.modalShell(); shell != nil {
		return shell.Select(index)
	}
	return p.deck.Select(index)
}

// Advance plays the next video. It reports false at the end of the list and
// before Mount.
func (p *Player) Advance() bool {
	if !p.live() {
		return false
	}
	p.resetMenu()
	if shell := p.modalShell(); shell != nil {
		return shell.Advance()
	}
	return p.deck.Advance()
}

func (p *Player) resetMenu() {
	p.mu.Lock()
	p.menu = controls.Menu{}
	p.mu.Unlock()
}

// Close dismisses a mounted modal player. It calls OnClose once.
func (p *Player) Close() {
	if shell := p.modalShell(); shell != nil {
		shell.Close()
	}
}

// Destroy tears everything down. It is idempotent and safe to call from
// any callback.
func (p *Player) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	shell := p.shell
	p.mu.Unlock()

	if p.modal != nil {
		if shell != nil {
			shell.Unmount()
		}
		return
	}
	p.deck.Release()
}

func (p *Player) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// detached is the document of a modal nobody attached to a page.
type detached struct{}

func (detached) LockScroll() func()                     { return func() {} }
func (detached) AddKeyListener(func(key string)) func() { return func() {} }
