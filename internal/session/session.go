package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sendrec/playerkit/internal/bridge"
	"github.com/sendrec/playerkit/internal/controls"
	"github.com/sendrec/playerkit/internal/layout"
	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/modal"
	"github.com/sendrec/playerkit/internal/player"
	"github.com/sendrec/playerkit/internal/queue"
	"github.com/sendrec/playerkit/internal/widget"
)

// NarrowWidth is the viewport width below which a page counts as narrow.
const NarrowWidth = 480

const actionSelect = "select"

const loadFailedReason = "The player couldn't be loaded. You can still watch on YouTube."

// Config is what a page asked for when it was rendered.
type Config struct {
	Videos   []metadata.VideoMetadata
	Index    int
	Variant  layout.Variant
	Autoplay bool

	// Narrow and TouchPrimary come from the request; the page's hello can
	// only turn them on.
	Narrow       bool
	TouchPrimary bool

	Clock  clockwork.Clock
	Logger *slog.Logger

	// OnVideoPlay and OnVideoEnd receive the session id with the video.
	OnVideoPlay func(sessionID string, v metadata.VideoMetadata)
	OnVideoEnd  func(sessionID string, v metadata.VideoMetadata)
}

// Session drives one page: it owns the controllers for the page's videos
// and keeps the page's regions in step with them.
type Session struct {
	id      string
	ctx     context.Context
	cfg     Config
	conn    bridge.Sender
	logger  *slog.Logger
	factory *bridge.Factory
	doc     *bridge.Document
	loader  *player.Loader

	mu      sync.Mutex
	started bool
	closed  bool
	layout  layout.Config
	deck    *queue.Deck
	shell   *modal.Shell
	menu    controls.Menu
	touch   bool

	renderMu     sync.Mutex
	lastCtrl     *player.Controller
	lastRevision uint64
	lastMenu     controls.Menu
	lastLayout   layout.Config
	rendered     bool
}

// New returns a session that starts when the page says hello.
func New(ctx context.Context, conn bridge.Sender, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("session_id", id)
	return &Session{
		id:      id,
		ctx:     ctx,
		cfg:     cfg,
		conn:    conn,
		logger:  logger,
		factory: bridge.NewFactory(conn, logger),
		doc:     bridge.NewDocument(conn),
		loader:  player.NewPendingLoader(),
	}
}

func (s *Session) ID() string { return s.id }

// Handle applies one message from the page. Messages are handled in
// arrival order.
func (s *Session) Handle(m bridge.Message) {
	switch m.Type {
	case bridge.TypeHello:
		s.start(m)
	case bridge.TypeAPI:
		var err error
		if m.Error != "" {
			err = errors.New(m.Error)
		}
		s.loader.Signal(err)
	case bridge.TypeReady, bridge.TypeStateChange, bridge.TypeTime:
		s.factory.Dispatch(m)
	case bridge.TypeFullscreenChange:
		if c := s.Controller(); c != nil {
			c.FullscreenChanged(m.Fullscreen)
		}
	case bridge.TypeKey:
		s.key(m.Key)
	case bridge.TypeIntent:
		s.intent(controls.Intent{Action: controls.Action(m.Action), Value: m.Value})
	case bridge.TypePointer:
		s.pointer(m.Inside, m.Focus)
	case bridge.TypeClick:
		s.click(m.Target)
	default:
		s.logger.Debug("session: unknown message", "type", m.Type)
	}
}

func (s *Session) start(hello bridge.Message) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.touch = s.cfg.TouchPrimary || hello.Touch
	narrow := s.cfg.Narrow || (hello.Width > 0 && hello.Width < NarrowWidth)
	s.layout = layout.Resolve(layout.Request{
		Variant:  s.cfg.Variant,
		Autoplay: s.cfg.Autoplay,
		Narrow:   narrow,
		QueueLen: len(s.cfg.Videos),
	})

	base := player.Config{
		Autoplay:     s.layout.Autoplay,
		Factory:      s.factory,
		Loader:       s.loader,
		Host:         bridge.NewHost(s.conn, hello.Fullscreen),
		Clock:        s.cfg.Clock,
		Logger:       s.logger,
		TouchPrimary: s.touch,
		OnPlay:       s.played,
		OnChange:     func(player.State) { s.render() },
	}
	onEnd := func(v metadata.VideoMetadata) {
		id, _ := v.ResolvedID()
		s.logger.Info("session: video ended", "video_id", id)
		if s.cfg.OnVideoEnd != nil {
			s.cfg.OnVideoEnd(s.id, v)
		}
	}

	var deck *queue.Deck
	var shell *modal.Shell
	if s.layout.Variant == layout.Modal {
		shell = modal.Open(s.doc, modal.Config{
			Videos:     s.cfg.Videos,
			Index:      s.cfg.Index,
			Player:     base,
			OnClose:    s.modalClosed,
			OnVideoEnd: onEnd,
		})
		s.shell = shell
	} else {
		deck = queue.NewDeck(queue.New(s.cfg.Videos, s.cfg.Index), base, onEnd)
		s.deck = deck
	}
	s.mu.Unlock()

	s.logger.Info("session: started", "variant", s.layout.Variant.String(), "videos", len(s.cfg.Videos))
	if shell != nil {
		shell.Start(s.ctx)
	} else {
		deck.Start(s.ctx)
	}
	s.render()
}

func (s *Session) played() {
	c := s.Controller()
	if c == nil {
		return
	}
	v := c.Video()
	id, _ := v.ResolvedID()
	s.logger.Debug("session: playing", "video_id", id)
	if s.cfg.OnVideoPlay != nil {
		s.cfg.OnVideoPlay(s.id, v)
	}
}

// Controller returns the controller for the current video, or nil.
func (s *Session) Controller() *player.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.shell != nil:
		return s.shell.Controller()
	case s.deck != nil:
		return s.deck.Controller()
	}
	return nil
}

// Layout returns the resolved layout once the session has started.
func (s *Session) Layout() layout.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

func (s *Session) key(key string) {
	s.mu.Lock()
	shell := s.shell
	s.mu.Unlock()

	if shell != nil {
		// The shell's listener owns escape and the player keys.
		s.doc.Key(key)
		return
	}
	if c := s.Controller(); c != nil {
		controls.HandleKey(c, key)
	}
}

func (s *Session) intent(in controls.Intent) {
	if in.Action == actionSelect {
		index, err := strconv.Atoi(in.Value)
		if err != nil {
			return
		}
		s.selectIndex(index)
		return
	}

	c := s.Controller()
	if c == nil {
		return
	}
	s.mu.Lock()
	menu := s.menu
	s.mu.Unlock()

	if controls.Dispatch(c, &menu, in) {
		s.mu.Lock()
		s.menu = menu
		s.mu.Unlock()
		s.render()
	}
}

func (s *Session) selectIndex(index int) {
	s.mu.Lock()
	shell, deck := s.shell, s.deck
	s.menu = controls.Menu{}
	s.mu.Unlock()

	switch {
	case shell != nil:
		shell.Select(index)
	case deck != nil:
		deck.Select(index)
	}
}

func (s *Session) pointer(inside, focus bool) {
	s.mu.Lock()
	visible := controls.Visible(inside, focus, s.touch)
	s.mu.Unlock()

	if c := s.Controller(); c != nil {
		c.SetControlsVisible(visible)
	}
}

func (s *Session) click(target string) {
	s.mu.Lock()
	shell := s.shell
	s.mu.Unlock()
	if shell == nil {
		return
	}
	if target == "content" {
		shell.Click(modal.TargetContent)
		return
	}
	shell.Click(modal.TargetBackdrop)
}

func (s *Session) modalClosed() {
	s.logger.Info("session: modal closed")
	if err := s.conn.Send(bridge.Message{Type: bridge.TypeClose}); err != nil {
		s.logger.Debug("session: close not delivered", "error", err)
	}
}

// render pushes the regions that changed. Snapshots are pulled from the
// current controller under renderMu, so an older revision is never sent
// after a newer one.
func (s *Session) render() {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	if s.closed || !s.started {
		s.mu.Unlock()
		return
	}
	menu := s.menu
	cfg := s.layout
	var nav *queue.Navigator
	switch {
	case s.shell != nil:
		nav = s.shell.Queue()
	case s.deck != nil && cfg.ShowQueue:
		nav = s.deck.Navigator()
	}
	s.mu.Unlock()

	c := s.Controller()
	if c == nil {
		return
	}
	st := c.State()
	sameCtrl := s.rendered && c == s.lastCtrl
	if sameCtrl && st.Revision <= s.lastRevision && menu == s.lastMenu && cfg == s.lastLayout {
		return
	}

	video := c.Video()
	if st.Playable && !st.LoadFailed {
		s.send(widget.RegionOverlay, controls.Build(st, cfg, menu, video))
		if !sameCtrl {
			s.sendHTML(widget.RegionFallback, "")
		}
	} else {
		reason := ""
		if st.LoadFailed {
			reason = loadFailedReason
		}
		s.send(widget.RegionFallback, widget.NewFallback(video, reason))
		s.sendHTML(widget.RegionOverlay, "")
	}
	if !sameCtrl && nav != nil {
		s.send(widget.RegionQueue, nav.Items())
	}

	s.rendered = true
	s.lastCtrl = c
	s.lastRevision = st.Revision
	s.lastMenu = menu
	s.lastLayout = cfg
}

func (s *Session) send(region string, data any) {
	html, err := widget.RenderRegion(region, data)
	if err != nil {
		s.logger.Error("session: render failed", "region", region, "error", err)
		return
	}
	s.sendHTML(region, html)
}

func (s *Session) sendHTML(region, html string) {
	if err := s.conn.Send(bridge.Message{Type: bridge.TypeRender, Region: region, HTML: html}); err != nil {
		s.logger.Debug("session: render dropped", "region", region, "error", err)
	}
}

// Close tears down every controller and releases the page. It is
// idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	shell, deck := s.shell, s.deck
	s.mu.Unlock()

	if shell != nil {
		shell.Unmount()
	}
	if deck != nil {
		deck.Release()
	}
	s.loader.Signal(context.Canceled)
	s.logger.Info("session: closed")
}
