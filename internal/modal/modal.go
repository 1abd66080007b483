package modal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sendrec/playerkit/internal/controls"
	"github.com/sendrec/playerkit/internal/layout"
	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/player"
	"github.com/sendrec/playerkit/internal/queue"
)

// Document is the page the modal opens over.
type Document interface {
	// LockScroll stops the background from scrolling and returns the
	// function that undoes it.
	LockScroll() (restore func())
	// AddKeyListener registers a page-wide key handler and returns the
	// function that removes it.
	AddKeyListener(fn func(key string)) (remove func())
}

// Target is what a click landed on.
type Target int

const (
	TargetBackdrop Target = iota
	TargetContent
)

// Config describes one modal.
type Config struct {
	Videos []metadata.VideoMetadata
	Index  int

	// Player is the template for every controller the modal builds. Video
	// and Autoplay are filled in per video.
	Player player.Config

	OnClose    func()
	OnVideoEnd func(metadata.VideoMetadata)
}

// Shell is an open modal: a player bound to the current video and, when
// there is more than one video, a queue beside it.
type Shell struct {
	doc    Document
	deck   *queue.Deck
	layout layout.Config
	logger *slog.Logger

	mu        sync.Mutex
	restore   func()
	removeKey func()
	onClose   func()
	closed    bool
	unmounted bool
}

// Open locks background scroll and registers the shell's one key listener.
// Callers should defer Unmount so the scroll lock is released on every path.
func Open(doc Document, cfg Config) *Shell {
	lc := layout.Resolve(layout.Request{Variant: layout.Modal, QueueLen: len(cfg.Videos)})

	pc := cfg.Player
	pc.Autoplay = lc.Autoplay
	logger := pc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Shell{
		doc:     doc,
		deck:    queue.NewDeck(queue.New(cfg.Videos, cfg.Index), pc, cfg.OnVideoEnd),
		layout:  lc,
		logger:  logger,
		onClose: cfg.OnClose,
	}
	s.restore = doc.LockScroll()
	s.removeKey = doc.AddKeyListener(s.HandleKey)
	return s
}

// Start mounts the player for the current video.
func (s *Shell) Start(ctx context.Context) *player.Controller {
	return s.deck.Start(ctx)
}

// Layout returns the modal's resolved layout.
func (s *Shell) Layout() layout.Config { return s.layout }

// Controller returns the player bound to the current video.
func (s *Shell) Controller() *player.Controller { return s.deck.Controller() }

// Queue returns the navigator, or nil when there is nothing to navigate.
func (s *Shell) Queue() *queue.Navigator {
	if !s.layout.ShowQueue {
		return nil
	}
	return s.deck.Navigator()
}

// Select plays the queue entry at index. Out-of-range indexes are ignored.
func (s *Shell) Select(index int) bool {
	if s.Closed() {
		return false
	}
	return s.deck.Select(index)
}

// Advance plays the next queue entry, if there is one.
func (s *Shell) Advance() bool {
	if s.Closed() {
		return false
	}
	return s.deck.Advance()
}

// HandleKey is the shell's key listener. Escape closes the modal; the
// player shortcuts go to the current controller.
func (s *Shell) HandleKey(key string) {
	if s.Closed() {
		return
	}
	if key == "Escape" || key == "Esc" {
		s.Close()
		return
	}
	if c := s.deck.Controller(); c != nil {
		controls.HandleKey(c, key)
	}
}

// Click dismisses the modal when the backdrop itself was clicked. Clicks
// inside the content never reach the backdrop.
func (s *Shell) Click(target Target) {
	if target == TargetBackdrop {
		s.Close()
	}
}

// Close destroys the player, detaches the key listener and calls OnClose.
// Only the first call has an effect.
func (s *Shell) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	remove := s.removeKey
	s.removeKey = nil
	onClose := s.onClose
	s.mu.Unlock()

	if remove != nil {
		remove()
	}
	s.deck.Release()
	s.logger.Debug("modal: closed")
	if onClose != nil {
		onClose()
	}
}

// Closed reports whether Close has run.
func (s *Shell) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Unmount releases everything the shell holds, whether or not it was
// closed. It is idempotent. OnClose is not called.
func (s *Shell) Unmount() {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.unmounted = true
	s.closed = true
	restore, remove := s.restore, s.removeKey
	s.restore, s.removeKey = nil, nil
	s.mu.Unlock()

	if remove != nil {
		remove()
	}
	s.deck.Release()
	if restore != nil {
		restore()
	}
}
