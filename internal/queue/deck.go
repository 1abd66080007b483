package queue

import (
	"context"
	"sync"

	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/player"
)

// Deck plays a Navigator's videos through one player.Slot. Moving in the
// queue destroys the bound controller and mounts a fresh one, and a video
// ending advances the queue.
type Deck struct {
	nav  *Navigator
	slot *player.Slot

	mu  sync.Mutex
	ctx context.Context
}

// NewDeck builds controllers from base, filling in the video and chaining
// onVideoEnd (may be nil) before the advance.
func NewDeck(nav *Navigator, base player.Config, onVideoEnd func(metadata.VideoMetadata)) *Deck {
	d := &Deck{nav: nav, ctx: context.Background()}
	d.slot = player.NewSlot(func(v metadata.VideoMetadata) *player.Controller {
		cfg := base
		cfg.Video = v
		cfg.OnEnded = func() {
			if base.OnEnded != nil {
				base.OnEnded()
			}
			if onVideoEnd != nil {
				onVideoEnd(v)
			}
			d.nav.Advance()
		}
		return player.New(cfg)
	})
	nav.OnRebind(func(_ int, v metadata.VideoMetadata) {
		d.slot.Bind(d.context(), v)
	})
	return d
}

// Start mounts the current video. ctx is reused for every later rebind.
func (d *Deck) Start(ctx context.Context) *player.Controller {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	v, ok := d.nav.Current()
	if !ok {
		return nil
	}
	return d.slot.Bind(ctx, v)
}

func (d *Deck) context() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

// Select rebinds to the video at index; out-of-range indexes are ignored.
func (d *Deck) Select(index int) bool { return d.nav.Select(index) }

// Advance rebinds to the next video, if there is one.
func (d *Deck) Advance() bool { return d.nav.Advance() }

// Controller returns the bound controller, or nil before Start.
func (d *Deck) Controller() *player.Controller { return d.slot.Current() }

func (d *Deck) Navigator() *Navigator { return d.nav }

// Release destroys the bound controller. The deck can't be restarted.
func (d *Deck) Release() { d.slot.Release() }
