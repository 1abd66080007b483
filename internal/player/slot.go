package player

import (
	"context"
	"sync"

	"github.com/sendrec/playerkit/internal/metadata"
)

// Slot owns the single container a player renders into. Binding a new video
// fully destroys the previous controller before the next one is built, so
// two players never race over the same container.
type Slot struct {
	build func(metadata.VideoMetadata) *Controller

	mu      sync.Mutex
	current *Controller
	closed  bool
}

// NewSlot returns an empty slot. build constructs an unmounted controller
// for a video; Bind mounts it.
func NewSlot(build func(metadata.VideoMetadata) *Controller) *Slot {
	return &Slot{build: build}
}

// Bind destroys the bound controller, if any, and mounts a new one for
// video. It returns nil once the slot has been released.
func (s *Slot) Bind(ctx context.Context, video metadata.VideoMetadata) *Controller {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.current != nil {
		s.current.Destroy()
		s.current = nil
	}
	next := s.build(video)
	s.current = next
	s.mu.Unlock()

	// Mount emits a change synchronously; observers may call Current.
	next.Mount(ctx)
	return next
}

// Current returns the bound controller, or nil.
func (s *Slot) Current() *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Release destroys the bound controller and refuses further binds.
func (s *Slot) Release() {
	s.mu.Lock()
	s.closed = true
	c := s.current
	s.current = nil
	s.mu.Unlock()

	if c != nil {
		c.Destroy()
	}
}
