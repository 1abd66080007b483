package queue

import (
	"sync"

	"github.com/sendrec/playerkit/internal/metadata"
)

// Navigator tracks the current position in an ordered list of videos. Moving
// to a new position signals a rebind; the navigator never touches players
// itself.
type Navigator struct {
	mu       sync.Mutex
	videos   []metadata.VideoMetadata
	index    int
	onRebind func(index int, video metadata.VideoMetadata)
}

// New returns a navigator over videos starting at index. An out-of-range
// index is clamped into the list.
func New(videos []metadata.VideoMetadata, index int) *Navigator {
	n := &Navigator{videos: append([]metadata.VideoMetadata(nil), videos...)}
	switch {
	case len(n.videos) == 0 || index < 0:
		n.index = 0
	case index >= len(n.videos):
		n.index = len(n.videos) - 1
	default:
		n.index = index
	}
	return n
}

// OnRebind registers the function called after every successful Select or
// Advance. It runs without the navigator's lock held.
func (n *Navigator) OnRebind(fn func(index int, video metadata.VideoMetadata)) {
	n.mu.Lock()
	n.onRebind = fn
	n.mu.Unlock()
}

// Select moves to index. Out-of-range indexes leave the position unchanged
// and report false. Selecting the current index rebinds it.
func (n *Navigator) Select(index int) bool {
	n.mu.Lock()
	if index < 0 || index >= len(n.videos) {
		n.mu.Unlock()
		return false
	}
	n.index = index
	fn, v := n.onRebind, n.videos[index]
	n.mu.Unlock()

	if fn != nil {
		fn(index, v)
	}
	return true
}

// Advance moves to the next video. At the last video it does nothing: the
// playlist ends without wrapping.
func (n *Navigator) Advance() bool {
	n.mu.Lock()
	next := n.index + 1
	n.mu.Unlock()
	return n.Select(next)
}

// Current returns the video at the current position.
func (n *Navigator) Current() (metadata.VideoMetadata, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.videos) == 0 {
		return metadata.VideoMetadata{}, false
	}
	return n.videos[n.index], true
}

func (n *Navigator) Index() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index
}

func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.videos)
}

// Videos returns a copy of the list.
func (n *Navigator) Videos() []metadata.VideoMetadata {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]metadata.VideoMetadata(nil), n.videos...)
}

// Item is one row of a rendered queue.
type Item struct {
	Index    int
	Title    string
	Channel  string
	Duration string
	Thumb    string
	Current  bool
}

// Items returns the rows to render. An empty queue renders nothing.
func (n *Navigator) Items() []Item {
	n.mu.Lock()
	defer n.mu.Unlock()
	items := make([]Item, 0, len(n.videos))
	for i, v := range n.videos {
		items = append(items, Item{
			Index:    i,
			Title:    v.DisplayTitle(),
			Channel:  v.ChannelName,
			Duration: v.Duration,
			Thumb:    v.ThumbnailURL,
			Current:  i == n.index,
		})
	}
	return items
}
