package videoplayer_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sendrec/playerkit/internal/player/playertest"
	"github.com/sendrec/playerkit/pkg/videoplayer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var playlist = []videoplayer.Video{
	{VideoID: "aaaaaaaaaaa", Title: "One"},
	{VideoID: "bbbbbbbbbbb", Title: "Two"},
	{VideoID: "ccccccccccc", Title: "Three"},
}

type page struct {
	mu      sync.Mutex
	locked  int
	keys    []func(string)
	removed int
}

func (p *page) LockScroll() func() {
	p.mu.Lock()
	p.locked++
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.locked--
		p.mu.Unlock()
	}
}

func (p *page) AddKeyListener(fn func(string)) func() {
	p.mu.Lock()
	p.keys = append(p.keys, fn)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.removed++
		p.mu.Unlock()
	}
}

func (p *page) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys) - p.removed
}

func (p *page) Locked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked
}

func newPlayer(t *testing.T, opts videoplayer.Options) (*videoplayer.Player, *playertest.Factory) {
	t.Helper()
	f := playertest.NewFactory(240)
	f.AutoReady = true
	opts.Factory = f
	if opts.Loader == nil {
		opts.Loader = videoplayer.ResolvedLoader()
	}
	opts.Clock = clockwork.NewFakeClock()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	p := videoplayer.New(opts)
	t.Cleanup(p.Destroy)
	return p, f
}

func awaitStatus(t *testing.T, p *videoplayer.Player, want videoplayer.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.State().Status == want
	}, 2*time.Second, time.Millisecond)
}

func TestPlayerBeforeMount(t *testing.T) {
	p, f := newPlayer(t, videoplayer.Options{Videos: playlist[:1]})

	assert.Equal(t, videoplayer.StatusUninitialized, p.State().Status)
	assert.Nil(t, p.Current())
	p.TogglePlayPause()
	assert.Empty(t, f.Backends())
	assert.Equal(t, videoplayer.Overlay{}, p.Overlay())
}

func TestPlayerPlaysAndCallsBack(t *testing.T) {
	var played []string
	var changes atomic.Int32
	p, f := newPlayer(t, videoplayer.Options{
		Videos:      playlist[:1],
		Variant:     videoplayer.Expanded,
		OnVideoPlay: func(v videoplayer.Video) { played = append(played, v.VideoID) },
		OnChange:    func(videoplayer.State) { changes.Add(1) },
	})

	p.Mount(context.Background())
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)
	require.Len(t, f.Backends(), 1)

	p.TogglePlayPause()
	assert.Equal(t, []string{"play"}, f.Last().Calls())
	f.Last().Events.StateChanged(videoplayer.BackendState(1))

	assert.Equal(t, videoplayer.StatusPlaying, p.State().Status)
	assert.Equal(t, []string{"aaaaaaaaaaa"}, played)
	assert.Greater(t, changes.Load(), int32(2))
	assert.Equal(t, "Pause", p.Overlay().PlayLabel)
}

func TestPlayerLocalEcho(t *testing.T) {
	p, f := newPlayer(t, videoplayer.Options{Videos: playlist[:1]})
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)

	p.SetVolume(150)
	assert.Equal(t, 100, p.State().Volume)
	p.ToggleMute()
	assert.True(t, p.State().IsMuted)
	p.SetPlaybackRate(1.25)
	assert.Equal(t, 1.25, p.State().PlaybackRate)
	p.SetPlaybackRate(3)
	assert.Equal(t, 1.25, p.State().PlaybackRate)
	assert.Equal(t, []string{"volume", "mute", "rate"}, f.Last().Calls())
}

func TestPlayerSpeedMenu(t *testing.T) {
	p, _ := newPlayer(t, videoplayer.Options{Videos: playlist[:1]})
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)

	assert.True(t, p.Dispatch(videoplayer.Intent{Action: "speed-menu"}))
	assert.True(t, p.Overlay().SpeedOpen)
	assert.True(t, p.Dispatch(videoplayer.Intent{Action: "speed", Value: "2"}))
	assert.False(t, p.Overlay().SpeedOpen)
	assert.Equal(t, 2.0, p.State().PlaybackRate)
}

func TestPlayerInlineLayout(t *testing.T) {
	p, f := newPlayer(t, videoplayer.Options{Videos: playlist[:1], Variant: videoplayer.Inline, Autoplay: true})
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)

	assert.Equal(t, 240, p.Layout().HeightPx)
	assert.False(t, p.Layout().Autoplay)
	assert.False(t, f.Last().Options.Autoplay)
}

func TestPlayerQueue(t *testing.T) {
	var ended []string
	p, f := newPlayer(t, videoplayer.Options{
		Videos:     playlist,
		Variant:    videoplayer.Expanded,
		OnVideoEnd: func(v videoplayer.Video) { ended = append(ended, v.VideoID) },
	})
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)

	videos, index := p.Queue()
	assert.Len(t, videos, 3)
	assert.Equal(t, 0, index)

	first := p.Current()
	f.Last().Events.StateChanged(videoplayer.BackendState(1))
	f.Last().Events.StateChanged(videoplayer.BackendState(0))
	assert.Equal(t, []string{"aaaaaaaaaaa"}, ended)
	assert.True(t, first.Destroyed())
	assert.Equal(t, "bbbbbbbbbbb", p.Current().VideoID())

	assert.False(t, p.Select(7))
	assert.True(t, p.Select(2))
	assert.Equal(t, "ccccccccccc", p.Current().VideoID())
	assert.False(t, p.Advance())

	awaitStatus(t, p, videoplayer.StatusReady)
	require.Eventually(t, func() bool { return len(f.Backends()) == 3 }, 2*time.Second, time.Millisecond)
}

func TestPlayerKeys(t *testing.T) {
	p, f := newPlayer(t, videoplayer.Options{Videos: playlist[:1]})
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)

	assert.True(t, p.HandleKey(" "))
	assert.True(t, p.HandleKey("m"))
	assert.False(t, p.HandleKey("q"))
	assert.Equal(t, []string{"play", "mute"}, f.Last().Calls())
}

func TestPlayerModal(t *testing.T) {
	doc := &page{}
	var closed atomic.Int32
	p, f := newPlayer(t, videoplayer.Options{
		Videos:   playlist[:2],
		Variant:  videoplayer.Modal,
		Document: doc,
		OnClose:  func() { closed.Add(1) },
	})
	assert.Equal(t, 0, doc.Locked())
	assert.Equal(t, 0, doc.Listeners())
	assert.True(t, p.Layout().ShowQueue)
	assert.False(t, p.HandleKey("Escape"))

	p.Mount(context.Background())
	assert.Equal(t, 1, doc.Locked())
	assert.Equal(t, 1, doc.Listeners())
	awaitStatus(t, p, videoplayer.StatusReady)
	assert.True(t, f.Last().Options.Autoplay)
	videos, _ := p.Queue()
	assert.Len(t, videos, 2)

	assert.True(t, p.Advance())
	assert.Equal(t, "bbbbbbbbbbb", p.Current().VideoID())

	assert.True(t, p.HandleKey("Escape"))
	assert.False(t, p.HandleKey("Escape"))
	assert.Equal(t, int32(1), closed.Load())
	assert.Equal(t, 1, doc.Locked())

	p.Destroy()
	p.Destroy()
	assert.Equal(t, 0, doc.Locked())
	assert.Equal(t, int32(1), closed.Load())
}

func TestPlayerModalNeverMounted(t *testing.T) {
	doc := &page{}
	var closed atomic.Int32
	p, f := newPlayer(t, videoplayer.Options{
		Videos:   playlist,
		Variant:  videoplayer.Modal,
		Document: doc,
		OnClose:  func() { closed.Add(1) },
	})

	p.Close()
	assert.False(t, p.Advance())
	p.Destroy()

	assert.Equal(t, 0, doc.Locked())
	assert.Equal(t, 0, doc.Listeners())
	assert.Empty(t, f.Backends())
	assert.Equal(t, int32(0), closed.Load())
}

func TestPlayerSelectBeforeMount(t *testing.T) {
	p, f := newPlayer(t, videoplayer.Options{Videos: playlist, Variant: videoplayer.Expanded})

	assert.False(t, p.Select(1))
	assert.False(t, p.Advance())
	assert.Empty(t, f.Backends())
	videos, _ := p.Queue()
	assert.Empty(t, videos)

	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)
	require.Len(t, f.Backends(), 1)
	assert.Equal(t, "aaaaaaaaaaa", p.Current().VideoID())
}

func TestPlayerQueueHiddenInline(t *testing.T) {
	p, _ := newPlayer(t, videoplayer.Options{Videos: playlist, Variant: videoplayer.Inline})
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)

	assert.False(t, p.Layout().ShowQueue)
	videos, index := p.Queue()
	assert.Len(t, videos, 3)
	assert.Equal(t, 0, index)
}

func TestPlayerModalWithoutDocument(t *testing.T) {
	p, _ := newPlayer(t, videoplayer.Options{Videos: playlist[:1], Variant: videoplayer.Modal})
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)

	videos, _ := p.Queue()
	assert.Empty(t, videos)
	p.Close()
	assert.Nil(t, p.Current())
}

func TestPlayerDestroy(t *testing.T) {
	p, f := newPlayer(t, videoplayer.Options{Videos: playlist})
	p.Mount(context.Background())
	awaitStatus(t, p, videoplayer.StatusReady)

	p.Destroy()
	assert.True(t, p.Destroyed())
	assert.Nil(t, p.Current())
	assert.Equal(t, 1, f.Last().DestroyCount())
	assert.False(t, p.Select(1))
	assert.False(t, p.Advance())
	p.TogglePlayPause()
	assert.Empty(t, f.Last().Calls())
}

func TestPlayerPendingLoader(t *testing.T) {
	loader := videoplayer.NewPendingLoader()
	p, f := newPlayer(t, videoplayer.Options{Videos: playlist[:1], Loader: loader})
	p.Mount(context.Background())

	assert.Equal(t, videoplayer.StatusLoading, p.State().Status)
	assert.Empty(t, f.Backends())

	loader.Signal(nil)
	awaitStatus(t, p, videoplayer.StatusReady)
}
