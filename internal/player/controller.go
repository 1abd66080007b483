package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sendrec/playerkit/internal/metadata"
)

// PollInterval is how often the current time is read while playing. The
// IFrame API does not push time updates, so this poll is the only source of
// progress.
const PollInterval = 100 * time.Millisecond

var errNoFactory = errors.New("no player factory configured")

// Config binds a controller to one video. Callbacks run on the goroutine
// that caused the change, never with the controller's lock held.
type Config struct {
	Video        metadata.VideoMetadata
	Autoplay     bool
	Factory      Factory
	Loader       *Loader
	Host         Host
	Clock        clockwork.Clock
	Logger       *slog.Logger
	TouchPrimary bool

	OnEnded  func()
	OnPlay   func()
	OnChange func(State)
}

// Controller owns the playback state of one mounted player and drives one
// external player instance. A controller is never rebound: a new video gets
// a new controller.
//
// All methods are safe for concurrent use and return immediately.
type Controller struct {
	cfg     Config
	videoID string
	clock   clockwork.Clock
	logger  *slog.Logger

	mu           sync.Mutex
	state        State
	backend      Backend // guarded by mu
	readyPending bool
	pollStop     chan struct{}
	destroyed    bool
}

// New returns an uninitialized controller. Nothing is constructed until
// Mount.
func New(cfg Config) *Controller {
	id, playable := cfg.Video.ResolvedID()
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:     cfg,
		videoID: id,
		clock:   clock,
		logger:  logger.With("video_id", id),
		state:   InitialState(playable, cfg.TouchPrimary),
	}
}

// Video returns the metadata this controller is bound to.
func (c *Controller) Video() metadata.VideoMetadata {
	return c.cfg.Video
}

// VideoID returns the resolved player identifier, or "" when the video is
// not playable.
func (c *Controller) VideoID() string {
	return c.videoID
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Polling reports whether the time poll is running.
func (c *Controller) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollStop != nil
}

// Destroyed reports whether Destroy has been called.
func (c *Controller) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Mount requests construction of the external player. The API load and the
// construction happen in the background; readiness arrives through Ready.
// Non-playable videos are never mounted.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.destroyed || c.state.Status != StatusUninitialized || !c.state.Playable {
		c.mu.Unlock()
		return
	}
	c.state.Status = StatusLoading
	snap := c.bumpLocked()
	c.mu.Unlock()

	c.emit(snap)
	go c.construct(ctx)
}

func (c *Controller) construct(ctx context.Context) {
	if c.cfg.Loader != nil {
		if err := c.cfg.Loader.Wait(ctx); err != nil {
			c.failLoad(err)
			return
		}
	}
	if c.cfg.Factory == nil {
		c.failLoad(errNoFactory)
		return
	}

	b, err := c.cfg.Factory.Create(ctx, c.options(), c)
	if err != nil {
		c.failLoad(err)
		return
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		b.Destroy()
		return
	}
	c.backend = b
	pending := c.readyPending
	c.readyPending = false
	c.mu.Unlock()

	if pending {
		c.Ready()
	}
}

func (c *Controller) options() Options {
	return Options{
		VideoID:            c.videoID,
		Autoplay:           c.cfg.Autoplay,
		Controls:           false,
		ModestBranding:     true,
		RelatedFromChannel: false,
		PlaysInline:        true,
		DisableKeyboard:    true,
		HideAnnotations:    true,
	}
}

func (c *Controller) failLoad(err error) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.state.LoadFailed = true
	c.state.LoadError = err.Error()
	snap := c.bumpLocked()
	c.mu.Unlock()

	c.logger.Warn("player: load failed, staying in loading", "error", err)
	c.emit(snap)
}

// Ready handles the external ready callback. The duration is read once.
func (c *Controller) Ready() {
	c.mu.Lock()
	if c.destroyed || c.state.Status != StatusLoading {
		c.mu.Unlock()
		return
	}
	b := c.backend
	if b == nil {
		// Fired before Create returned.
		c.readyPending = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	duration := b.Duration()

	c.mu.Lock()
	if c.destroyed || c.state.Status != StatusLoading || c.backend != b {
		c.mu.Unlock()
		return
	}
	if duration > 0 {
		c.state.DurationSeconds = duration
	}
	c.state.Status = StatusReady
	c.state.LoadFailed = false
	c.state.LoadError = ""
	snap := c.bumpLocked()
	c.mu.Unlock()

	c.logger.Debug("player: ready", "duration_seconds", duration)
	c.emit(snap)
}

// StateChanged applies an external state-change event. Events are applied
// in arrival order and only after Ready.
func (c *Controller) StateChanged(s BackendState) {
	c.mu.Lock()
	if c.destroyed || !c.state.Status.Interactive() {
		c.mu.Unlock()
		return
	}

	var callback func()
	switch s {
	case BackendPlaying:
		if c.state.Status == StatusPlaying {
			c.mu.Unlock()
			return
		}
		c.state.Status = StatusPlaying
		c.state.IsPlaying = true
		c.startPollLocked()
		callback = c.cfg.OnPlay
	case BackendPaused:
		if c.state.Status == StatusPaused {
			c.mu.Unlock()
			return
		}
		c.state.Status = StatusPaused
		c.state.IsPlaying = false
		c.stopPollLocked()
	case BackendEnded:
		c.state.Status = StatusEnded
		c.state.IsPlaying = false
		c.stopPollLocked()
		if c.state.DurationSeconds > 0 {
			c.state.CurrentTimeSeconds = c.state.DurationSeconds
		}
		callback = c.cfg.OnEnded
	default:
		c.mu.Unlock()
		return
	}
	snap := c.bumpLocked()
	c.mu.Unlock()

	c.logger.Debug("player: state changed", "backend_state", s.String(), "status", snap.Status.String())
	c.emit(snap)
	if callback != nil {
		callback()
	}
}

// TogglePlayPause asks the external player to play or pause. The state flips
// only when the matching state-change event arrives.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	b, ok := c.activeLocked()
	playing := c.state.IsPlaying
	c.mu.Unlock()
	if !ok {
		return
	}
	if playing {
		b.Pause()
	} else {
		b.Play()
	}
}

// SetVolume clamps v to 0..100 and forwards it. The external API has no
// volume event, so the state is echoed locally and IsMuted follows v == 0.
func (c *Controller) SetVolume(v int) {
	v = ClampVolume(v)

	c.mu.Lock()
	b, ok := c.activeLocked()
	if !ok {
		c.mu.Unlock()
		return
	}
	wasMuted := c.state.IsMuted
	c.state.Volume = v
	c.state.IsMuted = v == 0
	snap := c.bumpLocked()
	c.mu.Unlock()

	b.SetVolume(v)
	switch {
	case v == 0 && !wasMuted:
		b.Mute()
	case v > 0 && wasMuted:
		b.Unmute()
	}
	c.emit(snap)
}

// ToggleMute mutes or unmutes without touching the volume value.
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	b, ok := c.activeLocked()
	if !ok {
		c.mu.Unlock()
		return
	}
	muted := !c.state.IsMuted
	c.state.IsMuted = muted
	snap := c.bumpLocked()
	c.mu.Unlock()

	if muted {
		b.Mute()
	} else {
		b.Unmute()
	}
	c.emit(snap)
}

// SetPlaybackRate forwards rate when it is one of PlaybackRates; anything
// else is ignored.
func (c *Controller) SetPlaybackRate(rate float64) {
	if !ValidRate(rate) {
		c.logger.Debug("player: rejected playback rate", "rate", rate)
		return
	}

	c.mu.Lock()
	b, ok := c.activeLocked()
	if !ok {
		c.mu.Unlock()
		return
	}
	c.state.PlaybackRate = rate
	snap := c.bumpLocked()
	c.mu.Unlock()

	b.SetPlaybackRate(rate)
	c.emit(snap)
}

// ToggleFullscreen enters or leaves fullscreen on the host element. Hosts
// without fullscreen support make this a no-op.
func (c *Controller) ToggleFullscreen() {
	host := c.cfg.Host
	if host == nil || !host.FullscreenSupported() {
		return
	}

	c.mu.Lock()
	_, ok := c.activeLocked()
	target := !c.state.IsFullscreen
	c.mu.Unlock()
	if !ok {
		return
	}

	var err error
	if target {
		err = host.RequestFullscreen()
	} else {
		err = host.ExitFullscreen()
	}
	if err != nil {
		c.logger.Debug("player: fullscreen request refused", "error", err)
		return
	}
	c.FullscreenChanged(target)
}

// FullscreenChanged records a fullscreen change reported by the host, such as
// the user leaving fullscreen with the platform's own gesture.
func (c *Controller) FullscreenChanged(active bool) {
	c.mu.Lock()
	if c.destroyed || c.state.IsFullscreen == active {
		c.mu.Unlock()
		return
	}
	c.state.IsFullscreen = active
	snap := c.bumpLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// SetControlsVisible records whether the control surface is shown.
func (c *Controller) SetControlsVisible(visible bool) {
	c.mu.Lock()
	if c.destroyed || c.state.ControlsVisible == visible {
		c.mu.Unlock()
		return
	}
	c.state.ControlsVisible = visible
	snap := c.bumpLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Destroy stops the poll and tears down the external player. It is
// idempotent and safe to call from inside the controller's own callbacks.
func (c *Controller) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.stopPollLocked()
	b := c.backend
	c.backend = nil
	c.state.IsPlaying = false
	c.mu.Unlock()

	if b != nil {
		b.Destroy()
	}
	c.logger.Debug("player: destroyed")
}

func (c *Controller) activeLocked() (Backend, bool) {
	if c.destroyed || c.backend == nil || !c.state.Status.Interactive() {
		return nil, false
	}
	return c.backend, true
}

func (c *Controller) bumpLocked() State {
	c.state.Revision++
	return c.state
}

func (c *Controller) emit(s State) {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(s)
	}
}

func (c *Controller) startPollLocked() {
	if c.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	c.pollStop = stop
	ticker := c.clock.NewTicker(PollInterval)
	go c.poll(ticker, stop)
}

func (c *Controller) stopPollLocked() {
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

func (c *Controller) poll(ticker clockwork.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			c.sample(stop)
		}
	}
}

// sample reads the current time. A tick racing a stop or destroy is dropped
// because stop no longer matches pollStop.
func (c *Controller) sample(stop chan struct{}) {
	c.mu.Lock()
	if c.pollStop != stop || c.backend == nil {
		c.mu.Unlock()
		return
	}
	b := c.backend
	c.mu.Unlock()

	now := b.CurrentTime()

	c.mu.Lock()
	if c.pollStop != stop {
		c.mu.Unlock()
		return
	}
	next := clampTime(now, c.state.DurationSeconds)
	if next == c.state.CurrentTimeSeconds {
		c.mu.Unlock()
		return
	}
	c.state.CurrentTimeSeconds = next
	snap := c.bumpLocked()
	c.mu.Unlock()
	c.emit(snap)
}
