package player

import "context"

// Options are the construction parameters passed to the embeddable player.
// They correspond to the IFrame API's videoId and playerVars.
type Options struct {
	VideoID            string `json:"videoId"`
	Autoplay           bool   `json:"autoplay"`
	Controls           bool   `json:"controls"`
	ModestBranding     bool   `json:"modestBranding"`
	RelatedFromChannel bool   `json:"relatedFromChannel"`
	PlaysInline        bool   `json:"playsInline"`
	DisableKeyboard    bool   `json:"disableKeyboard"`
	HideAnnotations    bool   `json:"hideAnnotations"`
}

// PlayerVars renders the options in the IFrame API's playerVars shape.
func (o Options) PlayerVars() map[string]int {
	return map[string]int{
		"autoplay":       boolInt(o.Autoplay),
		"controls":       boolInt(o.Controls),
		"modestbranding": boolInt(o.ModestBranding),
		"rel":            boolInt(o.RelatedFromChannel),
		"playsinline":    boolInt(o.PlaysInline),
		"disablekb":      boolInt(o.DisableKeyboard),
		"iv_load_policy": ivLoadPolicy(o.HideAnnotations),
		"fs":             0,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func ivLoadPolicy(hide bool) int {
	if hide {
		return 3
	}
	return 1
}

// Backend is one constructed external player instance. Calls are
// fire-and-forget; outcomes arrive later as Events.
type Backend interface {
	Play()
	Pause()
	Mute()
	Unmute()
	SetVolume(volume int)
	SetPlaybackRate(rate float64)
	CurrentTime() float64
	Duration() float64
	Destroy()
}

// Events are the two external callbacks a controller subscribes to.
type Events interface {
	Ready()
	StateChanged(state BackendState)
}

// Factory constructs external players. Create may block until the player
// object exists but must not wait for readiness; readiness arrives through
// Events.Ready.
type Factory interface {
	Create(ctx context.Context, opts Options, events Events) (Backend, error)
}

// Host is the element hosting the player, used for fullscreen.
type Host interface {
	FullscreenSupported() bool
	RequestFullscreen() error
	ExitFullscreen() error
}
