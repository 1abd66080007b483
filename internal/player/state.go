package player

import "math"

// PlaybackRates is the closed set of speeds the controls offer.
var PlaybackRates = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

const (
	DefaultVolume = 100
	DefaultRate   = 1.0
)

// ValidRate reports whether rate is one of PlaybackRates.
func ValidRate(rate float64) bool {
	for _, r := range PlaybackRates {
		if r == rate {
			return true
		}
	}
	return false
}

// ClampVolume maps any input into 0..100.
func ClampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// State is a snapshot of one controller's playback state. Snapshots are
// values; mutating one has no effect on the controller.
type State struct {
	Status             Status  `json:"status"`
	IsPlaying          bool    `json:"isPlaying"`
	CurrentTimeSeconds float64 `json:"currentTimeSeconds"`
	DurationSeconds    float64 `json:"durationSeconds"`
	Volume             int     `json:"volume"`
	IsMuted            bool    `json:"isMuted"`
	IsFullscreen       bool    `json:"isFullscreen"`
	PlaybackRate       float64 `json:"playbackRate"`
	ControlsVisible    bool    `json:"controlsVisible"`

	Playable   bool   `json:"playable"`
	LoadFailed bool   `json:"loadFailed"`
	LoadError  string `json:"loadError,omitempty"`

	// Revision increases with every change so consumers receiving snapshots
	// from several goroutines can drop stale ones.
	Revision uint64 `json:"revision"`
}

// InitialState is the snapshot of a controller that has not been mounted.
func InitialState(playable, touchPrimary bool) State {
	return State{
		Status:          StatusUninitialized,
		Volume:          DefaultVolume,
		PlaybackRate:    DefaultRate,
		ControlsVisible: touchPrimary,
		Playable:        playable,
	}
}

// clampTime keeps the current time within [0, duration] once the duration
// is known.
func clampTime(t, duration float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if duration > 0 && t > duration {
		return duration
	}
	return t
}
