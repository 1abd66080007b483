package controls

import (
	"strconv"
	"strings"
)

// Controls is the control surface of a player. *player.Controller
// satisfies it.
type Controls interface {
	TogglePlayPause()
	SetVolume(v int)
	ToggleMute()
	SetPlaybackRate(rate float64)
	ToggleFullscreen()
}

// Action names a user interaction with the overlay.
type Action string

const (
	ActionTogglePlay      Action = "toggle-play"
	ActionToggleMute      Action = "toggle-mute"
	ActionVolume          Action = "volume"
	ActionToggleSpeedMenu Action = "speed-menu"
	ActionSpeed           Action = "speed"
	ActionFullscreen      Action = "fullscreen"
	ActionShortcuts       Action = "shortcuts"
)

// Intent is one interaction, as sent by the rendered overlay.
type Intent struct {
	Action Action `json:"action"`
	Value  string `json:"value,omitempty"`
}

// Dispatch applies an intent. Malformed values are ignored. It reports
// whether the menu changed, so callers know to re-render without a state
// change.
func Dispatch(c Controls, menu *Menu, in Intent) bool {
	before := *menu
	switch in.Action {
	case ActionTogglePlay:
		c.TogglePlayPause()
	case ActionToggleMute:
		c.ToggleMute()
	case ActionVolume:
		v, err := strconv.Atoi(strings.TrimSpace(in.Value))
		if err != nil {
			return false
		}
		c.SetVolume(v)
	case ActionToggleSpeedMenu:
		menu.SpeedOpen = !menu.SpeedOpen
		menu.ShortcutsOpen = false
	case ActionSpeed:
		rate, err := strconv.ParseFloat(strings.TrimSpace(in.Value), 64)
		if err != nil {
			return false
		}
		c.SetPlaybackRate(rate)
		menu.SpeedOpen = false
	case ActionFullscreen:
		c.ToggleFullscreen()
	case ActionShortcuts:
		menu.ShortcutsOpen = !menu.ShortcutsOpen
		menu.SpeedOpen = false
	}
	return *menu != before
}

// HandleKey applies a keyboard shortcut and reports whether the key was
// consumed. Keys follow KeyboardEvent.key.
func HandleKey(c Controls, key string) bool {
	switch key {
	case " ", "Spacebar":
		c.TogglePlayPause()
	case "m", "M":
		c.ToggleMute()
	case "f", "F":
		c.ToggleFullscreen()
	default:
		return false
	}
	return true
}
