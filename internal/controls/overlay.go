package controls

import (
	"github.com/sendrec/playerkit/internal/layout"
	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/player"
)

// WatchLinkRel keeps the source site from seeing where the viewer came from.
const WatchLinkRel = "noopener noreferrer"

// Menu is the open/closed state of the overlay's popups. It is UI state,
// not playback state, and lives with whoever renders the overlay.
type Menu struct {
	SpeedOpen     bool `json:"speedOpen"`
	ShortcutsOpen bool `json:"shortcutsOpen"`
}

// SpeedOption is one entry of the speed menu.
type SpeedOption struct {
	Rate   float64
	Label  string
	Active bool
}

// Shortcut is one row of the keyboard shortcut panel.
type Shortcut struct {
	Action string
	Keys   []string
}

// Shortcuts lists the keys the overlay responds to.
var Shortcuts = []Shortcut{
	{Action: "Play / Pause", Keys: []string{"Space"}},
	{Action: "Mute", Keys: []string{"M"}},
	{Action: "Fullscreen", Keys: []string{"F"}},
	{Action: "Close", Keys: []string{"Esc"}},
}

// Link is an anchor that opens in a new browsing context.
type Link struct {
	Href   string
	Label  string
	Target string
	Rel    string
}

// Overlay is everything needed to draw the control surface for one state.
type Overlay struct {
	VideoID string
	Title   string

	Loading    bool
	LoadFailed bool
	Playable   bool
	Ended      bool
	Visible    bool

	Playing   bool
	PlayLabel string

	Muted     bool
	MuteLabel string
	Volume    int

	CurrentLabel  string
	DurationLabel string
	Progress      float64

	Fullscreen      bool
	FullscreenLabel string

	ShowSpeedMenu bool
	SpeedOpen     bool
	SpeedLabel    string
	Speeds        []SpeedOption

	ShortcutsOpen bool
	Shortcuts     []Shortcut

	Watch Link
}

// Build derives the overlay from a snapshot. It holds no state of its own.
func Build(s player.State, cfg layout.Config, menu Menu, video metadata.VideoMetadata) Overlay {
	id, _ := video.ResolvedID()
	o := Overlay{
		VideoID:    id,
		Title:      video.DisplayTitle(),
		Loading:    s.Status == player.StatusLoading,
		LoadFailed: s.LoadFailed,
		Playable:   s.Playable,
		Ended:      s.Status == player.StatusEnded,
		Visible:    s.ControlsVisible,

		Playing:   s.IsPlaying,
		PlayLabel: "Play",

		Muted:     s.IsMuted,
		MuteLabel: "Mute",
		Volume:    s.Volume,

		CurrentLabel:  FormatTime(s.CurrentTimeSeconds),
		DurationLabel: FormatTime(s.DurationSeconds),
		Progress:      ProgressPercent(s.CurrentTimeSeconds, s.DurationSeconds),

		Fullscreen:      s.IsFullscreen,
		FullscreenLabel: "Fullscreen",

		ShowSpeedMenu: cfg.ShowSpeedMenu,
		SpeedOpen:     cfg.ShowSpeedMenu && menu.SpeedOpen,
		SpeedLabel:    RateLabel(s.PlaybackRate),

		ShortcutsOpen: menu.ShortcutsOpen,
		Shortcuts:     Shortcuts,

		Watch: Link{
			Href:   video.WatchLink(),
			Label:  watchLabel(video),
			Target: "_blank",
			Rel:    WatchLinkRel,
		},
	}
	if s.IsPlaying {
		o.PlayLabel = "Pause"
	}
	if s.IsMuted {
		o.MuteLabel = "Unmute"
	}
	if s.IsFullscreen {
		o.FullscreenLabel = "Exit fullscreen"
	}
	for _, r := range player.PlaybackRates {
		o.Speeds = append(o.Speeds, SpeedOption{Rate: r, Label: RateLabel(r), Active: r == s.PlaybackRate})
	}
	return o
}

func watchLabel(v metadata.VideoMetadata) string {
	if v.CTAText != "" {
		return v.CTAText
	}
	return "Watch on YouTube"
}

// Visible reports whether controls should show: while the pointer is over
// the player or focus is inside it, and always on touch-primary devices.
func Visible(pointerInside, focusWithin, touchPrimary bool) bool {
	return touchPrimary || pointerInside || focusWithin
}
