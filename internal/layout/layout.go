package layout

import "strings"

// Variant is one of the three presets a player can be rendered in.
type Variant string

const (
	Inline   Variant = "inline"
	Expanded Variant = "expanded"
	Modal    Variant = "modal"
)

// InlineHeightPx is the fixed compact height of the inline variant.
const InlineHeightPx = 240

// AspectRatio is the expanded variant's fixed ratio, as a CSS value.
const AspectRatio = "16 / 9"

// Density is how much of the control surface a variant shows.
type Density string

const (
	DensityReduced Density = "reduced"
	DensityFull    Density = "full"
)

// ParseVariant maps a query value to a variant. Unknown or empty values fall
// back to Expanded and report false.
func ParseVariant(s string) (Variant, bool) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case Inline:
		return Inline, true
	case Expanded:
		return Expanded, true
	case Modal:
		return Modal, true
	default:
		return Expanded, false
	}
}

func (v Variant) String() string { return string(v) }

// Request is what the host knows when it asks for a layout.
type Request struct {
	Variant  Variant
	Autoplay bool
	// Narrow is set for clients without room for the full control bar.
	Narrow   bool
	QueueLen int
}

// Config is the resolved presentation of one player. It only describes the
// layout; rendering is up to the caller.
type Config struct {
	Variant       Variant `json:"variant"`
	HeightPx      int     `json:"heightPx,omitempty"`
	AspectRatio   string  `json:"aspectRatio,omitempty"`
	FillViewport  bool    `json:"fillViewport"`
	Autoplay      bool    `json:"autoplay"`
	Density       Density `json:"density"`
	ShowSpeedMenu bool    `json:"showSpeedMenu"`
	ShowQueue     bool    `json:"showQueue"`
}

// Resolve maps a request to its layout.
//
//	inline    fixed 240px height, never autoplays, reduced controls
//	expanded  fluid width at 16/9, caller's autoplay, full controls
//	modal     fills the overlay, always autoplays, full controls and a queue
func Resolve(r Request) Config {
	switch r.Variant {
	case Inline:
		return Config{
			Variant:       Inline,
			HeightPx:      InlineHeightPx,
			Autoplay:      false,
			Density:       DensityReduced,
			ShowSpeedMenu: !r.Narrow,
		}
	case Modal:
		return Config{
			Variant:       Modal,
			FillViewport:  true,
			Autoplay:      true,
			Density:       DensityFull,
			ShowSpeedMenu: true,
			ShowQueue:     r.QueueLen > 1,
		}
	default:
		return Config{
			Variant:       Expanded,
			AspectRatio:   AspectRatio,
			Autoplay:      r.Autoplay,
			Density:       DensityFull,
			ShowSpeedMenu: true,
		}
	}
}
