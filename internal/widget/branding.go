package widget

import "regexp"

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const (
	defaultColorBackground = "#0a1628"
	defaultColorSurface    = "#1e293b"
	defaultColorText       = "#ffffff"
	defaultColorAccent     = "#00b67a"
	defaultName            = "playerkit"

	maxNameLength = 200
)

// Branding colors the widget. Colors are #RRGGBB.
type Branding struct {
	Name       string `json:"name"`
	Background string `json:"colorBackground"`
	Surface    string `json:"colorSurface"`
	Text       string `json:"colorText"`
	Accent     string `json:"colorAccent"`
}

func DefaultBranding() Branding {
	return Branding{
		Name:       defaultName,
		Background: defaultColorBackground,
		Surface:    defaultColorSurface,
		Text:       defaultColorText,
		Accent:     defaultColorAccent,
	}
}

func isValidHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// ValidateBranding returns a message for the first invalid field, or "".
// Empty fields are allowed and mean "use the default".
func ValidateBranding(b Branding) string {
	if len(b.Name) > maxNameLength {
		return "name must be 200 characters or fewer"
	}
	for _, pair := range []struct {
		val  string
		name string
	}{
		{b.Background, "colorBackground"},
		{b.Surface, "colorSurface"},
		{b.Text, "colorText"},
		{b.Accent, "colorAccent"},
	} {
		if pair.val != "" && !isValidHexColor(pair.val) {
			return "invalid " + pair.name + ": must be a hex color like #1a2b3c"
		}
	}
	return ""
}

// ResolveBranding applies the valid, non-empty overrides over the defaults.
func ResolveBranding(overrides Branding) Branding {
	b := DefaultBranding()
	if overrides.Name != "" && len(overrides.Name) <= maxNameLength {
		b.Name = overrides.Name
	}
	apply := func(dst *string, v string) {
		if isValidHexColor(v) {
			*dst = v
		}
	}
	apply(&b.Background, overrides.Background)
	apply(&b.Surface, overrides.Surface)
	apply(&b.Text, overrides.Text)
	apply(&b.Accent, overrides.Accent)
	return b
}
