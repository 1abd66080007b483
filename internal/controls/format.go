package controls

import (
	"math"
	"strconv"
)

// FormatTime renders seconds as M:SS. Minutes are unbounded; NaN, infinite
// and negative inputs render as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int64(math.Floor(seconds))
	m, s := total/60, total%60
	if s < 10 {
		return strconv.FormatInt(m, 10) + ":0" + strconv.FormatInt(s, 10)
	}
	return strconv.FormatInt(m, 10) + ":" + strconv.FormatInt(s, 10)
}

// ProgressPercent is the progress-bar fill, always within [0, 100]. It is 0
// until the duration is known.
func ProgressPercent(current, duration float64) float64 {
	if !(duration > 0) || math.IsInf(duration, 0) || math.IsNaN(current) || current <= 0 {
		return 0
	}
	p := current / duration * 100
	if p > 100 {
		return 100
	}
	return p
}

// RateLabel formats a playback rate the way the speed menu shows it, e.g. "1.25x".
func RateLabel(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "x"
}
