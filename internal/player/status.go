package player

// Status is the controller's lifecycle position for the currently bound video.
type Status int

const (
	// StatusUninitialized is the state before construction of the external
	// player has been requested.
	StatusUninitialized Status = iota

	// StatusLoading begins once construction is requested and lasts until the
	// external player reports readiness. A failed load stays here.
	StatusLoading

	// StatusReady is entered on the external ready callback.
	StatusReady

	// StatusPlaying follows a PLAYING state-change event.
	StatusPlaying

	// StatusPaused follows a PAUSED state-change event.
	StatusPaused

	// StatusEnded is terminal for the bound video.
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Interactive reports whether control operations are accepted.
func (s Status) Interactive() bool {
	return s == StatusReady || s == StatusPlaying || s == StatusPaused
}

// BackendState mirrors the IFrame API's YT.PlayerState values.
type BackendState int

const (
	BackendUnstarted BackendState = -1
	BackendEnded     BackendState = 0
	BackendPlaying   BackendState = 1
	BackendPaused    BackendState = 2
	BackendBuffering BackendState = 3
	BackendCued      BackendState = 5
)

func (s BackendState) String() string {
	switch s {
	case BackendUnstarted:
		return "UNSTARTED"
	case BackendEnded:
		return "ENDED"
	case BackendPlaying:
		return "PLAYING"
	case BackendPaused:
		return "PAUSED"
	case BackendBuffering:
		return "BUFFERING"
	case BackendCued:
		return "CUED"
	default:
		return "UNKNOWN"
	}
}
