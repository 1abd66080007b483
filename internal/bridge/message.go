package bridge

// Message types sent to the page.
const (
	TypeConstruct  = "construct"
	TypeCall       = "call"
	TypeDestroy    = "destroy"
	TypeRender     = "render"
	TypeScroll     = "scroll"
	TypeFullscreen = "fullscreen"
	TypeClose      = "close"
)

// Message types received from the page.
const (
	TypeHello            = "hello"
	TypeAPI              = "api"
	TypeReady            = "ready"
	TypeStateChange      = "stateChange"
	TypeTime             = "time"
	TypeFullscreenChange = "fullscreenChange"
	TypeKey              = "key"
	TypeIntent           = "intent"
	TypePointer          = "pointer"
	TypeClick            = "click"
)

// Message is one frame of the bridge protocol in either direction. Player
// names the browser-side player instance a frame belongs to.
type Message struct {
	Type   string `json:"type"`
	Player string `json:"player,omitempty"`

	// construct
	Video string         `json:"video,omitempty"`
	Vars  map[string]int `json:"vars,omitempty"`

	// call
	Method string `json:"method,omitempty"`
	Args   []any  `json:"args,omitempty"`

	// render
	Region string `json:"region,omitempty"`
	HTML   string `json:"html,omitempty"`

	// scroll, fullscreen
	On bool `json:"on,omitempty"`

	// hello
	Fullscreen bool `json:"fullscreen,omitempty"`
	Touch      bool `json:"touch,omitempty"`
	Width      int  `json:"width,omitempty"`

	// api
	Error string `json:"error,omitempty"`

	// ready, stateChange, time
	Duration float64 `json:"duration,omitempty"`
	State    int     `json:"state,omitempty"`
	Time     float64 `json:"time,omitempty"`

	// key
	Key string `json:"key,omitempty"`

	// intent
	Action string `json:"action,omitempty"`
	Value  string `json:"value,omitempty"`

	// pointer
	Inside bool `json:"inside,omitempty"`
	Focus  bool `json:"focus,omitempty"`

	// click
	Target string `json:"target,omitempty"`
}
