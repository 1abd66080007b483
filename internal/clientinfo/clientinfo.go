// Package clientinfo describes the browser a page is rendered for: whether
// it is touch-first and where it is connecting from.
package clientinfo

import (
	"net/http"

	"github.com/mssola/useragent"
	"github.com/sendrec/playerkit/internal/ratelimit"
)

type Info struct {
	Mobile  bool
	Bot     bool
	OS      string
	Browser string
	Country string
}

// TouchPrimary clients keep controls on screen; they have no hover.
func (i Info) TouchPrimary() bool { return i.Mobile }

// Narrow clients get the reduced inline controls.
func (i Info) Narrow() bool { return i.Mobile }

// Parse reads a User-Agent header.
func Parse(header string) Info {
	ua := useragent.New(header)
	name, _ := ua.Browser()
	return Info{
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
		OS:      ua.OS(),
		Browser: name,
	}
}

type Detector struct {
	geo *Locator
}

// NewDetector returns a detector. geo may be nil.
func NewDetector(geo *Locator) *Detector {
	return &Detector{geo: geo}
}

func (d *Detector) Detect(r *http.Request) Info {
	info := Parse(r.UserAgent())
	if d != nil && d.geo != nil {
		info.Country = d.geo.Country(ratelimit.ClientIP(r))
	}
	return info
}
