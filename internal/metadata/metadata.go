// Package metadata holds the video record handed to the widget by the chat
// service and the rules for deriving a playable identifier from it.
package metadata

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sendrec/playerkit/internal/validate"
)

// VideoMetadata describes one playable video. Records are produced upstream
// and treated as immutable once received.
type VideoMetadata struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Duration     string `json:"duration"`
	ThumbnailURL string `json:"thumbnailUrl"`
	WatchURL     string `json:"watchUrl"`
	EmbedURL     string `json:"embedUrl"`
	ChannelName  string `json:"channelName"`
	PublishedAt  string `json:"publishedAt,omitempty"`
	CTAText      string `json:"ctaText,omitempty"`
}

var videoIDPattern = regexp.MustCompile(`(?:watch\?(?:[^#]*&)?v=|youtu\.be/|/embed/|/shorts/)([A-Za-z0-9_-]+)`)

var bareIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,64}$`)

// ExtractVideoID pulls the player identifier out of a bare id or a watch?v=,
// youtu.be/, embed/ or shorts/ URL. It returns "" when none of the forms
// match.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if bareIDPattern.MatchString(raw) {
		return raw
	}
	if m := videoIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	// embed/ID without a leading slash, e.g. "embed/abc123"
	if rest, ok := strings.CutPrefix(raw, "embed/"); ok {
		if m := bareIDPattern.FindString(firstSegment(rest)); m != "" {
			return m
		}
	}
	return ""
}

func firstSegment(s string) string {
	if i := strings.IndexAny(s, "/?#&"); i >= 0 {
		return s[:i]
	}
	return s
}

// ResolvedID returns the explicit VideoID, falling back to extraction from
// WatchURL and then EmbedURL.
func (v VideoMetadata) ResolvedID() (string, bool) {
	if id := strings.TrimSpace(v.VideoID); id != "" {
		return id, true
	}
	if id := ExtractVideoID(v.WatchURL); id != "" {
		return id, true
	}
	if id := ExtractVideoID(v.EmbedURL); id != "" {
		return id, true
	}
	return "", false
}

// Playable reports whether a player can be constructed for the record.
func (v VideoMetadata) Playable() bool {
	_, ok := v.ResolvedID()
	return ok
}

// WatchLink is the external "watch on source" link. Records without a
// WatchURL get a canonical YouTube link when an id resolves.
func (v VideoMetadata) WatchLink() string {
	if v.WatchURL != "" {
		return v.WatchURL
	}
	if id, ok := v.ResolvedID(); ok {
		return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
	}
	return ""
}

// DisplayTitle never returns an empty string so templates always have a label.
func (v VideoMetadata) DisplayTitle() string {
	if t := strings.TrimSpace(v.Title); t != "" {
		return t
	}
	return "Untitled video"
}

// Validate performs the basic shape checks applied on ingest and returns a
// user-facing message, or "" when the record is acceptable. A record without
// any resolvable id is still accepted; it renders as metadata only.
func Validate(v VideoMetadata) string {
	checks := []string{
		validate.VideoID(v.VideoID),
		validate.Title(v.Title),
		validate.Description(v.Description),
		validate.Duration(v.Duration),
		validate.ChannelName(v.ChannelName),
		validate.CTAText(v.CTAText),
		validate.URL("thumbnail url", v.ThumbnailURL),
		validate.URL("watch url", v.WatchURL),
		validate.URL("embed url", v.EmbedURL),
	}
	for _, msg := range checks {
		if msg != "" {
			return msg
		}
	}
	if v.VideoID == "" && v.WatchURL == "" && v.EmbedURL == "" {
		return "one of videoId, watchUrl or embedUrl is required"
	}
	return ""
}
