package widget

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/sendrec/playerkit/internal/controls"
	"github.com/sendrec/playerkit/internal/layout"
	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/queue"
)

// Regions of the page the server re-renders while a session is live.
const (
	RegionOverlay  = "overlay"
	RegionQueue    = "queue"
	RegionFallback = "fallback"
)

// Fallback is shown instead of a player: for videos without a playable id,
// and when the player could not be loaded.
type Fallback struct {
	Title     string
	Channel   string
	Duration  string
	Thumbnail string
	WatchURL  string
	WatchRel  string
	Reason    string
}

// NewFallback describes v without a player.
func NewFallback(v metadata.VideoMetadata, reason string) Fallback {
	return Fallback{
		Title:     v.DisplayTitle(),
		Channel:   v.ChannelName,
		Duration:  v.Duration,
		Thumbnail: v.ThumbnailURL,
		WatchURL:  v.WatchLink(),
		WatchRel:  controls.WatchLinkRel,
		Reason:    reason,
	}
}

// Page is the data for a full widget page.
type Page struct {
	Nonce      string
	Title      string
	Branding   Branding
	Layout     layout.Config
	SocketPath string

	Playable bool
	Overlay  controls.Overlay
	Fallback Fallback
	Queue    []queue.Item
}

var templates = template.Must(template.Must(controls.Templates.Clone()).Funcs(template.FuncMap{
	"controlsCSS": func() template.CSS { return template.CSS(controls.CSS) },
	"bridgeJS":    func() template.JS { return template.JS(bridgeJS) },
	"inc":         func(i int) int { return i + 1 },
}).Parse(`
{{define "queue"}}<ol class="pk-queue">
{{- range .}}
    <li class="pk-queue-item{{if .Current}} active{{end}}" data-index="{{.Index}}"{{if .Current}} aria-current="true"{{end}}>
        <span class="pk-queue-pos">{{inc .Index}}</span>
        {{- if .Thumb}}<img class="pk-queue-thumb" src="{{.Thumb}}" alt="">{{end}}
        <span class="pk-queue-title">{{.Title}}</span>
        {{- if .Duration}}<span class="pk-queue-duration">{{.Duration}}</span>{{end}}
    </li>
{{- end}}
</ol>{{end}}

{{define "fallback"}}<div class="pk-fallback">
    {{- if .Thumbnail}}<img class="pk-fallback-thumb" src="{{.Thumbnail}}" alt="">{{end}}
    <div class="pk-fallback-body">
        <h2>{{.Title}}</h2>
        {{- if .Channel}}<p class="pk-fallback-channel">{{.Channel}}{{if .Duration}} &middot; {{.Duration}}{{end}}</p>{{end}}
        {{- if .Reason}}<p class="pk-fallback-reason">{{.Reason}}</p>{{end}}
        <a href="{{.WatchURL}}" target="_blank" rel="{{.WatchRel}}">Watch on YouTube</a>
    </div>
</div>{{end}}

{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}} &middot; {{.Branding.Name}}</title>
    <style nonce="{{.Nonce}}">
        :root {
            --player-accent: {{.Branding.Accent}};
            --pk-background: {{.Branding.Background}};
            --pk-surface: {{.Branding.Surface}};
            --pk-text: {{.Branding.Text}};
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        html, body { width: 100%; height: 100%; background: var(--pk-background); color: var(--pk-text); font-family: system-ui, sans-serif; }
        #pk-root.closed { display: none; }
        .pk-modal {
            position: fixed;
            inset: 0;
            display: flex;
            align-items: center;
            justify-content: center;
            padding: 24px;
            background: rgba(0, 0, 0, 0.75);
            z-index: 50;
        }
        .pk-content { display: flex; gap: 16px; width: 100%; }
        .pk-modal .pk-content { max-width: 1200px; height: 100%; background: var(--pk-surface); border-radius: 12px; padding: 16px; }
        .pk-stage { position: relative; flex: 1; background: #000; overflow: hidden; border-radius: 8px; }
        .pk-stage.inline { height: {{.Layout.HeightPx}}px; }
        .pk-stage.expanded { aspect-ratio: 16 / 9; }
        .pk-stage.modal { height: 100%; }
        #pk-frame, #pk-frame iframe { position: absolute; inset: 0; width: 100%; height: 100%; border: 0; }
        .pk-queue { list-style: none; width: 300px; overflow-y: auto; }
        .pk-queue-item { display: flex; align-items: center; gap: 8px; padding: 8px; border-radius: 6px; cursor: pointer; }
        .pk-queue-item:hover { background: rgba(255, 255, 255, 0.06); }
        .pk-queue-item.active { background: rgba(255, 255, 255, 0.12); }
        .pk-queue-pos { width: 20px; color: #94a3b8; font-size: 12px; text-align: center; }
        .pk-queue-thumb { width: 96px; height: 54px; object-fit: cover; border-radius: 4px; }
        .pk-queue-title { flex: 1; font-size: 13px; }
        .pk-queue-duration { color: #94a3b8; font-size: 11px; font-family: monospace; }
        .pk-fallback { position: absolute; inset: 0; display: flex; align-items: center; gap: 16px; padding: 16px; background: var(--pk-surface); }
        .pk-fallback-thumb { max-width: 45%; max-height: 100%; border-radius: 6px; }
        .pk-fallback h2 { font-size: 16px; margin-bottom: 6px; }
        .pk-fallback p { color: #94a3b8; font-size: 13px; margin-bottom: 6px; }
        .pk-fallback a { color: var(--player-accent); }
        {{controlsCSS}}
    </style>
</head>
<body>
<div id="pk-root" class="pk-{{.Layout.Variant}}">
{{- if .Layout.FillViewport}}
<div class="pk-modal">
{{- end}}
    <div class="pk-content">
        <div class="pk-stage {{.Layout.Variant}}">
            <div id="pk-frame"></div>
            <div data-region="overlay">{{if .Playable}}{{template "overlay" .Overlay}}{{end}}</div>
            <div data-region="fallback">{{if not .Playable}}{{template "fallback" .Fallback}}{{end}}</div>
        </div>
{{- if .Layout.ShowQueue}}
        <aside data-region="queue" aria-label="Up next">{{template "queue" .Queue}}</aside>
{{- end}}
    </div>
{{- if .Layout.FillViewport}}
</div>
{{- end}}
</div>
<script nonce="{{.Nonce}}">
        var SOCKET_URL = (location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + {{.SocketPath}};
        {{bridgeJS}}
</script>
</body>
</html>
{{end}}`))

// RenderPage writes a complete widget page.
func RenderPage(w io.Writer, p Page) error {
	return templates.ExecuteTemplate(w, "page", p)
}

// RenderRegion renders one named region to a string for a live update.
func RenderRegion(region string, data any) (string, error) {
	switch region {
	case RegionOverlay, RegionQueue, RegionFallback:
	default:
		return "", fmt.Errorf("unknown region %q", region)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, region, data); err != nil {
		return "", fmt.Errorf("render %s: %w", region, err)
	}
	return buf.String(), nil
}
