package controls

import (
	"html/template"
	"io"
	"strconv"
)

// CSS styles the markup produced by Render. Pages set --player-accent to
// brand the progress bar and active states.
const CSS = `
        .pk-controls {
            position: absolute;
            left: 0;
            right: 0;
            bottom: 0;
            display: flex;
            align-items: center;
            gap: 8px;
            padding: 24px 12px 10px;
            background: linear-gradient(transparent, rgba(0, 0, 0, 0.85));
            z-index: 3;
            transition: opacity 0.3s;
        }
        .pk-controls.hidden { opacity: 0; pointer-events: none; }
        .pk-btn {
            background: none;
            border: none;
            color: #fff;
            font-size: 18px;
            line-height: 1;
            padding: 4px;
            cursor: pointer;
            opacity: 0.9;
            flex-shrink: 0;
        }
        .pk-btn:hover { opacity: 1; }
        .pk-btn:focus-visible { outline: 2px solid var(--player-accent, #00b67a); outline-offset: 2px; }
        .pk-time {
            font-size: 12px;
            font-family: monospace;
            color: #fff;
            white-space: nowrap;
            flex-shrink: 0;
        }
        .pk-progress {
            position: relative;
            flex: 1;
            height: 4px;
            background: rgba(255, 255, 255, 0.2);
            border-radius: 2px;
            overflow: hidden;
        }
        .pk-progress-fill {
            position: absolute;
            top: 0;
            left: 0;
            height: 100%;
            background: var(--player-accent, #00b67a);
        }
        .pk-volume { display: flex; align-items: center; gap: 4px; flex-shrink: 0; }
        .pk-volume input { width: 60px; accent-color: #fff; }
        .pk-speed { position: relative; flex-shrink: 0; }
        .pk-menu {
            position: absolute;
            bottom: 100%;
            right: 0;
            margin-bottom: 8px;
            padding: 4px;
            min-width: 56px;
            background: rgba(15, 23, 42, 0.95);
            border: 1px solid #334155;
            border-radius: 6px;
        }
        .pk-menu button {
            display: block;
            width: 100%;
            padding: 5px 10px;
            background: none;
            border: none;
            border-radius: 4px;
            color: #e2e8f0;
            font-size: 12px;
            cursor: pointer;
        }
        .pk-menu button.active { color: var(--player-accent, #00b67a); font-weight: 600; }
        .pk-shortcuts {
            position: absolute;
            right: 8px;
            bottom: 52px;
            padding: 12px 16px;
            min-width: 200px;
            background: rgba(15, 23, 42, 0.95);
            border: 1px solid #334155;
            border-radius: 8px;
            color: #e2e8f0;
            font-size: 12px;
            z-index: 20;
        }
        .pk-shortcuts kbd {
            padding: 1px 5px;
            background: rgba(255, 255, 255, 0.1);
            border: 1px solid #475569;
            border-radius: 3px;
            font-family: monospace;
            font-size: 11px;
        }
        .pk-status {
            position: absolute;
            top: 50%;
            left: 50%;
            transform: translate(-50%, -50%);
            color: #e2e8f0;
            font-size: 14px;
            text-align: center;
            z-index: 4;
            pointer-events: none;
        }
        .pk-watch { color: #fff; font-size: 12px; white-space: nowrap; }
`

// Templates holds the "overlay" template. Other templates may include it
// with {{template "overlay" .}}.
var Templates = template.Must(template.New("overlay").Funcs(template.FuncMap{
	"percent": formatPercent,
}).Parse(`<div class="pk-overlay" data-video="{{.VideoID}}">
{{- if .Loading}}
    <div class="pk-status" role="status">{{if .LoadFailed}}Video failed to load{{else}}Loading&hellip;{{end}}</div>
{{- end}}
    <div class="pk-controls{{if not .Visible}} hidden{{end}}">
        <button class="pk-btn" data-intent="toggle-play" aria-label="{{.PlayLabel}}">{{if .Playing}}&#9646;&#9646;{{else}}&#9654;{{end}}</button>
        <span class="pk-time">{{.CurrentLabel}}</span>
        <div class="pk-progress" role="progressbar" aria-label="Progress" aria-valuemin="0" aria-valuemax="100" aria-valuenow="{{percent .Progress}}">
            <div class="pk-progress-fill" style="width: {{percent .Progress}}%"></div>
        </div>
        <span class="pk-time">{{.DurationLabel}}</span>
        <div class="pk-volume">
            <button class="pk-btn" data-intent="toggle-mute" aria-label="{{.MuteLabel}}">{{if .Muted}}&#128263;{{else}}&#128266;{{end}}</button>
            <input type="range" data-intent="volume" min="0" max="100" value="{{.Volume}}" aria-label="Volume">
        </div>
{{- if .ShowSpeedMenu}}
        <div class="pk-speed">
            <button class="pk-btn" data-intent="speed-menu" aria-label="Playback speed" aria-expanded="{{.SpeedOpen}}">{{.SpeedLabel}}</button>
{{- if .SpeedOpen}}
            <div class="pk-menu" role="menu">
{{- range .Speeds}}
                <button role="menuitemradio" data-intent="speed" data-value="{{.Rate}}" aria-checked="{{.Active}}"{{if .Active}} class="active"{{end}}>{{.Label}}</button>
{{- end}}
            </div>
{{- end}}
        </div>
{{- end}}
        <button class="pk-btn" data-intent="shortcuts" aria-label="Keyboard shortcuts" aria-expanded="{{.ShortcutsOpen}}">?</button>
        <button class="pk-btn" data-intent="fullscreen" aria-label="{{.FullscreenLabel}}">&#9974;</button>
        <a class="pk-watch" href="{{.Watch.Href}}" target="{{.Watch.Target}}" rel="{{.Watch.Rel}}">{{.Watch.Label}}</a>
    </div>
{{- if .ShortcutsOpen}}
    <div class="pk-shortcuts" role="dialog" aria-label="Keyboard shortcuts">
        <table>
{{- range .Shortcuts}}
            <tr><td>{{.Action}}</td><td>{{range .Keys}}<kbd>{{.}}</kbd>{{end}}</td></tr>
{{- end}}
        </table>
    </div>
{{- end}}
</div>`))

// Render writes the overlay markup.
func Render(w io.Writer, o Overlay) error {
	return Templates.ExecuteTemplate(w, "overlay", o)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
