package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sendrec/playerkit/internal/auth"
	"github.com/sendrec/playerkit/internal/bridge"
	"github.com/sendrec/playerkit/internal/catalog"
	"github.com/sendrec/playerkit/internal/clientinfo"
	"github.com/sendrec/playerkit/internal/controls"
	"github.com/sendrec/playerkit/internal/httputil"
	"github.com/sendrec/playerkit/internal/layout"
	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/player"
	"github.com/sendrec/playerkit/internal/queue"
	"github.com/sendrec/playerkit/internal/session"
	"github.com/sendrec/playerkit/internal/validate"
	"github.com/sendrec/playerkit/internal/webhook"
	"github.com/sendrec/playerkit/internal/widget"
)

// sessionHandler serves widget pages and the websocket sessions that drive
// them. A page embeds a signed token naming its videos; the socket accepts
// nothing else.
type sessionHandler struct {
	ctx      context.Context
	store    *catalog.Store
	tokens   *auth.Tokens
	detector *clientinfo.Detector
	branding widget.Branding
	upgrader *websocket.Upgrader
	cfg      Config
	logger   *slog.Logger
}

func newSessionHandler(cfg Config) *sessionHandler {
	return &sessionHandler{
		ctx:      cfg.Context,
		store:    cfg.Store,
		tokens:   cfg.Tokens,
		detector: cfg.Detector,
		branding: cfg.Branding,
		upgrader: bridge.NewUpgrader(cfg.AllowedOrigins...),
		cfg:      cfg,
		logger:   cfg.Logger,
	}
}

// Embed renders a page for a single video.
func (h *sessionHandler) Embed(w http.ResponseWriter, r *http.Request) {
	id := metadata.ExtractVideoID(chi.URLParam(r, "videoID"))
	if id == "" {
		httputil.WriteError(w, http.StatusBadRequest, "invalid video id")
		return
	}
	h.render(w, r, []string{id}, 0)
}

// Widget renders a page for one or more videos given as repeated v
// parameters, each a bare id or a YouTube URL.
func (h *sessionHandler) Widget(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query()["v"]
	if len(raw) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "at least one video is required")
		return
	}
	if msg := validate.QueueLength(len(raw)); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		id := metadata.ExtractVideoID(v)
		if id == "" {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid video %q", v))
			return
		}
		ids = append(ids, id)
	}
	h.render(w, r, ids, queryInt(r, "index"))
}

func (h *sessionHandler) render(w http.ResponseWriter, r *http.Request, ids []string, index int) {
	variant, _ := layout.ParseVariant(r.URL.Query().Get("variant"))
	autoplay := queryBool(r, "autoplay")
	info := h.detector.Detect(r)

	videos := h.lookup(r.Context(), ids)
	nav := queue.New(videos, index)
	current, _ := nav.Current()

	cfg := layout.Resolve(layout.Request{
		Variant:  variant,
		Autoplay: autoplay,
		Narrow:   info.Narrow(),
		QueueLen: nav.Len(),
	})

	token, err := h.tokens.Issue(auth.SessionClaims{
		Videos:   ids,
		Index:    nav.Index(),
		Variant:  variant.String(),
		Autoplay: autoplay,
	})
	if err != nil {
		h.logger.Error("failed to issue session token", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	playable := current.Playable()
	page := widget.Page{
		Nonce:      httputil.NonceFromContext(r.Context()),
		Title:      current.DisplayTitle(),
		Branding:   h.branding,
		Layout:     cfg,
		SocketPath: "/ws?token=" + url.QueryEscape(token),
		Playable:   playable,
		Overlay:    controls.Build(player.InitialState(playable, info.TouchPrimary()), cfg, controls.Menu{}, current),
		Fallback:   widget.NewFallback(current, ""),
	}
	if cfg.ShowQueue {
		page.Queue = nav.Items()
	}

	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteHTML(w, http.StatusOK, func(out io.Writer) error {
		return widget.RenderPage(out, page)
	})
}

// lookup resolves ids through the catalog. Without one, or when it fails,
// the videos play from their ids alone.
func (h *sessionHandler) lookup(ctx context.Context, ids []string) []metadata.VideoMetadata {
	if h.store != nil {
		videos, err := h.store.GetMany(ctx, ids)
		if err == nil {
			return videos
		}
		h.logger.Warn("catalog lookup failed", "error", err)
	}
	videos := make([]metadata.VideoMetadata, len(ids))
	for i, id := range ids {
		videos[i] = metadata.VideoMetadata{VideoID: id}
	}
	return videos
}

// Socket upgrades the page's connection and runs its session until either
// side goes away.
func (h *sessionHandler) Socket(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Validate(r.URL.Query().Get("token"))
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid session token")
		return
	}
	info := h.detector.Detect(r)
	videos := h.lookup(r.Context(), claims.Videos)
	variant, _ := layout.ParseVariant(claims.Variant)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	logger := h.logger.With("token_id", claims.ID, "browser", info.Browser, "os", info.OS)
	if info.Country != "" {
		logger = logger.With("country", info.Country)
	}

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	conn := bridge.NewConn(ws, logger)
	scfg := session.Config{
		Videos:       videos,
		Index:        claims.Index,
		Variant:      variant,
		Autoplay:     claims.Autoplay,
		Narrow:       info.Narrow(),
		TouchPrimary: info.TouchPrimary(),
		Clock:        h.cfg.Clock,
		Logger:       logger,
	}
	if hooks := h.cfg.Webhooks; hooks != nil {
		scfg.OnVideoPlay = func(id string, v metadata.VideoMetadata) {
			hooks.Notify(ctx, webhook.EventVideoPlayed, id, v)
		}
		scfg.OnVideoEnd = func(id string, v metadata.VideoMetadata) {
			hooks.Notify(ctx, webhook.EventVideoEnded, id, v)
		}
	}
	sess := session.New(ctx, conn, scfg)
	defer sess.Close()

	if err := conn.Run(ctx, sess.Handle); err != nil {
		logger.Warn("websocket closed", "session_id", sess.ID(), "error", err)
	}
}
