package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/sendrec/playerkit/internal/auth"
	"github.com/sendrec/playerkit/internal/catalog"
	"github.com/sendrec/playerkit/internal/clientinfo"
	"github.com/sendrec/playerkit/internal/database"
	"github.com/sendrec/playerkit/internal/docs"
	"github.com/sendrec/playerkit/internal/ratelimit"
	"github.com/sendrec/playerkit/internal/webhook"
	"github.com/sendrec/playerkit/internal/widget"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB         database.DBTX
	Pinger     Pinger
	Store      *catalog.Store
	Thumbnails catalog.ThumbnailUploader
	Tokens     *auth.Tokens
	Detector   *clientinfo.Detector
	Webhooks   *webhook.Client
	Branding   widget.Branding
	BaseURL    string

	StorageEndpoint       string
	AllowedFrameAncestors string
	AllowedOrigins        []string
	EnableDocs            bool

	// Context bounds every websocket session; cancelling it ends them.
	Context context.Context
	Clock   clockwork.Clock
	Logger  *slog.Logger

	// Limiters are optional; main passes them so it can run their sweepers.
	APILimiter    *ratelimit.Limiter
	WidgetLimiter *ratelimit.Limiter
}

type Server struct {
	router   chi.Router
	cfg      Config
	logger   *slog.Logger
	pinger   Pinger
	catalog  *catalog.Handler
	sessions *sessionHandler
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.APILimiter == nil {
		cfg.APILimiter = ratelimit.NewLimiter(2, 10)
	}
	if cfg.WidgetLimiter == nil {
		cfg.WidgetLimiter = ratelimit.NewLimiter(10, 40)
	}
	cfg.Branding = widget.ResolveBranding(cfg.Branding)

	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:               cfg.BaseURL,
		StorageEndpoint:       cfg.StorageEndpoint,
		AllowedFrameAncestors: cfg.AllowedFrameAncestors,
	}))

	s := &Server{router: r, cfg: cfg, logger: cfg.Logger, pinger: cfg.Pinger}
	if cfg.Store != nil {
		s.catalog = catalog.NewHandler(cfg.Store, cfg.Thumbnails, cfg.BaseURL)
	}
	if cfg.Tokens != nil {
		s.sessions = newSessionHandler(cfg)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.cfg.EnableDocs {
		s.router.Get("/api/docs", docs.HandleDocs)
		s.router.Get("/api/docs/openapi.yaml", docs.HandleSpec)
	}

	if s.sessions != nil {
		s.router.Group(func(r chi.Router) {
			r.Use(s.cfg.WidgetLimiter.Middleware)
			r.Get("/embed/{videoID}", s.sessions.Embed)
			r.Get("/widget", s.sessions.Widget)
		})
		s.router.Get("/ws", s.sessions.Socket)
	}

	if s.catalog != nil {
		s.router.Route("/api/videos", func(r chi.Router) {
			r.Use(s.cfg.APILimiter.Middleware)
			r.Get("/{videoID}", s.catalog.Get)
			r.Group(func(r chi.Router) {
				if s.cfg.DB != nil {
					r.Use(auth.RequireAPIKey(s.cfg.DB))
				}
				r.Post("/", s.catalog.Ingest)
				r.Post("/{videoID}/thumbnail", s.catalog.ThumbnailUpload)
				r.Post("/{videoID}/thumbnail/confirm", s.catalog.ThumbnailConfirm)
			})
		})
		s.router.With(s.cfg.APILimiter.Middleware).Get("/api/oembed", s.catalog.OEmbed)
		s.router.With(s.cfg.APILimiter.Middleware).Get("/api/limits", s.catalog.Limits)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return 0
	}
	return v
}
