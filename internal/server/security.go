package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sendrec/playerkit/internal/httputil"
)

const (
	youTubeFrameSources  = "https://www.youtube.com https://www.youtube-nocookie.com"
	youTubeScriptSources = "https://www.youtube.com https://s.ytimg.com"
	youTubeImageSources  = "https://i.ytimg.com"
)

type SecurityConfig struct {
	BaseURL         string
	StorageEndpoint string

	// AllowedFrameAncestors is a space-separated list of origins allowed to
	// frame widget pages. Empty means same-origin only.
	AllowedFrameAncestors string
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := cfg.BaseURL != "" && hasHTTPS(cfg.BaseURL)

	storageSuffix := ""
	if cfg.StorageEndpoint != "" {
		storageSuffix = " " + cfg.StorageEndpoint
	}
	socketSources := "ws: wss:"
	if strictTransport {
		socketSources = "wss:"
	}
	ancestors := "'self'"
	if fa := strings.TrimSpace(cfg.AllowedFrameAncestors); fa != "" {
		ancestors += " " + fa
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()
			ctx := httputil.ContextWithNonce(r.Context(), nonce)

			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), fullscreen=(self \"https://www.youtube.com\" \"https://www.youtube-nocookie.com\")")
			if cfg.AllowedFrameAncestors == "" {
				w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			}

			csp := fmt.Sprintf(
				"default-src 'self'; img-src 'self' data: %s%s; script-src 'self' 'nonce-%s' %s; style-src 'self' 'nonce-%s'; frame-src %s; connect-src 'self' %s%s; frame-ancestors %s;",
				youTubeImageSources, storageSuffix, nonce, youTubeScriptSources, nonce, youTubeFrameSources, socketSources, storageSuffix, ancestors,
			)
			w.Header().Set("Content-Security-Policy", csp)

			if strictTransport {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasHTTPS(baseURL string) bool {
	return len(baseURL) >= 8 && baseURL[:8] == "https://"
}
