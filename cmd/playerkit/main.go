package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sendrec/playerkit/internal/auth"
	"github.com/sendrec/playerkit/internal/catalog"
	"github.com/sendrec/playerkit/internal/clientinfo"
	"github.com/sendrec/playerkit/internal/database"
	"github.com/sendrec/playerkit/internal/ratelimit"
	"github.com/sendrec/playerkit/internal/server"
	"github.com/sendrec/playerkit/internal/storage"
	"github.com/sendrec/playerkit/internal/webhook"
	"github.com/sendrec/playerkit/internal/widget"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "keygen" {
		if err := keygen(os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(getEnv("LOG_LEVEL", "info")),
	})))

	port := getEnv("PORT", "8080")
	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	tokens, err := auth.NewTokens(os.Getenv("SESSION_SECRET"))
	if err != nil {
		log.Fatalf("SESSION_SECRET is required: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := server.Config{
		Tokens:                tokens,
		BaseURL:               baseURL,
		StorageEndpoint:       os.Getenv("S3_PUBLIC_ENDPOINT"),
		AllowedFrameAncestors: os.Getenv("ALLOWED_FRAME_ANCESTORS"),
		AllowedOrigins:        splitList(os.Getenv("ALLOWED_ORIGINS")),
		EnableDocs:            getEnv("API_DOCS_ENABLED", "false") == "true",
		Branding: widget.Branding{
			Name:       os.Getenv("BRAND_NAME"),
			Background: os.Getenv("BRAND_COLOR_BACKGROUND"),
			Surface:    os.Getenv("BRAND_COLOR_SURFACE"),
			Text:       os.Getenv("BRAND_COLOR_TEXT"),
			Accent:     os.Getenv("BRAND_COLOR_ACCENT"),
		},
		APILimiter:    ratelimit.NewLimiter(2, 10),
		WidgetLimiter: ratelimit.NewLimiter(10, 40),
	}
	if msg := widget.ValidateBranding(cfg.Branding); msg != "" {
		slog.Warn("ignoring invalid branding", "reason", msg)
	}

	var store *storage.Storage
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		store, err = storage.New(ctx, storage.Config{
			Endpoint:       endpoint,
			PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
			Bucket:         getEnv("S3_BUCKET", "playerkit"),
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			Region:         getEnv("S3_REGION", "eu-central-1"),
		})
		if err != nil {
			log.Fatalf("storage initialization failed: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalf("storage bucket check failed: %v", err)
		}
		cfg.Thumbnails = store
		log.Println("storage bucket ready")
	}

	var cache *catalog.Cache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, metadata cache degraded", "error", err)
		}
		ttl := time.Duration(getEnvInt64("METADATA_CACHE_TTL_SECONDS", 300)) * time.Second
		cache = catalog.NewCache(rdb, ttl)
	}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := database.Connect(ctx, databaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(databaseURL); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		log.Println("database migrations applied")

		if key := os.Getenv("INGEST_API_KEY"); key != "" {
			if err := auth.EnsureIngestKey(ctx, db.Pool, getEnv("INGEST_KEY_NAME", "default"), key); err != nil {
				log.Fatalf("ingest key registration failed: %v", err)
			}
		} else {
			log.Println("INGEST_API_KEY not set, only previously registered keys can ingest (create one with `playerkit keygen`)")
		}

		var thumbs catalog.ThumbnailSigner
		if store != nil {
			thumbs = store
		}
		cfg.DB = db.Pool
		cfg.Pinger = db
		cfg.Store = catalog.NewStore(db.Pool, cache, thumbs)
	} else {
		log.Println("DATABASE_URL not set, catalog disabled")
	}

	if webhookURL := os.Getenv("WEBHOOK_URL"); webhookURL != "" {
		secret := os.Getenv("WEBHOOK_SECRET")
		if secret == "" {
			log.Fatal("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
		}
		cfg.Webhooks = webhook.New(cfg.DB, webhookURL, secret)
		log.Println("playback webhooks enabled")
	}

	geo := clientinfo.OpenLocator(os.Getenv("GEOIP_DB_PATH"))
	defer geo.Close()
	cfg.Detector = clientinfo.NewDetector(geo)

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	cfg.Context = runCtx
	go cfg.APILimiter.Run(runCtx)
	go cfg.WidgetLimiter.Run(runCtx)

	srv := server.New(cfg)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("playerkit listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	// Sessions live on hijacked connections that Shutdown does not track.
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	if cfg.Webhooks != nil {
		cfg.Webhooks.Wait()
	}
	log.Println("shutdown complete")
}

// keygen prints a fresh ingest key to register through INGEST_API_KEY.
func keygen(w io.Writer) error {
	key, err := auth.GenerateAPIKeyString()
	if err != nil {
		return fmt.Errorf("generate ingest key: %w", err)
	}
	_, err = fmt.Fprintln(w, key)
	return err
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
