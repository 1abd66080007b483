package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sendrec/playerkit/internal/auth"
	"github.com/sendrec/playerkit/internal/httputil"
	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/storage"
	"github.com/sendrec/playerkit/internal/validate"
)

const (
	maxIngestBody       = 64 * 1024
	thumbnailUploadTTL  = 15 * time.Minute
	defaultOEmbedWidth  = 640
	defaultOEmbedHeight = 360
)

type ThumbnailUploader interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string, contentLength int64, expiry time.Duration) (string, error)
	HeadObject(ctx context.Context, key string) (int64, string, error)
}

type Handler struct {
	store   *Store
	uploads ThumbnailUploader
	baseURL string
}

// NewHandler serves the catalog API. uploads may be nil, which disables
// thumbnail uploads.
func NewHandler(store *Store, uploads ThumbnailUploader, baseURL string) *Handler {
	return &Handler{store: store, uploads: uploads, baseURL: strings.TrimRight(baseURL, "/")}
}

// Ingest stores one metadata record. The video id is resolved from the
// watch or embed URL when absent.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var v metadata.VideoMetadata
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody)).Decode(&v); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := metadata.Validate(v); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	id, ok := v.ResolvedID()
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "no video id could be resolved")
		return
	}
	v.VideoID = id

	keyID := auth.IngestKeyIDFromContext(r.Context())
	if err := h.store.Upsert(r.Context(), Record{VideoMetadata: v}); err != nil {
		slog.Error("catalog: ingest failed", "video_id", id, "ingest_key_id", keyID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not store video")
		return
	}
	slog.Info("catalog: video ingested", "video_id", id, "ingest_key_id", keyID)
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "videoID")
	v, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("catalog: get failed", "video_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not load video")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

type thumbnailUploadRequest struct {
	ContentType   string `json:"contentType"`
	ContentLength int64  `json:"contentLength"`
}

type thumbnailUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

type thumbnailConfirmResponse struct {
	Key string `json:"key"`
}

type limitsResponse struct {
	FieldLimits       map[string]int `json:"fieldLimits"`
	MaxThumbnailBytes int64          `json:"maxThumbnailBytes"`
}

// Limits tells ingest clients how long each field may be.
func (h *Handler) Limits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, limitsResponse{
		FieldLimits:       validate.FieldLimits(),
		MaxThumbnailBytes: storage.MaxThumbnailBytes,
	})
}

// ThumbnailUpload hands out a presigned PUT for the video's thumbnail. The
// record keeps its current thumbnail until the upload is confirmed.
func (h *Handler) ThumbnailUpload(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		httputil.WriteError(w, http.StatusNotImplemented, "thumbnail uploads are disabled")
		return
	}
	id := chi.URLParam(r, "videoID")

	var req thumbnailUploadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody)).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := storage.ThumbnailKey(id, req.ContentType)
	if key == "" {
		httputil.WriteError(w, http.StatusBadRequest, "thumbnail must be a jpeg, png or webp image")
		return
	}

	_, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("catalog: thumbnail lookup failed", "video_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not load video")
		return
	}

	uploadURL, err := h.uploads.GenerateUploadURL(r.Context(), key, req.ContentType, req.ContentLength, thumbnailUploadTTL)
	if errors.Is(err, storage.ErrTooLarge) {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "thumbnail too large")
		return
	}
	if err != nil {
		slog.Error("catalog: presign thumbnail failed", "video_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not prepare upload")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, thumbnailUploadResponse{UploadURL: uploadURL, Key: key})
}

// ThumbnailConfirm checks the uploaded object and points the record at it.
func (h *Handler) ThumbnailConfirm(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		httputil.WriteError(w, http.StatusNotImplemented, "thumbnail uploads are disabled")
		return
	}
	id := chi.URLParam(r, "videoID")

	var req thumbnailUploadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody)).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key := storage.ThumbnailKey(id, req.ContentType)
	if key == "" {
		httputil.WriteError(w, http.StatusBadRequest, "thumbnail must be a jpeg, png or webp image")
		return
	}

	size, contentType, err := h.uploads.HeadObject(r.Context(), key)
	if err != nil {
		slog.Warn("catalog: thumbnail not found in storage", "video_id", id, "key", key, "error", err)
		httputil.WriteError(w, http.StatusBadRequest, "could not verify upload")
		return
	}
	if size <= 0 || size > storage.MaxThumbnailBytes {
		httputil.WriteError(w, http.StatusBadRequest, "uploaded thumbnail invalid size")
		return
	}
	if !strings.EqualFold(contentType, req.ContentType) {
		httputil.WriteError(w, http.StatusBadRequest, "uploaded thumbnail invalid type")
		return
	}

	err = h.store.SetThumbnailKey(r.Context(), id, key)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		slog.Error("catalog: set thumbnail failed", "video_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not store thumbnail")
		return
	}
	slog.Info("catalog: thumbnail confirmed", "video_id", id, "key", key, "ingest_key_id", auth.IngestKeyIDFromContext(r.Context()))
	httputil.WriteJSON(w, http.StatusOK, thumbnailConfirmResponse{Key: key})
}

type oEmbedResponse struct {
	Version      string `json:"version"`
	Type         string `json:"type"`
	ProviderName string `json:"provider_name"`
	ProviderURL  string `json:"provider_url"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	HTML         string `json:"html"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// OEmbed describes the embed page for any watch, short, youtu.be or embed
// URL. Videos missing from the catalog still get a response.
func (h *Handler) OEmbed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := metadata.ExtractVideoID(q.Get("url"))
	if id == "" {
		httputil.WriteError(w, http.StatusNotFound, "unsupported url")
		return
	}
	if format := q.Get("format"); format != "" && format != "json" {
		httputil.WriteError(w, http.StatusNotImplemented, "only json is supported")
		return
	}

	v, err := h.store.Get(r.Context(), id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		slog.Error("catalog: oembed lookup failed", "video_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not load video")
		return
	}
	if errors.Is(err, ErrNotFound) {
		v = metadata.VideoMetadata{VideoID: id}
	}

	width, height := oEmbedSize(q.Get("maxwidth"), q.Get("maxheight"))
	src := h.baseURL + "/embed/" + url.PathEscape(id)
	title := v.DisplayTitle()
	httputil.WriteJSON(w, http.StatusOK, oEmbedResponse{
		Version:      "1.0",
		Type:         "video",
		ProviderName: "playerkit",
		ProviderURL:  h.baseURL,
		Title:        title,
		AuthorName:   v.ChannelName,
		ThumbnailURL: v.ThumbnailURL,
		HTML: fmt.Sprintf(`<iframe src="%s" width="%d" height="%d" title="%s" frameborder="0" allow="autoplay; fullscreen; encrypted-media" allowfullscreen></iframe>`,
			html.EscapeString(src), width, height, html.EscapeString(title)),
		Width:  width,
		Height: height,
	})
}

// oEmbedSize fits 16:9 inside the requested bounds.
func oEmbedSize(maxWidth, maxHeight string) (int, int) {
	width, height := defaultOEmbedWidth, defaultOEmbedHeight
	if mw, err := strconv.Atoi(maxWidth); err == nil && mw > 0 && mw < width {
		width = mw
		height = mw * 9 / 16
	}
	if mh, err := strconv.Atoi(maxHeight); err == nil && mh > 0 && mh < height {
		height = mh
		width = mh * 16 / 9
	}
	return width, height
}
