package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/sendrec/playerkit/internal/auth"
	"github.com/sendrec/playerkit/internal/metadata"
	"github.com/sendrec/playerkit/internal/storage"
)

type fakeUploader struct {
	err error

	// Uploaded objects by key.
	objects map[string]fakeObject
}

type fakeObject struct {
	size        int64
	contentType string
}

func (u *fakeUploader) HeadObject(_ context.Context, key string) (int64, string, error) {
	obj, ok := u.objects[key]
	if !ok {
		return 0, "", errors.New("head object: not found")
	}
	return obj.size, obj.contentType, nil
}

func (u *fakeUploader) GenerateUploadURL(_ context.Context, key string, _ string, length int64, _ time.Duration) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if length > storage.MaxThumbnailBytes {
		return "", storage.ErrTooLarge
	}
	return "https://upload.example.com/" + key, nil
}

func newTestRouter(mock pgxmock.PgxPoolIface, uploads ThumbnailUploader) http.Handler {
	h := NewHandler(NewStore(mock, nil, nil), uploads, "https://player.example.com/")
	r := chi.NewRouter()
	r.Post("/api/videos", h.Ingest)
	r.Get("/api/videos/{videoID}", h.Get)
	r.Post("/api/videos/{videoID}/thumbnail", h.ThumbnailUpload)
	r.Post("/api/videos/{videoID}/thumbnail/confirm", h.ThumbnailConfirm)
	r.Get("/api/oembed", h.OEmbed)
	r.Get("/api/limits", h.Limits)
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIngestResolvesIDFromWatchURL(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO videos`).
		WithArgs("dQw4w9WgXcQ", "Never", "", "", "", "https://youtu.be/dQw4w9WgXcQ", "", "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := serve(newTestRouter(mock, nil), http.MethodPost, "/api/videos",
		`{"title":"Never","watchUrl":"https://youtu.be/dQw4w9WgXcQ"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var got metadata.VideoMetadata
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("expected resolved id, got %q", got.VideoID)
	}
	expectationsMet(t, mock)
}

func TestIngestRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"title":`, "invalid request body"},
		{"no id", `{"title":"Nothing"}`, "one of videoId, watchUrl or embedUrl is required"},
		{"unresolvable", `{"watchUrl":"https://example.com/video"}`, "no video id could be resolved"},
		{"long title", `{"videoId":"abc123","title":"` + strings.Repeat("a", 501) + `"}`, "title must be 500 characters or fewer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			rec := serve(newTestRouter(mock, nil), http.MethodPost, "/api/videos", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected error %q, got %s", tt.want, rec.Body.String())
			}
			expectationsMet(t, mock)
		})
	}
}

func TestGetHandler(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM videos`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows(videoColumns).AddRow(videoRow("abc", "Found", "")...))
	mock.ExpectQuery(`SELECT .+ FROM videos`).
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)
	router := newTestRouter(mock, nil)

	rec := serve(router, http.MethodGet, "/api/videos/abc", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"title":"Found"`) {
		t.Errorf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/api/videos/gone", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	expectationsMet(t, mock)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestIngestLogsIngestKey(t *testing.T) {
	logs := captureLogs(t)
	key := "pk_cdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcd"
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id FROM ingest_keys`).
		WithArgs(auth.HashAPIKey(key)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("key-7"))
	mock.ExpectExec(`UPDATE ingest_keys SET last_used_at`).
		WithArgs("key-7").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO videos`).
		WithArgs("dQw4w9WgXcQ", "Never", "", "", "", "", "", "", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	h := NewHandler(NewStore(mock, nil, nil), nil, "https://player.example.com")
	r := chi.NewRouter()
	r.With(auth.RequireAPIKey(mock)).Post("/api/videos", h.Ingest)

	req := httptest.NewRequest(http.MethodPost, "/api/videos", strings.NewReader(`{"videoId":"dQw4w9WgXcQ","title":"Never"}`))
	req.Header.Set("Authorization", "Bearer "+key)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	for _, want := range []string{"video_id=dQw4w9WgXcQ", "ingest_key_id=key-7"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("expected log to contain %q, got %s", want, logs.String())
		}
	}
	expectationsMet(t, mock)
}

func TestLimits(t *testing.T) {
	rec := serve(newTestRouter(newMock(t), nil), http.MethodGet, "/api/limits", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var resp limitsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FieldLimits["title"] != 500 || resp.FieldLimits["queue"] != 50 {
		t.Errorf("unexpected field limits %v", resp.FieldLimits)
	}
	if resp.MaxThumbnailBytes != storage.MaxThumbnailBytes {
		t.Errorf("expected max thumbnail bytes %d, got %d", storage.MaxThumbnailBytes, resp.MaxThumbnailBytes)
	}
}

func TestThumbnailUpload(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM videos`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows(videoColumns).AddRow(videoRow("abc", "Found", "")...))
	mock.ExpectQuery(`SELECT .+ FROM videos`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows(videoColumns).AddRow(videoRow("abc", "Found", "")...))
	mock.ExpectQuery(`SELECT .+ FROM videos`).
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)
	router := newTestRouter(mock, &fakeUploader{})

	rec := serve(router, http.MethodPost, "/api/videos/abc/thumbnail", `{"contentType":"image/png","contentLength":2048}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var resp thumbnailUploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Key != "thumbnails/abc.png" || resp.UploadURL != "https://upload.example.com/thumbnails/abc.png" {
		t.Errorf("unexpected response %+v", resp)
	}

	rec = serve(router, http.MethodPost, "/api/videos/abc/thumbnail", `{"contentType":"image/gif"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for gif, got %d", http.StatusBadRequest, rec.Code)
	}
	rec = serve(router, http.MethodPost, "/api/videos/abc/thumbnail", `{"contentType":"image/jpeg","contentLength":99999999}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status %d for a large file, got %d", http.StatusRequestEntityTooLarge, rec.Code)
	}
	rec = serve(router, http.MethodPost, "/api/videos/gone/thumbnail", `{"contentType":"image/png"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d for an unknown video, got %d", http.StatusNotFound, rec.Code)
	}
	expectationsMet(t, mock)
}

func TestThumbnailConfirm(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`UPDATE videos SET thumbnail_key`).
		WithArgs("abc", "thumbnails/abc.png").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	uploads := &fakeUploader{objects: map[string]fakeObject{
		"thumbnails/abc.png":  {size: 2048, contentType: "image/png"},
		"thumbnails/big.png":  {size: storage.MaxThumbnailBytes + 1, contentType: "image/png"},
		"thumbnails/odd.webp": {size: 2048, contentType: "text/html"},
	}}
	router := newTestRouter(mock, uploads)

	rec := serve(router, http.MethodPost, "/api/videos/abc/thumbnail/confirm", `{"contentType":"image/png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"key":"thumbnails/abc.png"`) {
		t.Errorf("unexpected response %s", rec.Body.String())
	}

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"not uploaded", "/api/videos/abc/thumbnail/confirm", `{"contentType":"image/jpeg"}`, "could not verify upload"},
		{"too large", "/api/videos/big/thumbnail/confirm", `{"contentType":"image/png"}`, "invalid size"},
		{"wrong type", "/api/videos/odd/thumbnail/confirm", `{"contentType":"image/webp"}`, "invalid type"},
		{"unsupported type", "/api/videos/abc/thumbnail/confirm", `{"contentType":"image/gif"}`, "jpeg, png or webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected error %q, got %s", tt.want, rec.Body.String())
			}
		})
	}
	expectationsMet(t, mock)
}

func TestThumbnailUploadDisabled(t *testing.T) {
	router := newTestRouter(newMock(t), nil)
	for _, path := range []string{"/api/videos/abc/thumbnail", "/api/videos/abc/thumbnail/confirm"} {
		rec := serve(router, http.MethodPost, path, `{"contentType":"image/png"}`)
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotImplemented, rec.Code)
		}
	}
}

func TestOEmbed(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM videos`).
		WithArgs("dQw4w9WgXcQ").
		WillReturnRows(pgxmock.NewRows(videoColumns).AddRow(videoRow("dQw4w9WgXcQ", "Never <Gonna>", "")...))
	mock.ExpectQuery(`SELECT .+ FROM videos`).
		WithArgs("unknown1234").
		WillReturnError(pgx.ErrNoRows)
	router := newTestRouter(mock, nil)

	rec := serve(router, http.MethodGet, "/api/oembed?url=https%3A%2F%2Fwww.youtube.com%2Fshorts%2FdQw4w9WgXcQ&maxwidth=320", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var resp oEmbedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Width != 320 || resp.Height != 180 {
		t.Errorf("expected 320x180, got %dx%d", resp.Width, resp.Height)
	}
	if resp.Title != "Never <Gonna>" || resp.AuthorName != "Channel" {
		t.Errorf("unexpected metadata %+v", resp)
	}
	if !strings.Contains(resp.HTML, `src="https://player.example.com/embed/dQw4w9WgXcQ"`) {
		t.Errorf("unexpected html %s", resp.HTML)
	}
	if !strings.Contains(resp.HTML, `title="Never &lt;Gonna&gt;"`) {
		t.Errorf("expected escaped title in html %s", resp.HTML)
	}

	rec = serve(router, http.MethodGet, "/api/oembed?url=https://youtu.be/unknown1234", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"title":"Untitled video"`) {
		t.Errorf("expected a response for an uncatalogued video, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/api/oembed?url=https://example.com/", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	rec = serve(router, http.MethodGet, "/api/oembed?url=https://youtu.be/abcdefghijk&format=xml", "")
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("expected status %d, got %d", http.StatusNotImplemented, rec.Code)
	}
	expectationsMet(t, mock)
}

func TestOEmbedSize(t *testing.T) {
	tests := []struct {
		maxWidth, maxHeight string
		width, height       int
	}{
		{"", "", 640, 360},
		{"1920", "", 640, 360},
		{"480", "", 480, 270},
		{"", "90", 160, 90},
		{"bad", "-1", 640, 360},
	}
	for _, tt := range tests {
		w, h := oEmbedSize(tt.maxWidth, tt.maxHeight)
		if w != tt.width || h != tt.height {
			t.Errorf("oEmbedSize(%q, %q) = %dx%d, want %dx%d", tt.maxWidth, tt.maxHeight, w, h, tt.width, tt.height)
		}
	}
}
