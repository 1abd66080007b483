// Package catalog stores the metadata records the widget renders: title,
// channel, duration and thumbnail for each video id.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sendrec/playerkit/internal/database"
	"github.com/sendrec/playerkit/internal/metadata"
)

var ErrNotFound = errors.New("video not found")

const thumbnailURLExpiry = 6 * time.Hour

const selectColumns = `video_id, title, description, duration, thumbnail_url, thumbnail_key,
	watch_url, embed_url, channel_name, published_at, cta_text`

// Record is a stored video. ThumbnailKey, when set, names an uploaded
// thumbnail that takes precedence over ThumbnailURL.
type Record struct {
	metadata.VideoMetadata
	ThumbnailKey string `json:"thumbnailKey,omitempty"`
}

type ThumbnailSigner interface {
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Store struct {
	db     database.DBTX
	cache  *Cache
	thumbs ThumbnailSigner
}

// NewStore returns a store over db. cache and thumbs may be nil.
func NewStore(db database.DBTX, cache *Cache, thumbs ThumbnailSigner) *Store {
	return &Store{db: db, cache: cache, thumbs: thumbs}
}

func (s *Store) Upsert(ctx context.Context, rec Record) error {
	v := rec.VideoMetadata
	_, err := s.db.Exec(ctx,
		`INSERT INTO videos (video_id, title, description, duration, thumbnail_url, watch_url,
		        embed_url, channel_name, published_at, cta_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (video_id) DO UPDATE SET
		        title = EXCLUDED.title, description = EXCLUDED.description,
		        duration = EXCLUDED.duration, thumbnail_url = EXCLUDED.thumbnail_url,
		        watch_url = EXCLUDED.watch_url, embed_url = EXCLUDED.embed_url,
		        channel_name = EXCLUDED.channel_name, published_at = EXCLUDED.published_at,
		        cta_text = EXCLUDED.cta_text, updated_at = now()`,
		v.VideoID, v.Title, v.Description, v.Duration, v.ThumbnailURL, v.WatchURL,
		v.EmbedURL, v.ChannelName, v.PublishedAt, v.CTAText,
	)
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", v.VideoID, err)
	}
	s.cache.Delete(ctx, v.VideoID)
	return nil
}

func (s *Store) SetThumbnailKey(ctx context.Context, videoID, key string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE videos SET thumbnail_key = $2, updated_at = now() WHERE video_id = $1`,
		videoID, key,
	)
	if err != nil {
		return fmt.Errorf("set thumbnail for %s: %w", videoID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.cache.Delete(ctx, videoID)
	return nil
}

// Get returns the record for videoID with its thumbnail resolved.
func (s *Store) Get(ctx context.Context, videoID string) (metadata.VideoMetadata, error) {
	rec, ok := s.cache.Get(ctx, videoID)
	if !ok {
		var err error
		rec, err = scanRecord(s.db.QueryRow(ctx,
			`SELECT `+selectColumns+` FROM videos WHERE video_id = $1`, videoID))
		if errors.Is(err, pgx.ErrNoRows) {
			return metadata.VideoMetadata{}, ErrNotFound
		}
		if err != nil {
			return metadata.VideoMetadata{}, fmt.Errorf("get video %s: %w", videoID, err)
		}
		s.cache.Set(ctx, rec)
	}
	return s.resolve(ctx, rec), nil
}

// GetMany returns one record per id, in order. Unknown ids come back as
// bare records carrying only the id, so they still play.
func (s *Store) GetMany(ctx context.Context, videoIDs []string) ([]metadata.VideoMetadata, error) {
	found := make(map[string]Record, len(videoIDs))
	var missing []string
	for _, id := range videoIDs {
		if rec, ok := s.cache.Get(ctx, id); ok {
			found[id] = rec
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		rows, err := s.db.Query(ctx,
			`SELECT `+selectColumns+` FROM videos WHERE video_id = ANY($1)`, missing)
		if err != nil {
			return nil, fmt.Errorf("get videos: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return nil, fmt.Errorf("scan video: %w", err)
			}
			found[rec.VideoID] = rec
			s.cache.Set(ctx, rec)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate videos: %w", err)
		}
	}

	out := make([]metadata.VideoMetadata, 0, len(videoIDs))
	for _, id := range videoIDs {
		rec, ok := found[id]
		if !ok {
			out = append(out, metadata.VideoMetadata{VideoID: id})
			continue
		}
		out = append(out, s.resolve(ctx, rec))
	}
	return out, nil
}

func (s *Store) resolve(ctx context.Context, rec Record) metadata.VideoMetadata {
	v := rec.VideoMetadata
	if rec.ThumbnailKey == "" || s.thumbs == nil {
		return v
	}
	url, err := s.thumbs.GenerateDownloadURL(ctx, rec.ThumbnailKey, thumbnailURLExpiry)
	if err != nil {
		slog.Warn("catalog: thumbnail presign failed", "video_id", v.VideoID, "error", err)
		return v
	}
	v.ThumbnailURL = url
	return v
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	v := &rec.VideoMetadata
	err := row.Scan(&v.VideoID, &v.Title, &v.Description, &v.Duration, &v.ThumbnailURL,
		&rec.ThumbnailKey, &v.WatchURL, &v.EmbedURL, &v.ChannelName, &v.PublishedAt, &v.CTAText)
	return rec, err
}
