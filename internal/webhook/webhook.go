// Package webhook tells the embedding product when a widget starts or
// finishes a video.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sendrec/playerkit/internal/database"
	"github.com/sendrec/playerkit/internal/metadata"
)

const maxResponseBodyBytes = 1024

const deliveryTimeout = 30 * time.Second

const (
	EventVideoPlayed = "video.played"
	EventVideoEnded  = "video.ended"
)

// Event represents a webhook event to dispatch.
type Event struct {
	Name      string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// PlaybackEvent describes v starting or ending in one widget session.
func PlaybackEvent(name, sessionID string, v metadata.VideoMetadata, at time.Time) Event {
	id, _ := v.ResolvedID()
	return Event{
		Name:      name,
		Timestamp: at.UTC(),
		Data: map[string]any{
			"sessionId": sessionID,
			"videoId":   id,
			"title":     v.DisplayTitle(),
			"watchUrl":  v.WatchLink(),
		},
	}
}

// Client dispatches webhook events with retries. Deliveries are logged to
// the database when one is configured.
type Client struct {
	db          database.DBTX
	url         string
	secret      string
	http        *http.Client
	retryDelays []time.Duration
	now         func() time.Time

	wg sync.WaitGroup
}

// New creates a webhook client posting to url. db may be nil.
func New(db database.DBTX, url, secret string) *Client {
	return &Client{
		db:          db,
		url:         url,
		secret:      secret,
		http:        &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{1 * time.Second, 4 * time.Second},
		now:         time.Now,
	}
}

// SignPayload computes HMAC-SHA256 of the payload using the secret.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Dispatch sends an event with up to 3 attempts.
func (c *Client) Dispatch(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	signature := SignPayload(c.secret, body)
	maxAttempts := 1 + len(c.retryDelays)
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		statusCode, respBody, err := c.doPost(ctx, body, signature)
		c.logDelivery(ctx, event, body, statusCode, respBody, attempt)

		if err == nil && statusCode != nil && *statusCode >= 200 && *statusCode < 300 {
			return nil
		}

		if err != nil {
			lastErr = err
		} else if statusCode != nil {
			lastErr = fmt.Errorf("webhook returned status %d", *statusCode)
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(c.retryDelays[attempt-1]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// Notify dispatches a playback event in the background. It outlives ctx's
// cancellation so an end reported just before the page leaves still goes
// out; failures are only logged.
func (c *Client) Notify(ctx context.Context, name, sessionID string, v metadata.VideoMetadata) {
	event := PlaybackEvent(name, sessionID, v, c.now())
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()
		if err := c.Dispatch(ctx, event); err != nil {
			slog.Warn("webhook: delivery failed", "event", name, "video_id", event.Data["videoId"], "error", err)
		}
	}()
}

// Wait blocks until background deliveries finish.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) doPost(ctx context.Context, body []byte, signature string) (*int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err.Error(), err
	}
	defer func() { _ = resp.Body.Close() }()

	respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, int64(maxResponseBodyBytes)+1))
	respBody := string(respBytes)
	if len(respBody) > maxResponseBodyBytes {
		respBody = respBody[:maxResponseBodyBytes]
	}

	return &resp.StatusCode, respBody, nil
}

func (c *Client) logDelivery(ctx context.Context, event Event, payload []byte, statusCode *int, responseBody string, attempt int) {
	if c.db == nil {
		return
	}
	videoID, _ := event.Data["videoId"].(string)
	if _, err := c.db.Exec(ctx,
		`INSERT INTO webhook_deliveries (event, video_id, payload, status_code, response_body, attempt)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Name, videoID, payload, statusCode, responseBody, attempt,
	); err != nil {
		slog.Error("webhook: failed to log delivery", "event", event.Name, "error", err)
	}
}
