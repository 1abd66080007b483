package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/sendrec/playerkit/internal/metadata"
)

func TestSignPayload(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"event":"video.played","data":{}}`)

	signature := SignPayload(secret, payload)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if signature != expected {
		t.Errorf("expected signature %s, got %s", expected, signature)
	}
	if SignPayload("other-secret", payload) == signature {
		t.Error("different secrets should produce different signatures")
	}
}

func TestPlaybackEvent(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	e := PlaybackEvent(EventVideoEnded, "s-1", metadata.VideoMetadata{VideoID: "dQw4w9WgXcQ"}, at)

	if e.Name != "video.ended" {
		t.Errorf("expected video.ended, got %s", e.Name)
	}
	if e.Timestamp.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", e.Timestamp)
	}
	if e.Data["watchUrl"] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("unexpected watch URL %v", e.Data["watchUrl"])
	}
	if e.Data["sessionId"] != "s-1" {
		t.Errorf("unexpected session id %v", e.Data["sessionId"])
	}
}

func TestPlaybackEventResolvesIDFromWatchURL(t *testing.T) {
	v := metadata.VideoMetadata{WatchURL: "https://youtu.be/dQw4w9WgXcQ"}
	e := PlaybackEvent(EventVideoPlayed, "s-2", v, time.Now())

	if e.Data["videoId"] != "dQw4w9WgXcQ" {
		t.Errorf("expected id resolved from the watch URL, got %v", e.Data["videoId"])
	}
}

func expectDeliveryLog(mock pgxmock.PgxPoolIface, eventName, videoID string, attempt int) {
	mock.ExpectExec("INSERT INTO webhook_deliveries").
		WithArgs(eventName, videoID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), attempt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func newTestClient(db pgxmock.PgxPoolIface, url string) *Client {
	client := New(db, url, "my-secret")
	client.retryDelays = []time.Duration{1 * time.Millisecond, 1 * time.Millisecond}
	return client
}

func TestDispatchSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	var receivedSignature string
	var receivedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedSignature = r.Header.Get("X-Webhook-Signature")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	event := PlaybackEvent(EventVideoPlayed, "s-1", metadata.VideoMetadata{VideoID: "abc123"},
		time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC))
	eventJSON, _ := json.Marshal(event)

	expectDeliveryLog(mock, "video.played", "abc123", 1)

	if err := newTestClient(mock, server.URL).Dispatch(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if receivedSignature != SignPayload("my-secret", eventJSON) {
		t.Errorf("unexpected signature %s", receivedSignature)
	}
	var receivedEvent Event
	if err := json.Unmarshal(receivedBody, &receivedEvent); err != nil {
		t.Fatalf("failed to unmarshal received body: %v", err)
	}
	if receivedEvent.Name != "video.played" {
		t.Errorf("expected event name video.played, got %s", receivedEvent.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet mock expectations: %v", err)
	}
}

func TestDispatchRetryOnServerError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attemptCount.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	expectDeliveryLog(mock, "video.ended", "v1", 1)
	expectDeliveryLog(mock, "video.ended", "v1", 2)
	expectDeliveryLog(mock, "video.ended", "v1", 3)

	event := PlaybackEvent(EventVideoEnded, "s-1", metadata.VideoMetadata{VideoID: "v1"}, time.Now())
	if err := newTestClient(mock, server.URL).Dispatch(context.Background(), event); err != nil {
		t.Fatalf("expected no error after successful retry, got %v", err)
	}

	if attemptCount.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attemptCount.Load())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet mock expectations: %v", err)
	}
}

func TestDispatchAllRetriesFail(t *testing.T) {
	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(nil, server.URL, "secret")
	client.retryDelays = []time.Duration{1 * time.Millisecond, 1 * time.Millisecond}

	event := PlaybackEvent(EventVideoPlayed, "s-1", metadata.VideoMetadata{VideoID: "v2"}, time.Now())
	err := client.Dispatch(context.Background(), event)
	if err == nil {
		t.Fatal("expected error after all retries failed, got nil")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected error to mention status 502, got: %s", err.Error())
	}
	if attemptCount.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attemptCount.Load())
	}
}

func TestDispatchStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(nil, server.URL, "secret")
	client.retryDelays = []time.Duration{time.Hour, time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	event := PlaybackEvent(EventVideoPlayed, "s-1", metadata.VideoMetadata{VideoID: "v3"}, time.Now())
	if err := client.Dispatch(ctx, event); err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestNotifyOutlivesCancelledContext(t *testing.T) {
	var mu sync.Mutex
	var names []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e Event
		_ = json.NewDecoder(r.Body).Decode(&e)
		mu.Lock()
		names = append(names, e.Name)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(nil, server.URL, "secret")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client.Notify(ctx, EventVideoEnded, "s-1", metadata.VideoMetadata{VideoID: "v4"})
	client.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(names) != 1 || names[0] != "video.ended" {
		t.Errorf("expected one video.ended delivery, got %v", names)
	}
}

func TestResponseBodyTruncation(t *testing.T) {
	longBody := strings.Repeat("x", 2000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(longBody))
	}))
	defer server.Close()

	client := New(nil, server.URL, "secret")
	statusCode, respBody, err := client.doPost(context.Background(), []byte("{}"), "sha256=test")
	if err != nil {
		t.Fatalf("doPost error: %v", err)
	}
	if statusCode == nil || *statusCode != 200 {
		t.Fatalf("expected status 200, got %v", statusCode)
	}
	if len(respBody) != maxResponseBodyBytes {
		t.Errorf("expected response body truncated to %d bytes, got %d bytes", maxResponseBodyBytes, len(respBody))
	}
}
