package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sendrec/playerkit/internal/database"
	"github.com/sendrec/playerkit/internal/httputil"
)

const (
	apiKeyPrefix    = "pk_"
	apiKeyRandBytes = 32
)

type contextKey string

const ingestKeyIDKey contextKey = "ingest-key-id"

var errAPIKeyNotFound = errors.New("API key not found")

func GenerateAPIKeyString() (string, error) {
	b := make([]byte, apiKeyRandBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// EnsureIngestKey registers a configured key. Registering the same key
// again is a no-op.
func EnsureIngestKey(ctx context.Context, db database.DBTX, name, key string) error {
	if !strings.HasPrefix(key, apiKeyPrefix) {
		return fmt.Errorf("ingest key must start with %q", apiKeyPrefix)
	}
	_, err := db.Exec(ctx,
		"INSERT INTO ingest_keys (name, key_hash) VALUES ($1, $2) ON CONFLICT (key_hash) DO NOTHING",
		name, HashAPIKey(key),
	)
	if err != nil {
		return fmt.Errorf("register ingest key: %w", err)
	}
	return nil
}

func LookupAPIKey(ctx context.Context, db database.DBTX, token string) (string, error) {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return "", errAPIKeyNotFound
	}

	keyHash := HashAPIKey(token)

	var keyID string
	err := db.QueryRow(ctx,
		"SELECT id FROM ingest_keys WHERE key_hash = $1", keyHash,
	).Scan(&keyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errAPIKeyNotFound
		}
		return "", fmt.Errorf("lookup API key: %w", err)
	}

	if _, err := db.Exec(ctx,
		"UPDATE ingest_keys SET last_used_at = now() WHERE id = $1", keyID,
	); err != nil {
		slog.Error("failed to update ingest key last_used_at", "error", err)
	}
	return keyID, nil
}

// RequireAPIKey admits requests bearing a registered ingest key.
func RequireAPIKey(db database.DBTX) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}
			keyID, err := LookupAPIKey(r.Context(), db, token)
			if errors.Is(err, errAPIKeyNotFound) {
				httputil.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if err != nil {
				slog.Error("api key lookup failed", "error", err)
				httputil.WriteError(w, http.StatusInternalServerError, "could not verify API key")
				return
			}
			ctx := context.WithValue(r.Context(), ingestKeyIDKey, keyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IngestKeyIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ingestKeyIDKey).(string); ok {
		return v
	}
	return ""
}
