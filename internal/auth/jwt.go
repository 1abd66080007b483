package auth

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const SessionTokenDuration = 2 * time.Hour

const sessionKeyInfo = "playerkit session tokens v1"

// SessionClaims carry what a rendered page asked for, so the websocket that
// follows cannot ask for anything else.
type SessionClaims struct {
	Videos   []string `json:"videos"`
	Index    int      `json:"index"`
	Variant  string   `json:"variant"`
	Autoplay bool     `json:"autoplay"`
	jwt.RegisteredClaims
}

// DeriveKey stretches the configured secret into the HS256 signing key.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty session secret")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

type Tokens struct {
	key []byte
	now func() time.Time
}

func NewTokens(secret string) (*Tokens, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &Tokens{key: key, now: time.Now}, nil
}

func (t *Tokens) Issue(claims SessionClaims) (string, error) {
	now := t.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenDuration)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(t.key)
}

func (t *Tokens) Validate(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.key, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if len(claims.Videos) == 0 {
		return nil, fmt.Errorf("token carries no videos")
	}
	return claims, nil
}
