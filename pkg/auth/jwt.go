// Package auth issues and validates the JWTs that identify web-chat
// sessions. WhatsApp traffic is authenticated upstream by the webhook
// verify token, so only web participants carry tokens.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type contextKey string

const participantKey contextKey = "participant"

// Issuer mints and verifies session tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Mint creates a signed token for a web participant id.
func (i *Issuer) Mint(participantID string) (string, error) {
	tok, err := jwt.NewBuilder().
		Subject(participantID).
		Issuer("mangwale-ai").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(i.ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, i.secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// Verify parses and validates a token, returning the participant id.
func (i *Issuer) Verify(raw string) (string, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, i.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if tok.Subject() == "" {
		return "", fmt.Errorf("token missing subject")
	}
	return tok.Subject(), nil
}

// Middleware enforces a Bearer token on web routes and stores the
// verified participant id in the request context.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}
		participant, err := i.Verify(raw)
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), participantKey, participant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParticipantFromContext returns the verified participant id, if any.
func ParticipantFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(participantKey).(string)
	return v, ok
}
