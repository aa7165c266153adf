package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerify(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	tok, err := issuer.Mint("web-abc123")
	require.NoError(t, err)

	participant, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "web-abc123", participant)
}

func TestVerify_WrongSecretRejected(t *testing.T) {
	tok, err := NewIssuer("secret-a", time.Hour).Mint("web-abc123")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", time.Hour).Verify(tok)
	assert.Error(t, err)
}

func TestVerify_ExpiredRejected(t *testing.T) {
	issuer := NewIssuer("test-secret", -time.Minute)
	tok, err := issuer.Mint("web-abc123")
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)
	var got string
	handler := issuer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ParticipantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/messages", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	tok, err := issuer.Mint("web-abc123")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "web-abc123", got)
}
