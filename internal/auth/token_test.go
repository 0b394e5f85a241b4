package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("user-123")
	assert.Equal(t, err, nil)

	userID, err := issuer.Verify(token)
	assert.Equal(t, err, nil)
	assert.Equal(t, userID, "user-123")
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue("user-123")
	assert.Equal(t, err, nil)

	_, err = NewTokenIssuer("secret-b", time.Hour).Verify(token)
	assert.NotEqual(t, err, nil)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue("user-123")
	assert.Equal(t, err, nil)

	_, err = issuer.Verify(token)
	assert.NotEqual(t, err, nil)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	_, err := issuer.Verify("not-a-token")
	assert.NotEqual(t, err, nil)
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, _ := issuer.Issue("user-123")

	var gotUserID string
	handler := issuer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r.Context())
	}))

	// Valid token.
	req := httptest.NewRequest("GET", "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, rr.Code, http.StatusOK)
	assert.Equal(t, gotUserID, "user-123")

	// Missing header.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/documents", nil))
	assert.Equal(t, rr.Code, http.StatusUnauthorized)

	// Mangled token.
	req = httptest.NewRequest("GET", "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, rr.Code, http.StatusUnauthorized)
}
