package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCSRFKey = []byte("a-very-secure-32-byte-long-key-must-be-32-bytes!")

func issueCSRFToken(t *testing.T) (string, []*http.Cookie) {
	t.Helper()
	recorder := httptest.NewRecorder()
	GetCSRFToken(testCSRFKey)(recorder, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	token := recorder.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	return token, recorder.Result().Cookies()
}

func protectedPostRequest(token string, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/notes/upload", strings.NewReader("{}"))
	if token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	return req
}

func TestCSRFMiddlewareAcceptsMatchingTokens(t *testing.T) {
	token, cookies := issueCSRFToken(t)

	called := false
	handler := CSRFMiddleware(testCSRFKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, protectedPostRequest(token, cookies))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCSRFMiddlewareRejectsMissingOrForgedTokens(t *testing.T) {
	token, cookies := issueCSRFToken(t)
	handler := CSRFMiddleware(testCSRFKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	// Missing header.
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, protectedPostRequest("", cookies))
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Header without the backing cookie.
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, protectedPostRequest(token, nil))
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Cookie and header that match each other but were not signed by us.
	forged := "Zm9yZ2Vk.Zm9yZ2Vk"
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, protectedPostRequest(forged, []*http.Cookie{{Name: csrfCookieName, Value: forged}}))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestCSRFMiddlewareSkipsSafeMethods(t *testing.T) {
	called := false
	handler := CSRFMiddleware(testCSRFKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	assert.True(t, called)
}
