package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/utils"
)

const csrfCookieName = "csrf_token"

// GetCSRFToken issues a double-submit CSRF token: the same value is set
// as a cookie and returned in the response body and header. The value is
// HMAC-signed so a forged cookie fails validation.
func GetCSRFToken(authKey []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := generateSignedToken(authKey)
		if err != nil {
			logger.L.Error("Failed to generate CSRF token", "error", err)
			utils.SendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			HttpOnly: true,
			Secure:   false, // set true behind HTTPS
			MaxAge:   3600,
		})

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-CSRF-Token", token)
		json.NewEncoder(w).Encode(map[string]string{
			"csrfToken": token,
		})
	}
}

// CSRFMiddleware enforces the double-submit check on every mutating
// request: the X-CSRF-Token header must match the cookie and carry a
// valid signature.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)
			if headerToken == "" || err != nil || headerToken != cookie.Value || !validateSignedToken(authKey, headerToken) {
				logger.L.Warn("CSRF validation failed", "method", r.Method, "path", r.URL.Path)
				utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func generateSignedToken(authKey []byte) (string, error) {
	value := make([]byte, 32)
	if _, err := rand.Read(value); err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, authKey)
	mac.Write(value)
	return base64.RawURLEncoding.EncodeToString(value) + "." +
		base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func validateSignedToken(authKey []byte, token string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return false
	}
	value, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, authKey)
	mac.Write(value)
	return hmac.Equal(signature, mac.Sum(nil))
}
