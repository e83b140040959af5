package auth

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the cookie the storefront client sends the session token in.
const CookieName = "token"

func ExtractAccessToken(r *http.Request) string {
	// 1️⃣ Cookie (preferred)
	if cookie, err := r.Cookie(CookieName); err == nil {
		if cookie.Value != "" {
			return cookie.Value
		}
	}

	// 2️⃣ Authorization header (fallback)
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// SetTokenCookie issues the session cookie. secure also switches SameSite to
// None so the cross-origin client keeps sending it.
func SetTokenCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite(secure),
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearTokenCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite(secure),
		MaxAge:   -1,
	})
}

func sameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteStrictMode
}
