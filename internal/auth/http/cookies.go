package http

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie carrying the rotating refresh token.
const RefreshCookieName = "refresh_token"

// refreshCookiePath scopes the cookie to the auth endpoints so it never
// rides along on ordinary API traffic.
const refreshCookiePath = "/v1/auth"

// cookieTransport implements service.SessionTransport for one response.
// Strict same-site on secure deployments; Lax keeps local development over
// plain HTTP workable.
type cookieTransport struct {
	w      http.ResponseWriter
	secure bool
}

func newCookieTransport(w http.ResponseWriter, secure bool) *cookieTransport {
	return &cookieTransport{w: w, secure: secure}
}

func (c *cookieTransport) SetRefreshCookie(token string, ttl time.Duration) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
	})
}

func (c *cookieTransport) ClearRefreshCookie() {
	http.SetCookie(c.w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
	})
}

func (c *cookieTransport) sameSite() http.SameSite {
	if c.secure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}
