package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/trackforge/trackforge/internal/auth/domain"
)

const maxBodyBytes = 1 << 16

var errBadBody = errors.New("bad request body")

// decodeJSON parses a small JSON body, rejecting unknown fields so typos in
// clients surface as 400s instead of silently ignored input.
func decodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return errBadBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

// bearerToken extracts the token from the Authorization header; empty when
// absent or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// refreshToken pulls the refresh token from its cookie, falling back to a
// JSON body for non-browser clients.
func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &body); err == nil {
		return strings.TrimSpace(body.RefreshToken)
	}
	return ""
}

// tokenResponse is the success envelope for signup, signin, and refresh.
// The refresh token itself travels in the cookie, not the body.
type tokenResponse struct {
	User        domain.Principal `json:"user"`
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
}

func newTokenResponse(p domain.Principal, pair domain.TokenPair) tokenResponse {
	return tokenResponse{
		User:        p,
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(pair.ExpiresIn.Seconds()),
	}
}
