package service

import "time"

// SessionTransport is how the service hands the refresh token back to the
// caller's session medium. The HTTP layer implements it with an HTTP-only
// cookie; tests implement it with a struct that records the calls.
type SessionTransport interface {
	// SetRefreshCookie delivers a freshly issued refresh token with its
	// full lifetime.
	SetRefreshCookie(token string, ttl time.Duration)

	// ClearRefreshCookie removes the refresh token from the session medium.
	// Called on logout and whenever a presented refresh token turns out to
	// be dead, so clients stop replaying it.
	ClearRefreshCookie()
}

// NopTransport satisfies SessionTransport and does nothing. Useful for
// callers that manage the refresh token themselves.
type NopTransport struct{}

func (NopTransport) SetRefreshCookie(string, time.Duration) {}
func (NopTransport) ClearRefreshCookie()                    {}
