package service

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakSecret         = errors.New("weak_secret")

	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token_expired")

	// ErrTokenReused marks the replay of an already-exchanged refresh token.
	// By the time a caller sees it the whole rotation chain has been revoked.
	ErrTokenReused = errors.New("token_reused")

	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable wraps infrastructure timeouts so callers can retry
	// instead of treating them as a verdict on the token or credentials.
	ErrUnavailable = errors.New("service_unavailable")
)

// mapInfra converts context cancellation and deadline errors from store or
// blacklist calls into the retryable ErrUnavailable. Everything else passes
// through untouched.
func mapInfra(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}
	return err
}
