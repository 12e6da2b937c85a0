package guide

import "errors"

// Domain errors for the guide package.
var (
	// ErrFetch is returned on network failure or an unexpected
	// response. Transient; callers may retry with backoff.
	ErrFetch = errors.New("guide: fetch failed")

	// ErrUnauthorized is returned when the platform rejects the stored
	// session token. Not retried at this level; the session layer
	// performs one re-login and retries the whole fetch once.
	ErrUnauthorized = errors.New("guide: session rejected")

	// ErrLogin is returned when the login flow itself fails, usually
	// bad credentials or a changed upstream flow.
	ErrLogin = errors.New("guide: login failed")
)
