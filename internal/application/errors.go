package application

import "errors"

// Synchronous precondition failures. These are the only errors Submit
// returns to its caller; everything after acceptance is expressed as a
// terminal record state.
var (
	// ErrInvalidInput means the filename or audio payload was empty. No
	// record is created.
	ErrInvalidInput = errors.New("filename and audio payload are required")

	// ErrUnauthorized means no usable credential was available at
	// submission time.
	ErrUnauthorized = errors.New("missing or invalid credential")

	// ErrRateLimited means the identity exceeded the request ceiling for
	// the current window.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ErrReauthRequired is returned by RefreshIfNeeded when the credential is
// invalid and a non-interactive replacement could not be obtained. Callers
// must treat this as "user must sign in again", not as a transient error to
// silently retry.
var ErrReauthRequired = errors.New("re-authentication required")
