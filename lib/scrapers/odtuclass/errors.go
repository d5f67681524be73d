package odtuclass

import (
	"errors"
	"fmt"

	"odtucli/lib/textutil"
)

// AuthError covers missing or invalid credentials, a missing login
// token, a login-page bounce-back and a missing sesskey.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// APIError covers RPC-level error envelopes and responses that are not
// JSON at all.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// TransportError covers final statuses >= 400 and malformed redirect
// targets.
type TransportError struct {
	Status  int
	Message string
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return e.Message
}

// Phrases the upstream uses in session-expiry adjacent failures. Best
// effort: upstream wording changes can defeat this, in which case the
// error surfaces to the caller instead of triggering a re-login.
var authPhrases = []string{
	"sesskey",
	"session",
	"not logged in",
	"access denied",
	"access control",
	"unexpected response",
}

// isAuthRelated decides whether a failure is worth one transparent
// re-login and retry. AuthError is always auth-related; everything else
// falls back to matching the upstream's known phrasing.
func isAuthRelated(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	return textutil.ContainsAny(err.Error(), authPhrases)
}
