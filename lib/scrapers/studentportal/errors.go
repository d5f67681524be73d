package studentportal

import "fmt"

// AuthError covers rejected credentials and missing tokens.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// APIError covers portal responses that cannot carry the report: bad
// statuses, missing package identifiers, a missing auto-login form.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %d", e.Message, e.Status)
	}
	return e.Message
}

type TransportError struct {
	Message string
}

func (e *TransportError) Error() string { return e.Message }
