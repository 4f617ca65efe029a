package shared

import "errors"

var (
	// ErrUIStateMissing occurs when no UI state was attached to the request.
	ErrUIStateMissing = errors.New("ui state missing")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
