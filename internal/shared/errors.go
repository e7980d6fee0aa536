package shared

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates an email/password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAlreadyLoggedIn indicates the client already holds a live session.
	ErrAlreadyLoggedIn = errors.New("already logged in")
	// ErrSessionInvalid indicates the session is expired or unknown.
	ErrSessionInvalid = errors.New("session expired or invalid")
	// ErrUnauthorized indicates a missing or unverifiable credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidToken indicates a bearer token that failed verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrHashFormat indicates a stored password hash that cannot be parsed.
	ErrHashFormat = errors.New("malformed password hash")
)
