package auth

import "errors"

// Domain errors for the auth package.
var (
	// ErrInvalidCredentials is returned when login fails. The cause
	// (unknown user or wrong password) is deliberately not disclosed.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTokenInvalid is returned when a token fails signature, expiry,
	// or claim validation.
	ErrTokenInvalid = errors.New("auth: token invalid")
)
