package auth

import "errors"

var (
	// ErrAlreadyExists is returned when registering an email that is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound is returned when no subject matches the lookup.
	ErrNotFound = errors.New("not found")

	// ErrInvalidToken is returned for a session or reset token that is not active.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpired is returned when a session outlived the configured duration.
	ErrExpired = errors.New("session expired")

	ErrInvalidSubject = errors.New("invalid subject")

	// ErrInvalidPassword is returned for a password the hasher cannot accept.
	ErrInvalidPassword = errors.New("invalid password")
)
