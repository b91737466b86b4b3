package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Credential and recovery errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid reset token")
	ErrResetTokenExpired  = errors.New("reset token expired")
	ErrWeakPassword       = errors.New("password does not meet policy")

	// ErrSelfModification is returned when an admin tries to demote or delete
	// their own account.
	ErrSelfModification = errors.New("cannot demote or delete own account")

	// ErrServiceUnavailable is returned when a dependency needed to make a
	// security decision cannot be reached.
	ErrServiceUnavailable = errors.New("service unavailable")
)
