package domain

import "errors"

// AuthError is a handshake or token failure. Every AuthError matches ErrAuth.
type AuthError struct {
	code    string
	message string
}

func (e *AuthError) Error() string { return e.message }

// Code returns the machine-readable code sent to the client.
func (e *AuthError) Code() string { return e.code }

// Is makes every AuthError match ErrAuth.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

var (
	ErrAuth = errors.New("authentication failed")

	ErrMissingCredential = &AuthError{code: "MISSING_CREDENTIAL", message: "credential is missing"}
	ErrInvalidCredential = &AuthError{code: "INVALID_CREDENTIAL", message: "credential is invalid"}
	ErrExpiredCredential = &AuthError{code: "EXPIRED_CREDENTIAL", message: "credential has expired"}
	ErrUnknownIdentity   = &AuthError{code: "UNKNOWN_IDENTITY", message: "identity does not exist"}
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrForbidden   = errors.New("forbidden")
	ErrPersistence = errors.New("persistence failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
)
