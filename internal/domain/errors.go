package domain

import "errors"

// Sentinel errors shared by repositories, services and controllers.
// Anything not wrapping one of these is treated as an internal failure.
var (
	// ErrInvalidInput is returned for malformed payloads, missing required fields,
	// bad time ordering or an empty update set.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when an event, chat, invite or user cannot be resolved.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller is not allowed to act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyExists is returned for duplicate friendships or duplicate pending invites.
	ErrAlreadyExists = errors.New("already exists")
	// ErrFailedPrecondition is returned when the resource is not in a state that allows the operation.
	ErrFailedPrecondition = errors.New("failed precondition")
	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")
)
