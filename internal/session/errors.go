package session

import "errors"

var (
	// ErrNotFound is returned for an unknown session identifier.
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned while a confirmation is in flight.
	ErrBusy = errors.New("session is confirming")
	// ErrNotEditing is returned for edits while listings are displayed.
	ErrNotEditing = errors.New("session is not in editing mode")
	// ErrNothingToConfirm is returned when confirming a session without photos.
	ErrNothingToConfirm = errors.New("session has no photos to confirm")
	// ErrNoPhotos is returned when an upload carries no files.
	ErrNoPhotos = errors.New("no photos supplied")
)
