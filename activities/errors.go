package activities

import "errors"

var (
	// ErrActivityNotFound is returned when the named activity is not in the catalog.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadyRegistered is returned by Signup when the email is already on the roster.
	ErrAlreadyRegistered = errors.New("student is already signed up for this activity")
	// ErrNotRegistered is returned by Unregister when the email is not on the roster.
	ErrNotRegistered = errors.New("student is not registered for this activity")
)
