package session

import "errors"

// Domain errors for the session package.
var (
	// ErrDeviceNotFound is returned when a device ID is not managed.
	ErrDeviceNotFound = errors.New("session: device not found")

	// ErrDeviceExists is returned when adding a device ID twice.
	ErrDeviceExists = errors.New("session: device already exists")

	// ErrWrongState is returned when a power command does not apply to
	// the device's current state.
	ErrWrongState = errors.New("session: not valid in current state")

	// ErrUnknownChannel is returned when a channel name has no entry in
	// the directory.
	ErrUnknownChannel = errors.New("session: unknown channel")

	// ErrNotControllable is returned when a directory entry has no
	// tunable number, such as a listing-only station.
	ErrNotControllable = errors.New("session: channel is not controllable")
)
