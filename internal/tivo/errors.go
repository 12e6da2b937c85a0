package tivo

import "errors"

// Domain errors for the tivo package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, tivo.ErrCommandTimeout) {
//	    // box is silent, treat as no signal
//	}
var (
	// ErrConnect is returned when the box cannot be reached.
	ErrConnect = errors.New("tivo: connect failed")

	// ErrNotConnected is returned when a command is issued without an
	// open connection.
	ErrNotConnected = errors.New("tivo: not connected")

	// ErrCommandTimeout is returned when the box stays silent past the
	// command timeout. During a status poll this means no live channel
	// is showing, not a fault.
	ErrCommandTimeout = errors.New("tivo: command timeout")

	// ErrConnectionReset is returned when the box closes the connection.
	ErrConnectionReset = errors.New("tivo: connection reset")

	// ErrInvalidKey is returned when the box rejects an IR or keyboard
	// code.
	ErrInvalidKey = errors.New("tivo: invalid key")

	// ErrInvalidCommand is returned when the box rejects a command verb.
	ErrInvalidCommand = errors.New("tivo: invalid command")

	// ErrInvalidChannel is returned when the box rejects a channel
	// number.
	ErrInvalidChannel = errors.New("tivo: invalid channel")

	// ErrNotLive is returned when the box refuses a channel change
	// because it is not showing live TV.
	ErrNotLive = errors.New("tivo: not on live tv")

	// ErrInvalidCode is returned before any transport call when a
	// requested code is not in the enumerated code set.
	ErrInvalidCode = errors.New("tivo: code not in enumerated set")
)
