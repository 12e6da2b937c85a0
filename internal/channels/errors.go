package channels

import "errors"

// Domain errors for the channels package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, channels.ErrNoData) {
//	    // keep serving the previous directory
//	}
var (
	// ErrNoData is returned when a merge has no usable inputs at all.
	// Callers must keep any previously cached directory authoritative.
	ErrNoData = errors.New("channels: no usable source data")
)
