package tvlist

import "errors"

// Domain errors for the tvlist package.
var (
	// ErrFetch is returned on network failure retrieving the listing
	// page. Transient; callers may retry with backoff.
	ErrFetch = errors.New("tvlist: fetch failed")

	// ErrParse is returned when the page structure yields no channel
	// entries at all. Individual unrecognised blocks are skipped with a
	// warning; only a total parse failure surfaces this error.
	ErrParse = errors.New("tvlist: no channels parsed")

	// ErrUnknownRegion is returned for a region name outside the known
	// regional numbering variants.
	ErrUnknownRegion = errors.New("tvlist: unknown region")
)
