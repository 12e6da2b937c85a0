package channels

// Definition distinguishes the SD and HD variant of a logical channel.
// The two variants are always separate directory entries, never collapsed.
type Definition string

// Channel definitions.
const (
	DefinitionSD Definition = "SD"
	DefinitionHD Definition = "HD"
)

// RegionalChannel is one row of the scraped regional listing table.
// The regional number is authoritative for numbering.
type RegionalChannel struct {
	Number     int        `json:"number"`
	Name       string     `json:"name"`
	Definition Definition `json:"definition"`
}

// PlatformChannel is one row of the account's platform guide listing.
// The platform ID is authoritative for control and EPG lookups; the
// name is what the account actually calls the channel.
type PlatformChannel struct {
	ID         string     `json:"id"`
	StationID  string     `json:"station_id,omitempty"`
	Name       string     `json:"name"`
	Definition Definition `json:"definition"`
}

// Entry is one merged channel directory entry.
type Entry struct {
	// Number is unique within one directory. It comes from the regional
	// table when a match was found, otherwise from the fallback range.
	Number     int        `json:"number"`
	Name       string     `json:"name"`
	Definition Definition `json:"definition"`

	// PlatformID is empty for listing-only entries, which carry EPG
	// detail but cannot be selected on a device.
	PlatformID string `json:"platform_id,omitempty"`
	StationID  string `json:"station_id,omitempty"`

	Region string `json:"region"`

	// Fallback marks entries numbered outside the observed regional
	// range because no regional counterpart existed. UI layers use it
	// to indicate reduced confidence in the number.
	Fallback bool `json:"fallback,omitempty"`
}

// Controllable reports whether the entry can be selected on a device.
func (e Entry) Controllable() bool {
	return e.PlatformID != ""
}

// Directory is the merged, authoritative channel table for one
// account/region scope. It is immutable once built; refreshes replace
// the whole value.
type Directory struct {
	Region  string  `json:"region"`
	Entries []Entry `json:"entries"`

	// Conflicts counts platform entries dropped by the first-wins
	// duplicate rule during the merge. Surfaced for diagnostics.
	Conflicts int `json:"conflicts,omitempty"`
}

// ByNumber returns the entry with the given channel number.
func (d *Directory) ByNumber(number int) (Entry, bool) {
	for _, e := range d.Entries {
		if e.Number == number {
			return e, true
		}
	}
	return Entry{}, false
}

// ByName returns the entry whose name normalizes to the same match key
// as the given name. When both SD and HD variants match, HD wins.
func (d *Directory) ByName(name string) (Entry, bool) {
	key := MatchKey(name)
	var found Entry
	var ok bool
	for _, e := range d.Entries {
		if MatchKey(e.Name) != key {
			continue
		}
		if !ok || e.Definition == DefinitionHD {
			found = e
			ok = true
		}
	}
	return found, ok
}
