package channels

import "sort"

// fallbackStep is the granularity the fallback range is aligned to.
// Fallback numbers start at the observed regional maximum rounded up to
// the next multiple, keeping synthesized numbers visually distinct from
// real regional ones.
const fallbackStep = 1000

// regionalKey joins the two tables. SD and HD variants of the same
// logical channel are separate keys.
type regionalKey struct {
	match      string
	definition Definition
}

// Merge reconciles the scraped regional table with the platform listing
// into one directory for the given region.
//
// The regional number is authoritative for numbering; the platform ID
// and name are authoritative for control and display. Platform entries
// with no regional counterpart get a fallback number above the observed
// regional range. Regional entries with no platform counterpart are
// retained as listing-only entries unless dropListingOnly is set.
//
// The result is deterministic for identical inputs regardless of input
// ordering: both tables are stable-sorted on (matchKey, definition,
// tie-break) before the first-wins pass, and dropped duplicates are
// counted in Directory.Conflicts.
//
// Merge returns ErrNoData when both inputs are empty; callers keep any
// previously cached directory in that case.
func Merge(region string, regional []RegionalChannel, platform []PlatformChannel, dropListingOnly bool) (*Directory, error) {
	if len(regional) == 0 && len(platform) == 0 {
		return nil, ErrNoData
	}

	conflicts := 0

	// Index the regional table. Duplicate keys follow the same
	// first-wins rule as platform duplicates, stabilized by sorting.
	sortedRegional := make([]RegionalChannel, len(regional))
	copy(sortedRegional, regional)
	sort.SliceStable(sortedRegional, func(i, j int) bool {
		a, b := sortedRegional[i], sortedRegional[j]
		if ka, kb := MatchKey(a.Name), MatchKey(b.Name); ka != kb {
			return ka < kb
		}
		if a.Definition != b.Definition {
			return a.Definition < b.Definition
		}
		return a.Number < b.Number
	})

	byKey := make(map[regionalKey]RegionalChannel, len(sortedRegional))
	maxRegional := 0
	for _, rc := range sortedRegional {
		key := regionalKey{MatchKey(rc.Name), rc.Definition}
		if _, dup := byKey[key]; dup {
			conflicts++
			continue
		}
		byKey[key] = rc
		if rc.Number > maxRegional {
			maxRegional = rc.Number
		}
	}

	// Stable order for the platform pass so first-wins is deterministic.
	sortedPlatform := make([]PlatformChannel, len(platform))
	copy(sortedPlatform, platform)
	sort.SliceStable(sortedPlatform, func(i, j int) bool {
		a, b := sortedPlatform[i], sortedPlatform[j]
		if ka, kb := MatchKey(a.Name), MatchKey(b.Name); ka != kb {
			return ka < kb
		}
		if a.Definition != b.Definition {
			return a.Definition < b.Definition
		}
		return a.ID < b.ID
	})

	nextFallback := ((maxRegional / fallbackStep) + 1) * fallbackStep

	entries := make([]Entry, 0, len(sortedPlatform))
	matched := make(map[regionalKey]bool, len(sortedPlatform))
	seen := make(map[regionalKey]bool, len(sortedPlatform))
	usedNumbers := make(map[int]bool, len(sortedPlatform))

	for _, pc := range sortedPlatform {
		key := regionalKey{MatchKey(pc.Name), pc.Definition}
		if seen[key] {
			conflicts++
			continue
		}
		seen[key] = true

		entry := Entry{
			Name:       pc.Name,
			Definition: pc.Definition,
			PlatformID: pc.ID,
			StationID:  pc.StationID,
			Region:     region,
		}
		if rc, ok := byKey[key]; ok {
			entry.Number = rc.Number
			matched[key] = true
		} else {
			entry.Number = nextFallback
			entry.Fallback = true
			nextFallback++
		}
		usedNumbers[entry.Number] = true
		entries = append(entries, entry)
	}

	if !dropListingOnly {
		for _, rc := range sortedRegional {
			key := regionalKey{MatchKey(rc.Name), rc.Definition}
			if matched[key] || byKey[key] != rc {
				continue
			}
			if usedNumbers[rc.Number] {
				conflicts++
				continue
			}
			usedNumbers[rc.Number] = true
			entries = append(entries, Entry{
				Number:     rc.Number,
				Name:       rc.Name,
				Definition: rc.Definition,
				Region:     region,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Number < entries[j].Number
	})

	return &Directory{
		Region:    region,
		Entries:   entries,
		Conflicts: conflicts,
	}, nil
}
