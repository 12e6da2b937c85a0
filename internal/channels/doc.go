// Package channels builds the authoritative channel directory for an
// account by reconciling two upstream sources that disagree with each
// other: the platform guide API (accurate per-account channel identifiers,
// no regional numbering) and a scraped regional listing site (accurate
// regional HD/SD channel numbers, no per-account identifiers).
//
// The merge is a pure function over the two normalized tables; the
// Service wraps it with cached inputs, per-scope refresh coalescing and
// the degradation rules that keep a previously good directory in place
// when an upstream source fails.
package channels
